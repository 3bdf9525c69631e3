// Package diff turns the before/after text of a FileChange into a line-level,
// side-by-side diff. Everything in this package is pure: the same input always
// produces the same output and nothing is mutated.
package diff

import (
	"fmt"
	"strings"
)

// Action is what a solution does to one file.
type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// ParseAction validates a backend action string.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionCreate, ActionModify, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("unknown file action %q", s)
	}
}

// Kind classifies a single rendered line.
type Kind string

const (
	KindAdded     Kind = "added"
	KindRemoved   Kind = "removed"
	KindUnchanged Kind = "unchanged"
)

// FileChange is one file of a generated solution as delivered by the backend.
type FileChange struct {
	Filename        string `json:"filename"`
	Action          Action `json:"action"`
	OriginalContent string `json:"originalContent"`
	Content         string `json:"content"`
}

// Line is one rendered diff line. Number is the 1-based position on the side
// the line is placed on; zero means the line has no number.
type Line struct {
	Number  int    `json:"lineNumber,omitempty"`
	Content string `json:"content"`
	Kind    Kind   `json:"type"`
}

// Result is the output of Compute.
type Result struct {
	OldLines  []Line `json:"oldLines"`
	NewLines  []Line `json:"newLines"`
	Added     int    `json:"added"`
	Removed   int    `json:"removed"`
	Unchanged int    `json:"unchanged"`

	rows []Row
}

// Compute diffs oldContent against newContent for the given action.
//
// create emits every line of newContent as added, delete emits every line of
// oldContent as removed, and modify runs a longest-common-subsequence line
// diff. Each side is numbered independently starting at 1.
func Compute(oldContent, newContent string, action Action) Result {
	var res Result

	switch action {
	case ActionCreate:
		for i, l := range SplitLines(newContent) {
			line := Line{Number: i + 1, Content: l, Kind: KindAdded}
			res.NewLines = append(res.NewLines, line)
			res.rows = append(res.rows, Row{New: &line})
		}
	case ActionDelete:
		for i, l := range SplitLines(oldContent) {
			line := Line{Number: i + 1, Content: l, Kind: KindRemoved}
			res.OldLines = append(res.OldLines, line)
			res.rows = append(res.rows, Row{Old: &line})
		}
	default:
		res = computeModify(SplitLines(oldContent), SplitLines(newContent))
	}

	if res.OldLines == nil {
		res.OldLines = []Line{}
	}
	if res.NewLines == nil {
		res.NewLines = []Line{}
	}
	res.count()
	return res
}

// ComputeChange is Compute applied to a FileChange.
func ComputeChange(fc FileChange) Result {
	return Compute(fc.OriginalContent, fc.Content, fc.Action)
}

func computeModify(a, b []string) Result {
	var res Result
	oldNo, newNo := 0, 0

	var pendingOld, pendingNew []Line
	flush := func() {
		res.rows = append(res.rows, pairRows(pendingOld, pendingNew)...)
		pendingOld, pendingNew = nil, nil
	}

	for _, o := range editScript(a, b) {
		switch o.kind {
		case KindUnchanged:
			flush()
			oldNo++
			newNo++
			ol := Line{Number: oldNo, Content: a[o.a], Kind: KindUnchanged}
			nl := Line{Number: newNo, Content: b[o.b], Kind: KindUnchanged}
			res.OldLines = append(res.OldLines, ol)
			res.NewLines = append(res.NewLines, nl)
			res.rows = append(res.rows, Row{Old: &ol, New: &nl})
		case KindRemoved:
			oldNo++
			l := Line{Number: oldNo, Content: a[o.a], Kind: KindRemoved}
			res.OldLines = append(res.OldLines, l)
			pendingOld = append(pendingOld, l)
		case KindAdded:
			newNo++
			l := Line{Number: newNo, Content: b[o.b], Kind: KindAdded}
			res.NewLines = append(res.NewLines, l)
			pendingNew = append(pendingNew, l)
		}
	}
	flush()
	return res
}

func (r *Result) count() {
	r.Added, r.Removed, r.Unchanged = 0, 0, 0
	for _, l := range r.NewLines {
		if l.Kind == KindAdded {
			r.Added++
		}
	}
	for _, l := range r.OldLines {
		switch l.Kind {
		case KindRemoved:
			r.Removed++
		case KindUnchanged:
			r.Unchanged++
		}
	}
}

// SplitLines splits text on line breaks. A trailing empty element produced by
// a final line terminator is dropped, and empty input yields no lines.
// CRLF terminators are treated like LF.
func SplitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LineCount is len(SplitLines(s)).
func LineCount(s string) int {
	return len(SplitLines(s))
}
