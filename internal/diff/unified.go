package diff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	godiff "github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

// Unified renders a FileChange as a git-style unified diff with the given
// number of context lines. It is used for export, not for the side-by-side view.
func Unified(fc FileChange, context int) (string, error) {
	from, to := "a/"+fc.Filename, "b/"+fc.Filename
	oldText, newText := fc.OriginalContent, fc.Content
	switch fc.Action {
	case ActionCreate:
		from, oldText = devNull, ""
	case ActionDelete:
		to, newText = devNull, ""
	}

	ud := difflib.UnifiedDiff{
		A:        terminated(oldText),
		B:        terminated(newText),
		FromFile: from,
		ToFile:   to,
		Context:  context,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("render unified diff for %s: %w", fc.Filename, err)
	}
	return out, nil
}

// terminated splits text the way Compute does and gives every line its
// terminator back, so the patch and the side-by-side view agree on counts.
func terminated(text string) []string {
	lines := SplitLines(text)
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}

// PatchStat is the per-file line count extracted from a unified diff.
type PatchStat struct {
	Filename string
	Action   Action
	Added    int
	Removed  int
}

// ParsePatch reads a (multi-file) unified diff and counts added and removed
// lines per file. Backend-supplied patches are checked against Compute with it.
func ParsePatch(patch string) ([]PatchStat, error) {
	fds, err := godiff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}

	stats := make([]PatchStat, 0, len(fds))
	for _, fd := range fds {
		st := PatchStat{Action: ActionModify}
		switch {
		case fd.OrigName == devNull:
			st.Action = ActionCreate
			st.Filename = stripPrefix(fd.NewName)
		case fd.NewName == devNull:
			st.Action = ActionDelete
			st.Filename = stripPrefix(fd.OrigName)
		default:
			st.Filename = stripPrefix(fd.NewName)
		}

		for _, h := range fd.Hunks {
			for _, line := range bytes.Split(h.Body, []byte("\n")) {
				if len(line) == 0 {
					continue
				}
				switch line[0] {
				case '+':
					st.Added++
				case '-':
					st.Removed++
				}
			}
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func stripPrefix(name string) string {
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}
