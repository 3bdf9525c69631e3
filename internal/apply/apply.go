// Package apply writes an approved solution's file changes into a local
// checkout. Every path is checked before anything is written, and modified
// files must still match the content the solution was generated against.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChamsBouzaiene/issuefix/internal/diff"
	"github.com/ChamsBouzaiene/issuefix/internal/stats"
)

// Options controls Apply.
type Options struct {
	DryRun bool // check and report, write nothing
	Force  bool // skip the on-disk content check
}

// Outcome is what happened to one file.
type Outcome struct {
	Filename string      `json:"filename"`
	Action   diff.Action `json:"action"`
	Written  bool        `json:"written"`
}

// ConflictError reports that the checkout no longer matches the content a
// solution was generated against.
type ConflictError struct {
	Filename string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict in %s: %s", e.Filename, e.Reason)
}

type op struct {
	fc   diff.FileChange
	path string
}

// Apply checks every change against g and the checkout, then writes them.
// Nothing is written unless every change passes.
func Apply(ctx context.Context, g *Guard, changes []diff.FileChange, opts Options) ([]Outcome, error) {
	if err := g.CheckBudget(changes); err != nil {
		return nil, err
	}

	ops := make([]op, 0, len(changes))
	for _, fc := range changes {
		path, err := g.Resolve(fc.Filename)
		if err != nil {
			return nil, err
		}
		if !opts.Force {
			if err := checkDisk(fc, path); err != nil {
				return nil, err
			}
		}
		ops = append(ops, op{fc: fc, path: path})
	}

	outcomes := make([]Outcome, 0, len(ops))
	for _, o := range ops {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out := Outcome{Filename: o.fc.Filename, Action: o.fc.Action}
		if !opts.DryRun {
			if err := write(o); err != nil {
				return outcomes, err
			}
			out.Written = true
			log.Printf("✅ %s %s", o.fc.Action, o.fc.Filename)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func checkDisk(fc diff.FileChange, path string) error {
	data, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", fc.Filename, err)
	}

	switch fc.Action {
	case diff.ActionCreate:
		if exists {
			return &ConflictError{Filename: fc.Filename, Reason: "file already exists"}
		}
	case diff.ActionModify, diff.ActionDelete:
		if !exists {
			return &ConflictError{Filename: fc.Filename, Reason: "file does not exist"}
		}
		if !sameLines(string(data), fc.OriginalContent) {
			return &ConflictError{Filename: fc.Filename, Reason: "file changed since the solution was generated"}
		}
	default:
		return fmt.Errorf("unknown action %q for %s", fc.Action, fc.Filename)
	}
	return nil
}

// sameLines compares content the way the diff engine does, ignoring line
// endings and one trailing newline.
func sameLines(a, b string) bool {
	la, lb := diff.SplitLines(a), diff.SplitLines(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if la[i] != lb[i] {
			return false
		}
	}
	return true
}

func write(o op) error {
	if o.fc.Action == diff.ActionDelete {
		if err := os.Remove(o.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", o.fc.Filename, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(o.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", o.fc.Filename, err)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(o.path); err == nil {
		mode = info.Mode().Perm()
	}
	content := o.fc.Content
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if err := os.WriteFile(o.path, []byte(content), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", o.fc.Filename, err)
	}
	return nil
}

// WritePatch renders changes as one multi-file unified diff.
func WritePatch(w io.Writer, changes []diff.FileChange, contextLines int) error {
	for _, fc := range changes {
		text, err := diff.Unified(fc, contextLines)
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", fc.Filename, err)
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
	}
	return nil
}

// PatchMismatchError reports a file whose exported patch disagrees with the
// diff engine's line counts.
type PatchMismatchError struct {
	Filename string
	Field    string
	Diff     int
	Patch    int
}

func (e *PatchMismatchError) Error() string {
	return fmt.Sprintf("patch for %s disagrees on %s: diff=%d patch=%d", e.Filename, e.Field, e.Diff, e.Patch)
}

// VerifyPatch parses patch and checks every file's added and removed counts
// against the diff engine. Files without changes have no patch section.
func VerifyPatch(patch string, changes []diff.FileChange) error {
	parsed, err := diff.ParsePatch(patch)
	if err != nil {
		return err
	}
	byName := make(map[string]diff.PatchStat, len(parsed))
	for _, ps := range parsed {
		byName[ps.Filename] = ps
	}
	for _, fc := range changes {
		want := stats.ForFile(fc)
		got := byName[fc.Filename]
		if got.Added != want.Added {
			return &PatchMismatchError{Filename: fc.Filename, Field: "added", Diff: want.Added, Patch: got.Added}
		}
		if got.Removed != want.Removed {
			return &PatchMismatchError{Filename: fc.Filename, Field: "removed", Diff: want.Removed, Patch: got.Removed}
		}
	}
	return nil
}
