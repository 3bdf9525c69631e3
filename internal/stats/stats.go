// Package stats aggregates per-file diff counts into the change summary shown
// next to a solution.
package stats

import (
	"fmt"
	"math"

	"github.com/ChamsBouzaiene/issuefix/internal/diff"
)

// ChangeStats mirrors the backend's change summary.
type ChangeStats struct {
	FilesChanged      int `json:"filesChanged"`
	LinesAdded        int `json:"linesAdded"`
	LinesRemoved      int `json:"linesRemoved"`
	TotalChanges      int `json:"totalChanges"`
	PercentageChanged int `json:"percentageChanged"`
	NewFiles          int `json:"newFiles,omitempty"`
	DeletedFiles      int `json:"deletedFiles,omitempty"`
}

// FileStat is the classified line count of a single file.
type FileStat struct {
	Filename      string
	Action        diff.Action
	Added         int
	Removed       int
	OriginalLines int
}

// ForFile runs the diff engine over one change. create counts the whole new
// file as added and delete the whole old file as removed.
func ForFile(fc diff.FileChange) FileStat {
	res := diff.ComputeChange(fc)
	st := FileStat{
		Filename: fc.Filename,
		Action:   fc.Action,
		Added:    res.Added,
		Removed:  res.Removed,
	}
	if fc.Action != diff.ActionCreate {
		st.OriginalLines = diff.LineCount(fc.OriginalContent)
	}
	return st
}

// Aggregate sums the per-file counts. PercentageChanged is
// totalChanges / max(1, totalOriginalLines) * 100 rounded to an integer.
func Aggregate(files []FileStat) ChangeStats {
	var s ChangeStats
	original := 0
	for _, f := range files {
		s.FilesChanged++
		s.LinesAdded += f.Added
		s.LinesRemoved += f.Removed
		original += f.OriginalLines
		switch f.Action {
		case diff.ActionCreate:
			s.NewFiles++
		case diff.ActionDelete:
			s.DeletedFiles++
		}
	}
	s.TotalChanges = s.LinesAdded + s.LinesRemoved
	if original < 1 {
		original = 1
	}
	s.PercentageChanged = int(math.Round(float64(s.TotalChanges) / float64(original) * 100))
	return s
}

// FromChanges is Aggregate over ForFile of every change.
func FromChanges(changes []diff.FileChange) ChangeStats {
	files := make([]FileStat, len(changes))
	for i, fc := range changes {
		files[i] = ForFile(fc)
	}
	return Aggregate(files)
}

// Prefer returns local with the percentage taken from remote when the backend
// supplied one. The backend formula is not part of the contract, so the
// remote figure is rendered as-is.
func Prefer(local ChangeStats, remote *ChangeStats) ChangeStats {
	if remote == nil {
		return local
	}
	local.PercentageChanged = remote.PercentageChanged
	return local
}

// MismatchError reports a disagreement between the rendered diff and the
// backend's totals for the same files.
type MismatchError struct {
	Field  string
	Local  int
	Remote int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("change stats disagree on %s: diff=%d backend=%d", e.Field, e.Local, e.Remote)
}

// Verify checks the line and file counters of remote against local.
func Verify(local, remote ChangeStats) error {
	checks := []struct {
		field         string
		local, remote int
	}{
		{"filesChanged", local.FilesChanged, remote.FilesChanged},
		{"linesAdded", local.LinesAdded, remote.LinesAdded},
		{"linesRemoved", local.LinesRemoved, remote.LinesRemoved},
		{"totalChanges", local.TotalChanges, remote.TotalChanges},
	}
	for _, c := range checks {
		if c.local != c.remote {
			return &MismatchError{Field: c.field, Local: c.local, Remote: c.remote}
		}
	}
	return nil
}
