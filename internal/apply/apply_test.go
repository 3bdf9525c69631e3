package apply

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/issuefix/internal/diff"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)
	return string(data)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "dist/\n*.log\n")
	g, err := NewGuard(root, Budget{})
	require.NoError(t, err)

	_, err = g.Resolve("internal/server.go")
	assert.NoError(t, err)
	_, err = g.Resolve("cmd/builder/main.go")
	assert.NoError(t, err, "segment match must not reject substrings")

	for _, bad := range []string{
		"/etc/passwd",
		"../outside.go",
		"a/../../outside.go",
		".env",
		".env.production",
		"web/node_modules/x.js",
		".git/config",
		"dist/bundle.js",
		"server.log",
		"",
	} {
		_, err := g.Resolve(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolve_AllowedPrefixes(t *testing.T) {
	g, err := NewGuard(t.TempDir(), Budget{})
	require.NoError(t, err)
	g.AllowPrefixes("src/")

	_, err = g.Resolve("src/a.go")
	assert.NoError(t, err)
	_, err = g.Resolve("docs/a.md")
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "a\nb\nc\n")
	writeFile(t, root, "old.go", "gone\n")
	g, err := NewGuard(root, DefaultBudget)
	require.NoError(t, err)

	changes := []diff.FileChange{
		{Filename: "main.go", Action: diff.ActionModify, OriginalContent: "a\nb\nc", Content: "a\nx\nc"},
		{Filename: "pkg/new.go", Action: diff.ActionCreate, Content: "package pkg"},
		{Filename: "old.go", Action: diff.ActionDelete, OriginalContent: "gone"},
	}

	out, err := Apply(context.Background(), g, changes, Options{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.True(t, out[0].Written)

	assert.Equal(t, "a\nx\nc\n", readFile(t, root, "main.go"))
	assert.Equal(t, "package pkg\n", readFile(t, root, "pkg/new.go"))
	_, err = os.Stat(filepath.Join(root, "old.go"))
	assert.True(t, os.IsNotExist(err))
}

func TestApply_ConflictWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "edited locally\n")
	g, err := NewGuard(root, Budget{})
	require.NoError(t, err)

	changes := []diff.FileChange{
		{Filename: "new.go", Action: diff.ActionCreate, Content: "x"},
		{Filename: "main.go", Action: diff.ActionModify, OriginalContent: "a", Content: "b"},
	}
	_, err = Apply(context.Background(), g, changes, Options{})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "main.go", ce.Filename)

	_, err = os.Stat(filepath.Join(root, "new.go"))
	assert.True(t, os.IsNotExist(err), "no file may be written when any check fails")

	_, err = Apply(context.Background(), g, changes, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, "b\n", readFile(t, root, "main.go"))
}

func TestApply_DryRun(t *testing.T) {
	root := t.TempDir()
	g, err := NewGuard(root, Budget{})
	require.NoError(t, err)

	out, err := Apply(context.Background(), g, []diff.FileChange{{Filename: "a.go", Action: diff.ActionCreate, Content: "x"}}, Options{DryRun: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].Written)
	_, err = os.Stat(filepath.Join(root, "a.go"))
	assert.True(t, os.IsNotExist(err))
}

func TestCheckBudget(t *testing.T) {
	g, err := NewGuard(t.TempDir(), Budget{MaxFiles: 1, MaxLinesPerFile: 2})
	require.NoError(t, err)

	assert.Error(t, g.CheckBudget([]diff.FileChange{
		{Filename: "a", Action: diff.ActionCreate, Content: "1"},
		{Filename: "b", Action: diff.ActionCreate, Content: "1"},
	}))
	assert.Error(t, g.CheckBudget([]diff.FileChange{
		{Filename: "a", Action: diff.ActionCreate, Content: "1\n2\n3"},
	}))
	assert.NoError(t, g.CheckBudget([]diff.FileChange{
		{Filename: "a", Action: diff.ActionModify, OriginalContent: "1\n2", Content: "1\n3"},
	}))
}

func TestWritePatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePatch(&buf, []diff.FileChange{
		{Filename: "main.go", Action: diff.ActionModify, OriginalContent: "a\nb\nc", Content: "a\nx\nc"},
	}, 3))

	stats, err := diff.ParsePatch(buf.String())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Added)
	assert.Equal(t, 1, stats[0].Removed)
}

func TestVerifyPatch_MatchesDiffEngine(t *testing.T) {
	changes := []diff.FileChange{
		{Filename: "main.go", Action: diff.ActionModify, OriginalContent: "a\nb\nc", Content: "a\nx\nc"},
		{Filename: "new.go", Action: diff.ActionCreate, Content: "one\ntwo"},
		{Filename: "old.go", Action: diff.ActionDelete, OriginalContent: "gone\n"},
		{Filename: "same.go", Action: diff.ActionModify, OriginalContent: "x", Content: "x"},
	}
	var buf bytes.Buffer
	require.NoError(t, WritePatch(&buf, changes, 3))

	assert.NoError(t, VerifyPatch(buf.String(), changes))
}

func TestVerifyPatch_ReportsDisagreement(t *testing.T) {
	changes := []diff.FileChange{{Filename: "new.go", Action: diff.ActionCreate, Content: "one\ntwo"}}
	patch := "--- /dev/null\n+++ b/new.go\n@@ -0,0 +1,3 @@\n+one\n+two\n+\n"

	err := VerifyPatch(patch, changes)
	var mismatch *PatchMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "new.go", mismatch.Filename)
	assert.Equal(t, 2, mismatch.Diff)
	assert.Equal(t, 3, mismatch.Patch)
}
