package apply

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/ChamsBouzaiene/issuefix/internal/diff"
)

// ForbiddenPaths are never written, whatever a solution proposes. Patterns
// match a whole path segment; a trailing * matches a segment prefix.
var ForbiddenPaths = []string{
	".env",
	".env.*",
	".git",
	".github",
	".idea",
	".vscode",
	".gitignore",
	".gitattributes",
	"go.sum",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"node_modules",
	"vendor",
	"venv",
	".venv",
	".DS_Store",
}

// Budget limits how large a change set may be applied. Zero fields are
// unlimited.
type Budget struct {
	MaxFiles        int
	MaxTotalLines   int
	MaxLinesPerFile int
}

// DefaultBudget is used by `solution apply` unless overridden.
var DefaultBudget = Budget{MaxFiles: 50, MaxTotalLines: 5000}

// Guard decides whether a repo-relative path may be written.
type Guard struct {
	root    string
	ignore  *gitignore.GitIgnore
	budget  Budget
	allowed []string
}

// NewGuard loads root/.gitignore, if present, plus extra ignore lines.
func NewGuard(root string, budget Budget, extraIgnores ...string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repo root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("repo root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repo root %s is not a directory", abs)
	}

	var lines []string
	if data, err := os.ReadFile(filepath.Join(abs, ".gitignore")); err == nil {
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	lines = append(lines, extraIgnores...)

	return &Guard{
		root:   abs,
		ignore: gitignore.CompileIgnoreLines(lines...),
		budget: budget,
	}, nil
}

// AllowPrefixes restricts writes to paths under one of prefixes.
func (g *Guard) AllowPrefixes(prefixes ...string) {
	g.allowed = append(g.allowed, prefixes...)
}

// Resolve checks rel and returns the absolute path to write.
func (g *Guard) Resolve(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("path %s is absolute, must be relative to repo root", rel)
	}
	clean := filepath.ToSlash(filepath.Clean(rel))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path %s escapes the repo root", rel)
	}
	if pat, ok := forbidden(clean); ok {
		return "", fmt.Errorf("path %s matches forbidden pattern: %s", rel, pat)
	}
	if g.ignore.MatchesPath(clean) {
		return "", fmt.Errorf("path %s is gitignored", rel)
	}
	if len(g.allowed) > 0 && !hasPrefix(clean, g.allowed) {
		return "", fmt.Errorf("path %s does not match any allowed prefix: %v", rel, g.allowed)
	}
	return filepath.Join(g.root, filepath.FromSlash(clean)), nil
}

// CheckBudget rejects change sets that exceed the budget.
func (g *Guard) CheckBudget(changes []diff.FileChange) error {
	b := g.budget
	if b.MaxFiles > 0 && len(changes) > b.MaxFiles {
		return fmt.Errorf("solution touches %d files, max is %d", len(changes), b.MaxFiles)
	}
	total := 0
	for _, fc := range changes {
		r := diff.ComputeChange(fc)
		n := r.Added + r.Removed
		if b.MaxLinesPerFile > 0 && n > b.MaxLinesPerFile {
			return fmt.Errorf("solution changes %d lines in %s, max is %d per file", n, fc.Filename, b.MaxLinesPerFile)
		}
		total += n
	}
	if b.MaxTotalLines > 0 && total > b.MaxTotalLines {
		return fmt.Errorf("solution changes %d lines, max is %d", total, b.MaxTotalLines)
	}
	return nil
}

func forbidden(clean string) (string, bool) {
	for _, seg := range strings.Split(strings.ToLower(clean), "/") {
		for _, pat := range ForbiddenPaths {
			p := strings.ToLower(pat)
			if strings.HasSuffix(p, "*") {
				if strings.HasPrefix(seg, strings.TrimSuffix(p, "*")) {
					return pat, true
				}
			} else if seg == p {
				return pat, true
			}
		}
	}
	return "", false
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, filepath.ToSlash(p)) {
			return true
		}
	}
	return false
}
