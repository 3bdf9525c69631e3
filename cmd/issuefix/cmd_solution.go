package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
	"github.com/ChamsBouzaiene/issuefix/internal/apply"
	"github.com/ChamsBouzaiene/issuefix/internal/diff"
	"github.com/ChamsBouzaiene/issuefix/internal/progress"
	"github.com/ChamsBouzaiene/issuefix/internal/router"
	"github.com/ChamsBouzaiene/issuefix/internal/stats"
	"github.com/ChamsBouzaiene/issuefix/internal/tui"
)

// savedSolution is the on-disk form written by `generate --save`.
type savedSolution struct {
	IssueID  api.ID       `json:"issueId"`
	Solution api.Solution `json:"solution"`
}

func interactive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newGenerateCmd(get func() *app) *cobra.Command {
	var (
		model string
		save  string
	)
	cmd := &cobra.Command{
		Use:   "generate <issue-id>",
		Short: "Generate a fix for an issue and review the diff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if err := a.router.Require(ctx, "/issues/"+args[0], router.Protected); err != nil {
				return err
			}
			if model == "" {
				model = a.cfg.DefaultModel
			}
			issueID := api.ID(args[0])
			defer a.watchSession()()

			request := func(ctx context.Context) (*api.GenerateResponse, error) {
				return a.client.GenerateSolution(ctx, issueID, model)
			}
			var (
				resp *api.GenerateResponse
				err  error
			)
			if interactive() && !a.out.structured() {
				resp, err = a.generateWithProgress(ctx, request)
			} else {
				resp, err = progress.Run(ctx, progress.GenerationStages, func(s progress.Step) {
					if !s.Done {
						log.Printf("⏳ [%d/%d] %s", s.Index+1, s.Total, s.Label)
					}
				}, request)
			}
			if err != nil {
				return err
			}
			// A generation creates a pending validation and spends credits.
			a.invalidate(ctx, keyValidations, keyIssues)

			sol := resp.Solution
			if save != "" {
				if err := saveSolution(save, savedSolution{IssueID: issueID, Solution: sol}); err != nil {
					return err
				}
				log.Printf("💾 Solution saved to %s", save)
			}
			if a.out.structured() {
				return a.out.emit(resp, nil)
			}
			a.out.line("Credits remaining: %d", resp.Credits.Remaining)
			return a.showSolution(fmt.Sprintf("Issue %s · %s", issueID, sol.AIModel), sol)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model to generate with (default from config)")
	cmd.Flags().StringVar(&save, "save", "", "write the solution to this file for `solution apply`")
	return cmd
}

// generateWithProgress runs the request under the stage animation. Quitting
// the animation cancels the request.
func (a *app) generateWithProgress(ctx context.Context, request func(context.Context) (*api.GenerateResponse, error)) (*api.GenerateResponse, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.NewGenerateModel(progress.GenerationStages, a.styles), tea.WithContext(ctx))
	type result struct {
		resp *api.GenerateResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := progress.Run(ctx, progress.GenerationStages, func(s progress.Step) {
			p.Send(tui.StepMsg(s))
		}, request)
		done <- result{resp, err}
	}()

	final, runErr := p.Run()
	if m, ok := final.(tui.GenerateModel); ok && m.Aborted() {
		cancel()
		<-done
		return nil, context.Canceled
	}
	res := <-done
	if res.err == nil && runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		log.Printf("⚠️  progress display failed: %v", runErr)
	}
	return res.resp, res.err
}

// showSolution renders sol's diff with backend stats preferred where given.
func (a *app) showSolution(title string, sol api.Solution) error {
	local := stats.FromChanges(sol.FilesChanged)
	if sol.ChangeStats != nil {
		if err := stats.Verify(local, *sol.ChangeStats); err != nil {
			log.Printf("⚠️  %v", err)
		}
	}
	summary := stats.Prefer(local, sol.ChangeStats)

	if sol.Analysis != "" {
		a.out.line("%s", a.styles.Header.Render("Analysis"))
		a.out.line("%s\n", sol.Analysis)
	}
	if sol.ProposedSolution != "" {
		a.out.line("%s", a.styles.Header.Render("Proposed solution"))
		a.out.line("%s\n", sol.ProposedSolution)
	}
	if sol.Confidence > 0 {
		a.out.line("Confidence: %.0f%%\n", sol.Confidence*100)
	}
	return a.showDiff(title, sol.FilesChanged, summary)
}

func (a *app) showDiff(title string, files []diff.FileChange, summary stats.ChangeStats) error {
	m := tui.NewDiffModel(title, files, summary, a.styles)
	if !interactive() {
		a.out.line("%s", m.Plain())
		return nil
	}
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func saveSolution(path string, s savedSolution) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func loadSolution(path string) (*savedSolution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read solution: %w", err)
	}
	var s savedSolution
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse solution %s: %w", path, err)
	}
	for _, fc := range s.Solution.FilesChanged {
		if _, err := diff.ParseAction(string(fc.Action)); err != nil {
			return nil, fmt.Errorf("%s: %w", fc.Filename, err)
		}
	}
	return &s, nil
}

func newDiffCmd(get func() *app) *cobra.Command {
	var unified bool
	cmd := &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Show a side-by-side diff of two local files",
		Long: `Show a side-by-side diff of two local files.

Use - for <old> to show <new> as a created file, or - for <new> to show
<old> as deleted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			fc, err := localChange(args[0], args[1])
			if err != nil {
				return err
			}
			if unified {
				out, err := diff.Unified(fc, 3)
				if err != nil {
					return err
				}
				fmt.Fprint(a.out.w, out)
				return nil
			}
			if a.out.structured() {
				return a.out.emit(diff.ComputeChange(fc), nil)
			}
			files := []diff.FileChange{fc}
			return a.showDiff(fc.Filename, files, stats.FromChanges(files))
		},
	}
	cmd.Flags().BoolVarP(&unified, "unified", "u", false, "print a unified diff instead")
	return cmd
}

func localChange(oldPath, newPath string) (diff.FileChange, error) {
	read := func(p string) (string, error) {
		if p == "-" {
			return "", nil
		}
		data, err := os.ReadFile(p)
		return string(data), err
	}
	if oldPath == "-" && newPath == "-" {
		return diff.FileChange{}, fmt.Errorf("at most one side can be -")
	}
	oldContent, err := read(oldPath)
	if err != nil {
		return diff.FileChange{}, err
	}
	newContent, err := read(newPath)
	if err != nil {
		return diff.FileChange{}, err
	}
	fc := diff.FileChange{Filename: newPath, Action: diff.ActionModify, OriginalContent: oldContent, Content: newContent}
	switch {
	case oldPath == "-":
		fc.Action = diff.ActionCreate
	case newPath == "-":
		fc.Filename, fc.Action = oldPath, diff.ActionDelete
	}
	return fc, nil
}

func newSolutionCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solution",
		Short: "Inspect and apply a saved solution",
	}

	show := &cobra.Command{
		Use:   "show <file>",
		Short: "Show a saved solution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			s, err := loadSolution(args[0])
			if err != nil {
				return err
			}
			if a.out.structured() {
				return a.out.emit(s, nil)
			}
			return a.showSolution(fmt.Sprintf("Issue %s", s.IssueID), s.Solution)
		},
	}

	var (
		repo    string
		opts    apply.Options
		patch   bool
		only    []string
		maxFile int
	)
	applyCmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Write a saved solution into a local checkout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			s, err := loadSolution(args[0])
			if err != nil {
				return err
			}
			changes := s.Solution.FilesChanged
			if patch {
				var buf bytes.Buffer
				if err := apply.WritePatch(&buf, changes, 3); err != nil {
					return err
				}
				if err := apply.VerifyPatch(buf.String(), changes); err != nil {
					log.Printf("⚠️  %v", err)
				}
				_, err := buf.WriteTo(a.out.w)
				return err
			}

			budget := apply.DefaultBudget
			budget.MaxLinesPerFile = maxFile
			g, err := apply.NewGuard(repo, budget)
			if err != nil {
				return err
			}
			g.AllowPrefixes(only...)
			outcomes, err := apply.Apply(cmd.Context(), g, changes, opts)
			if err != nil {
				return err
			}
			return a.out.emit(outcomes, func() {
				verb := "Applied"
				if opts.DryRun {
					verb = "Would apply"
				}
				for _, o := range outcomes {
					a.out.line("%s %s %s", verb, o.Action, o.Filename)
				}
				a.out.line("%d file(s).", len(outcomes))
			})
		},
	}
	f := applyCmd.Flags()
	f.StringVar(&repo, "repo", ".", "root of the local checkout")
	f.BoolVar(&opts.DryRun, "dry-run", false, "check every change but write nothing")
	f.BoolVar(&opts.Force, "force", false, "write even if files changed since generation")
	f.BoolVar(&patch, "patch", false, "print a unified patch instead of writing")
	f.StringSliceVar(&only, "only", nil, "restrict writes to these path prefixes")
	f.IntVar(&maxFile, "max-lines-per-file", 0, "reject files changing more lines than this (0: unlimited)")

	cmd.AddCommand(show, applyCmd)
	return cmd
}
