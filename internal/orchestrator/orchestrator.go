// Package orchestrator bootstraps a single investigation run: build the
// index, resolve the target, loop planner→executor until stop or the
// iteration cap, then synthesize. Grounded on orchestrator.py's run()
// and the teacher's internal/ingestion/pipeline.go stage-by-stage
// execution with status persisted after every step.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codetrace-dev/codetrace/internal/agents"
	"github.com/codetrace-dev/codetrace/internal/blackboard"
	"github.com/codetrace-dev/codetrace/internal/evidence"
	"github.com/codetrace-dev/codetrace/internal/index"
	"github.com/codetrace-dev/codetrace/internal/resolve"
	"github.com/codetrace-dev/codetrace/internal/runlog"
	"github.com/codetrace-dev/codetrace/pkg/apierr"
)

// Options configures one run, mirroring the CLI surface in SPEC_FULL §1.4
// (§6 of the original spec).
type Options struct {
	RepoRoot          string
	Target            string
	OutDir            string
	MaxIters          int
	HintFile          string
	ExtraRoots        []string
	ExplanationPrompt string
}

// Result is everything a run produced, for the CLI to report and for
// tests to assert against without re-parsing the written artifacts.
type Result struct {
	Blackboard  *blackboard.Board
	Explanation string
}

// Run executes one full investigation: build the index, bootstrap the
// target, iterate planner→executor up to MaxIters times, then
// synthesize. The blackboard is persisted to outDir/blackboard.json
// after every phase so a crash leaves a readable partial state.
func Run(ctx context.Context, opts Options, planner *agents.Planner, synthesizer *agents.Synthesizer) (*Result, error) {
	if opts.MaxIters <= 0 {
		opts.MaxIters = 3
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	rl, err := runlog.Open(filepath.Join(opts.OutDir, "run.log"))
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer rl.Close()

	rl.Log("starting investigation: target=%s repo=%s", opts.Target, opts.RepoRoot)

	roots := []index.Root{{Path: opts.RepoRoot, Primary: true}}
	for _, extra := range opts.ExtraRoots {
		roots = append(roots, index.Root{Path: extra, Primary: false})
	}
	idx, err := index.NewBuilder().Build(ctx, roots)
	if err != nil {
		return nil, apierr.IndexBuildFailed(err)
	}
	rl.Log("index built: %d symbols across %d roots", len(idx.Symbols), len(roots))

	resolver := resolve.New(idx)
	builder := evidence.New(idx, resolver)
	executor := agents.NewExecutor(idx, resolver, builder, opts.RepoRoot, opts.ExtraRoots)

	board := blackboard.New(opts.RepoRoot, opts.Target)
	board.Log("bootstrap: target=%s", opts.Target)

	hintFile := bootstrapHintFile(opts)
	ev, err := builder.OpenSymbol(opts.Target, hintFile)
	if err != nil {
		board.MarkUnresolved(opts.Target, err.Error())
		rl.Log("bootstrap failed: %v", err)
		persist(board, opts.OutDir, rl)
		return &Result{Blackboard: board}, apierr.TargetNotResolved(opts.Target)
	}
	board.AddEvidence(ev)
	board.State.CurrentFocus = ev.SymbolRef
	rl.LogJSON("blackboard_after_bootstrap", board.State)
	persist(board, opts.OutDir, rl)

	for i := 0; i < opts.MaxIters; i++ {
		board.State.Iterations++
		rl.Log("iteration %d: planning", board.State.Iterations)

		out, err := planner.Plan(ctx, board.State, idx, hintFile)
		if err != nil {
			rl.Log("planner failed: %v", err)
			persist(board, opts.OutDir, rl)
			return &Result{Blackboard: board}, apierr.LLMRequestFailed(err)
		}
		rl.LogJSON("planner_output", out)
		board.ApplyPatch(out.BlackboardPatch)

		if out.Stop {
			board.Log("iteration %d: planner signaled stop (%s)", board.State.Iterations, out.Reason)
			persist(board, opts.OutDir, rl)
			break
		}

		executor.Run(board, out.Actions, hintFile)
		rl.LogJSON("blackboard_after_executor", board.State)
		persist(board, opts.OutDir, rl)
	}

	rl.Log("synthesizing final explanation")
	explanation, err := synthesizer.Synthesize(ctx, board.State)
	if err != nil {
		rl.Log("synthesis failed: %v", err)
		return &Result{Blackboard: board}, apierr.LLMRequestFailed(err)
	}

	if err := os.WriteFile(filepath.Join(opts.OutDir, "final_explanation.md"), []byte(explanation), 0o644); err != nil {
		return nil, apierr.OutputWriteFailed("final_explanation.md", err)
	}
	rl.LogJSON("final_blackboard", board.State)
	persist(board, opts.OutDir, rl)

	return &Result{Blackboard: board, Explanation: explanation}, nil
}

// bootstrapHintFile returns the caller-supplied hint file if any,
// otherwise infers one from the target's first dotted segment: if
// "<first>.py" exists at the repo root, its relative path is used as the
// hint, exactly as orchestrator.py's bootstrap does.
func bootstrapHintFile(opts Options) string {
	if opts.HintFile != "" {
		return opts.HintFile
	}
	i := indexOfDot(opts.Target)
	if i < 0 {
		return ""
	}
	first := opts.Target[:i]
	candidate := first + ".py"
	if _, err := os.Stat(filepath.Join(opts.RepoRoot, candidate)); err == nil {
		return candidate
	}
	return ""
}

func indexOfDot(s string) int {
	for i, r := range s {
		if r == '.' {
			return i
		}
	}
	return -1
}

func persist(board *blackboard.Board, outDir string, rl *runlog.Logger) {
	path := filepath.Join(outDir, "blackboard.json")
	if err := board.Save(path); err != nil {
		rl.Log("failed to persist blackboard: %v", err)
	}
}
