package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valkey-io/valkey-go"

	"github.com/codetrace-dev/codetrace/internal/agents"
	"github.com/codetrace-dev/codetrace/internal/config"
	"github.com/codetrace-dev/codetrace/internal/evidence"
	"github.com/codetrace-dev/codetrace/internal/index"
	"github.com/codetrace-dev/codetrace/internal/llm"
	"github.com/codetrace-dev/codetrace/internal/mcp"
	"github.com/codetrace-dev/codetrace/internal/mcp/tools"
	"github.com/codetrace-dev/codetrace/internal/orchestrator"
	"github.com/codetrace-dev/codetrace/internal/resolve"
	"github.com/codetrace-dev/codetrace/pkg/apierr"
)

// extraRoots collects repeated `-extra-root` flags into a string slice.
type extraRoots []string

func (e *extraRoots) String() string { return strings.Join(*e, ",") }
func (e *extraRoots) Set(v string) error {
	*e = append(*e, v)
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	_ = godotenv.Load(".env")

	var (
		repoRoot  = flag.String("repo", ".", "root of the Python repository to investigate")
		target    = flag.String("target", "", "dotted symbol reference to explain (required unless -serve)")
		outDir    = flag.String("out", "", "directory for run.log/blackboard.json/final_explanation.md (overrides CODETRACE_OUT_DIR)")
		maxIters  = flag.Int("max-iters", 0, "maximum planner/executor iterations (overrides CODETRACE_MAX_ITERS)")
		hintFile  = flag.String("hint-file", "", "relative file path to prefer when resolving the target")
		prompt    = flag.String("prompt", "", "extra guidance appended to the planner/synthesizer system prompts")
		serve     = flag.Bool("serve", false, "start the MCP tool server instead of running one investigation")
	)
	var roots extraRoots
	flag.Var(&roots, "extra-root", "auxiliary repository root to resolve vendored/library symbols against (repeatable)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *serve {
		runServe(ctx, logger, cfg, *repoRoot, []string(roots))
		return
	}

	if *target == "" {
		logger.Error("-target is required unless -serve is set")
		os.Exit(1)
	}

	opts := orchestrator.Options{
		RepoRoot:          *repoRoot,
		Target:            *target,
		OutDir:            cfg.Run.OutDir,
		MaxIters:          cfg.Run.MaxIters,
		HintFile:          cfg.Run.HintFile,
		ExtraRoots:        roots,
		ExplanationPrompt: cfg.Run.ExplanationPrompt,
	}
	if *outDir != "" {
		opts.OutDir = *outDir
	}
	if *maxIters > 0 {
		opts.MaxIters = *maxIters
	}
	if *hintFile != "" {
		opts.HintFile = *hintFile
	}
	if *prompt != "" {
		opts.ExplanationPrompt = *prompt
	}

	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.PlannerModel, cfg.LLM.BaseURL)
	planner, err := agents.NewPlanner(llmClient, opts.ExplanationPrompt)
	if err != nil {
		logger.Error("failed to build planner", slog.String("error", err.Error()))
		os.Exit(1)
	}
	synthClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.SynthesizerModel, cfg.LLM.BaseURL)
	synthesizer := agents.NewSynthesizer(synthClient, opts.ExplanationPrompt)

	result, err := orchestrator.Run(ctx, opts, planner, synthesizer)
	if err != nil {
		if apiErr, ok := err.(*apierr.Error); ok {
			logger.Error("investigation failed", slog.String("code", string(apiErr.Code())), slog.String("error", apiErr.Error()))
			os.Exit(apiErr.ExitCode())
		}
		logger.Error("investigation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println(result.Explanation)
}

// runServe starts the optional `-serve` mode: an MCP server exposing
// open_symbol/hybrid_search/find_usages over Streamable HTTP, backed by
// the same resolver/evidence/search engine the batch orchestrator uses.
func runServe(ctx context.Context, logger *slog.Logger, cfg *config.Config, repoRoot string, roots []string) {
	idxRoots := []index.Root{{Path: repoRoot, Primary: true}}
	for _, r := range roots {
		idxRoots = append(idxRoots, index.Root{Path: r, Primary: false})
	}
	idx, err := index.NewBuilder().Build(ctx, idxRoots)
	if err != nil {
		logger.Error("failed to build index", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("index built", slog.Int("symbols", len(idx.Symbols)))

	resolver := resolve.New(idx)
	builder := evidence.New(idx, resolver)

	var vkClient valkey.Client
	if cfg.MCP.Enabled {
		opts := valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}
		if cfg.Valkey.Password != "" {
			opts.Password = cfg.Valkey.Password
		}
		vkClient, err = valkey.NewClient(opts)
		if err != nil {
			logger.Warn("valkey unavailable, sessions disabled", slog.String("error", err.Error()))
			vkClient = nil
		} else if resp := vkClient.Do(ctx, vkClient.B().Ping().Build()); resp.Error() != nil {
			logger.Warn("valkey ping failed, sessions disabled", slog.String("error", resp.Error().Error()))
			vkClient.Close()
			vkClient = nil
		} else {
			logger.Info("connected to valkey", slog.String("addr", cfg.Valkey.Addr))
		}
	}

	mcpServer := mcp.NewServer(mcp.ServerDeps{ValkeyClient: vkClient, Logger: logger})

	openSymbol := tools.NewOpenSymbolHandler(builder, mcpServer.Session, logger)
	hybridSearch := tools.NewHybridSearchHandler(idx, resolver, builder, repoRoot, mcpServer.Session, logger)
	findUsages := tools.NewFindUsagesHandler(repoRoot, roots, mcpServer.Session, logger)

	sdkServer := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "codetrace", Version: "1.0.0"}, nil)

	sdkmcp.AddTool(sdkServer, &sdkmcp.Tool{
		Name:        "open_symbol",
		Description: "Resolve a dotted symbol reference and return its definition: defining file, line span, source snippet, and outgoing calls.",
	}, tools.WrapHandler[tools.OpenSymbolParams](openSymbol))

	sdkmcp.AddTool(sdkServer, &sdkmcp.Tool{
		Name:        "hybrid_search",
		Description: "Search the repository index and source text for a query, combining indexed qualified-name matches with a plain-text grep.",
	}, tools.WrapHandler[tools.HybridSearchParams](hybridSearch))

	sdkmcp.AddTool(sdkServer, &sdkmcp.Tool{
		Name:        "find_usages",
		Description: "Grep for literal occurrences of the given symbol_ref text across the primary repository and any configured auxiliary roots.",
	}, tools.WrapHandler[tools.FindUsagesParams](findUsages))

	sdkHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return sdkServer },
		&sdkmcp.StreamableHTTPOptions{Stateless: true},
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", sdkHandler)
	mux.Handle("/", sdkHandler)

	httpServer := &http.Server{Addr: cfg.MCP.Addr, Handler: mux}

	go func() {
		logger.Info("MCP server listening", slog.String("addr", cfg.MCP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP HTTP server error", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	logger.Info("MCP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("MCP HTTP shutdown", slog.String("error", err.Error()))
	}
	logger.Info("MCP server stopped")
}
