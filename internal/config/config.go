package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every environment-derived setting codetrace needs, grouped
// the way the original teacher's config grouped server/database/cache
// concerns, regrouped here around one investigation run.
type Config struct {
	Run    RunConfig
	LLM    LLMConfig
	MCP    MCPConfig
	Valkey ValkeyConfig
}

// RunConfig holds the batch-mode investigation parameters. Flags passed on
// the command line override these defaults; CLI-only values (repo path,
// target) have no environment equivalent and are never read here.
type RunConfig struct {
	OutDir            string
	MaxIters          int
	HintFile          string
	ExtraPaths        []string
	ExplanationPrompt string
}

// LLMConfig describes the OpenAI-compatible chat completions endpoint used
// by both the planner and synthesizer agents.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	PlannerModel    string
	SynthesizerModel string
}

// MCPConfig controls the optional `-serve` mode that exposes the
// resolver/evidence engine as MCP tools instead of running one batch
// investigation.
type MCPConfig struct {
	Addr    string
	Enabled bool
}

// ValkeyConfig is the optional session cache backing `-serve` mode.
// Absence of a reachable Valkey instance degrades to sessionless tool
// calls rather than failing startup.
type ValkeyConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads every setting from the environment, applying the same
// fallback defaults the teacher's getEnv/getEnvInt/getEnvBool pattern
// used. The one required setting is the LLM API key.
func Load() (*Config, error) {
	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	cfg := &Config{
		Run: RunConfig{
			OutDir:            getEnv("CODETRACE_OUT_DIR", "./_agent_out"),
			MaxIters:          getEnvInt("CODETRACE_MAX_ITERS", 3),
			HintFile:          getEnv("CODETRACE_HINT_FILE", ""),
			ExplanationPrompt: getEnv("CODETRACE_EXPLANATION_PROMPT", ""),
		},
		LLM: LLMConfig{
			APIKey:           apiKey,
			BaseURL:          getEnv("LLM_BASE_URL", ""),
			PlannerModel:     getEnv("LLM_PLANNER_MODEL", ""),
			SynthesizerModel: getEnv("LLM_SYNTHESIZER_MODEL", ""),
		},
		MCP: MCPConfig{
			Addr:    getEnv("MCP_ADDR", ":8090"),
			Enabled: getEnvBool("MCP_ENABLED", false),
		},
		Valkey: ValkeyConfig{
			Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
			Password: getEnv("VALKEY_PASSWORD", ""),
			DB:       getEnvInt("VALKEY_DB", 0),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
