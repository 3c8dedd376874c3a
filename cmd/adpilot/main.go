// Package main provides the CLI entry point for the AdPilot agent service.
//
// AdPilot is a ReAct-style agent kernel for advertising campaign management.
// It plans with an LLM, gates risky actions behind human confirmation, runs
// tools against an external campaign backend, and streams its progress as
// server-sent events.
//
// # Basic Usage
//
// Start the server:
//
//	adpilot serve --config adpilot.yaml
//
// # Environment Variables
//
//   - SESSION_STORE_URL: Redis connection URL for session memory
//   - OPENAI_API_KEY / ANTHROPIC_API_KEY / GEMINI_API_KEY: model providers
//   - BACKEND_API_URL + BACKEND_SERVICE_TOKEN: campaign backend
//   - CREDIT_LEDGER_URL + CREDIT_LEDGER_TOKEN: credit ledger service
//   - OBJECT_STORE_URL + credentials: S3-compatible media store
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/adpilot-ai/adpilot/internal/backoff"
	"github.com/adpilot-ai/adpilot/internal/config"
	"github.com/adpilot-ai/adpilot/internal/credit"
	"github.com/adpilot-ai/adpilot/internal/evaluator"
	"github.com/adpilot-ai/adpilot/internal/executor"
	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/internal/gateway"
	"github.com/adpilot-ai/adpilot/internal/kernel"
	"github.com/adpilot-ai/adpilot/internal/llm"
	"github.com/adpilot-ai/adpilot/internal/objectstore"
	"github.com/adpilot-ai/adpilot/internal/observability"
	"github.com/adpilot-ai/adpilot/internal/planner"
	"github.com/adpilot-ai/adpilot/internal/session"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/internal/tools/aiassist"
	"github.com/adpilot-ai/adpilot/internal/tools/backendproxy"
	"github.com/adpilot-ai/adpilot/internal/tools/builtin"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// sysexits-style codes for the CLI wrapper.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 64
	exitUnavailable = 69
	exitIO          = 74
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(exitCode(err))
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "adpilot",
		Short:        "AdPilot - AI agent for advertising campaign management",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.AddCommand(buildServeCmd(), buildConfigCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML or JSON5)")
	return cmd
}

func buildConfigCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate the configuration and print the effective values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: listening on %s:%d, session store %s\n",
				cfg.Server.Host, cfg.Server.Port, cfg.SessionStore.URL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML or JSON5)")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, err
		}
		return nil, fault.Wrap(fault.CodeValidation, err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	promReg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promReg)

	store, locker, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}

	var ledger credit.Ledger
	if cfg.Ledger.URL != "" {
		ledger = credit.NewHTTPLedger(cfg.Ledger.URL, cfg.Ledger.Token, cfg.Ledger.Timeout)
	} else {
		logger.Warn("no credit ledger configured, using in-memory ledger")
		ledger = credit.NewMemoryLedger(nil)
	}
	gate := credit.NewGate(ledger, logger)

	var backend *backendproxy.Client
	if cfg.Backend.URL != "" {
		backend = backendproxy.NewClient(cfg.Backend.URL, cfg.Backend.ServiceToken, logger)
	}

	var objects objectstore.Store
	if cfg.ObjectStore.Bucket != "" {
		objects, err = objectstore.NewS3Store(ctx, objectstore.Config{
			Bucket:          cfg.ObjectStore.Bucket,
			Region:          cfg.ObjectStore.Region,
			Endpoint:        cfg.ObjectStore.Endpoint,
			AccessKeyID:     cfg.ObjectStore.AccessKey,
			SecretAccessKey: cfg.ObjectStore.SecretKey,
			PublicBaseURL:   cfg.ObjectStore.PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("object store: %w", err)
		}
	}

	registry, err := buildRegistry(providers, ledger, backend, objects)
	if err != nil {
		return err
	}
	logger.Info("tool registry built", "tools", len(registry.Descriptors()))

	plan := planner.New(providers, registry, logger)
	eval := evaluator.New(providers, registry, logger, evaluator.Config{
		BudgetThreshold:  cfg.Agent.BudgetThreshold,
		ClarityThreshold: cfg.Agent.ClarityThreshold,
	})
	exec := executor.New(registry, gate, store, metrics, logger, executor.Config{
		MaxRetries:  cfg.Agent.MaxRetries,
		CallTimeout: cfg.Agent.CallTimeout,
		Policy:      backoff.Default(),
	})
	k := kernel.New(plan, eval, exec, store, locker, providers, metrics, logger, kernel.Config{
		MaxIterations:    cfg.Agent.MaxIterations,
		MaxWallTime:      cfg.Agent.MaxWallClock,
		IterationTimeout: cfg.Agent.IterationTimeout,
		HistoryLimit:     cfg.SessionStore.HistoryLimit,
		EnableReflection: cfg.Agent.ReflectionEnabled,
	})

	server := gateway.NewServer(k, promReg, logger)
	if err := server.Start(gateway.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}); err != nil {
		return fault.Wrap(fault.CodeTransport, err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	return nil
}

func buildSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, session.Locker, error) {
	limits := session.Limits{
		HistoryLimit:     cfg.SessionStore.HistoryLimit,
		HistoryTTL:       cfg.SessionStore.HistoryTTL,
		StateTTL:         cfg.SessionStore.StateTTL,
		ObservationLimit: cfg.SessionStore.ObservationLimit,
		LockTTL:          cfg.SessionStore.LockTTL,
		LockTimeout:      cfg.SessionStore.LockTimeout,
	}

	if cfg.SessionStore.URL == "memory://" {
		logger.Warn("using in-memory session store, sessions will not survive restarts")
		return session.NewMemoryStore(limits), session.NewMemoryLocker(limits.LockTimeout), nil
	}

	opt, err := redis.ParseURL(cfg.SessionStore.URL)
	if err != nil {
		return nil, nil, fault.Wrap(fault.CodeValidation, err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, nil, fault.Wrap(fault.CodeBackendConnection, fmt.Errorf("session store: %w", err))
	}

	return session.NewRedisStore(client, limits, logger),
		session.NewRedisLocker(client, limits, logger), nil
}

func buildProviders(ctx context.Context, cfg *config.Config) (*llm.Registry, error) {
	registry := llm.NewRegistry(cfg.Providers.DefaultText, cfg.Providers.DefaultImage)
	registered := 0

	if key := cfg.Providers.OpenAI.APIKey; key != "" {
		registry.Register(llm.NewOpenAIProvider(key, cfg.Providers.OpenAI.Model, cfg.Providers.OpenAI.BaseURL), cfg.Providers.OpenAI.Model)
		registered++
	}
	if key := cfg.Providers.Anthropic.APIKey; key != "" {
		registry.Register(llm.NewAnthropicProvider(key, cfg.Providers.Anthropic.Model, cfg.Providers.Anthropic.BaseURL), cfg.Providers.Anthropic.Model)
		registered++
	}
	if key := cfg.Providers.Gemini.APIKey; key != "" {
		gemini, err := llm.NewGeminiProvider(ctx, key, cfg.Providers.Gemini.Model)
		if err != nil {
			return nil, err
		}
		registry.Register(gemini, cfg.Providers.Gemini.Model)
		registered++
	}

	if registered == 0 {
		return nil, fault.New(fault.CodeValidation, "no llm provider configured, set at least one provider api key")
	}
	return registry, nil
}

// accountReader answers balance queries from the credit ledger and report
// queries from the campaign backend.
type accountReader struct {
	ledger  credit.Ledger
	backend *backendproxy.Client
}

func (a *accountReader) Balance(ctx context.Context, principalID string) (int, error) {
	return a.ledger.Balance(ctx, principalID)
}

func (a *accountReader) Reports(ctx context.Context, principalID string, params map[string]any) (any, error) {
	if a.backend == nil {
		return nil, fault.New(fault.CodeBackendConnection, "no campaign backend configured")
	}
	return a.backend.Reports(ctx, principalID, params)
}

func buildRegistry(providers *llm.Registry, ledger credit.Ledger,
	backend *backendproxy.Client, objects objectstore.Store) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	if err := builtin.RegisterAll(registry, builtin.Options{
		Search:  builtin.NewSearchClient(""),
		Account: &accountReader{ledger: ledger, backend: backend},
	}); err != nil {
		return nil, err
	}
	if err := aiassist.RegisterAll(registry, aiassist.Options{
		Providers: providers,
		Objects:   objects,
	}); err != nil {
		return nil, err
	}
	if backend != nil {
		if err := backendproxy.RegisterAll(registry, backend); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return exitIO
	}
	switch fault.From(err).Code {
	case fault.CodeValidation:
		return exitUsage
	case fault.CodeTransport, fault.CodeBackendConnection, fault.CodeBackendTimeout:
		return exitUnavailable
	}
	return exitFailure
}
