package main

import (
	"context"
	"io/fs"
	"testing"

	"github.com/adpilot-ai/adpilot/internal/config"
	"github.com/adpilot-ai/adpilot/internal/credit"
	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/internal/llm"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"path error", &fs.PathError{Op: "open", Path: "missing.yaml", Err: fs.ErrNotExist}, exitIO},
		{"validation", fault.New(fault.CodeValidation, "bad config"), exitUsage},
		{"backend down", fault.New(fault.CodeBackendConnection, "refused"), exitUnavailable},
		{"generic", fault.New(fault.CodeInternal, "boom"), exitFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBuildProvidersRequiresAKey(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.OpenAI.APIKey = ""
	cfg.Providers.Anthropic.APIKey = ""
	cfg.Providers.Gemini.APIKey = ""

	if _, err := buildProviders(context.Background(), cfg); err == nil {
		t.Fatal("expected an error with no provider keys")
	}
}

func TestBuildRegistryToolSets(t *testing.T) {
	providers := llm.NewRegistry("openai", "openai")
	ledger := credit.NewMemoryLedger(nil)

	registry, err := buildRegistry(providers, ledger, nil, nil)
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}

	names := map[string]bool{}
	for _, d := range registry.Descriptors() {
		names[d.Name] = true
	}

	for _, want := range []string{"datetime", "calculator", "web_search", "get_balance", "generate_ad_copy", "suggest_targeting"} {
		if !names[want] {
			t.Errorf("missing tool %s", want)
		}
	}
	// Backend tools require a configured backend client.
	if names["create_campaign"] {
		t.Error("create_campaign registered without a backend")
	}
	// Image generation requires an object store.
	if names["generate_ad_image"] {
		t.Error("generate_ad_image registered without an object store")
	}
}
