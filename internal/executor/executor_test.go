package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adpilot-ai/adpilot/internal/backoff"
	"github.com/adpilot-ai/adpilot/internal/credit"
	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/internal/session"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

func fastConfig() Config {
	return Config{
		MaxRetries:  3,
		CallTimeout: time.Second,
		Policy:      backoff.Policy{Base: time.Millisecond, Cap: time.Millisecond, Factor: 1},
	}
}

func testContext() tools.Context {
	return tools.Context{
		Principal:   models.Principal{ID: "user-1"},
		SessionID:   "sess-1",
		OperationID: "op-1",
	}
}

func newExecutor(t *testing.T, reg *tools.Registry, balances map[string]int) (*Executor, *session.MemoryStore, *credit.MemoryLedger) {
	t.Helper()
	store := session.NewMemoryStore(session.DefaultLimits())
	ledger := credit.NewMemoryLedger(balances)
	gate := credit.NewGate(ledger, nil)
	return New(reg, gate, store, nil, nil, fastConfig()), store, ledger
}

func TestExecuteSuccessChargesExactCost(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(models.ToolDescriptor{
		Name: "generate_ad_copy", Description: "copy",
		CreditCost: models.CostOf(3),
	}, func(context.Context, map[string]any, tools.Context) (any, error) {
		return map[string]any{"variants": []string{"a"}}, nil
	})
	exec, store, ledger := newExecutor(t, reg, map[string]int{"user-1": 10})

	obs, err := exec.Execute(context.Background(),
		models.PlanStep{Action: "generate_ad_copy"}, testContext())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !obs.OK {
		t.Fatalf("observation = %+v, want ok", obs)
	}
	if obs.CreditCharged != 3 {
		t.Errorf("CreditCharged = %d, want 3", obs.CreditCharged)
	}
	if balance, _ := ledger.Balance(context.Background(), "user-1"); balance != 7 {
		t.Errorf("balance = %d, want 7", balance)
	}

	recorded, _ := store.LoadObservations(context.Background(), "sess-1", 0)
	if len(recorded) != 1 || recorded[0].Tool != "generate_ad_copy" {
		t.Errorf("recorded = %+v, want one observation", recorded)
	}
}

func TestExecuteInsufficientCreditsIsFatal(t *testing.T) {
	invoked := false
	reg := tools.NewRegistry()
	reg.MustRegister(models.ToolDescriptor{
		Name: "generate_page_content_tool", Description: "page",
		CreditCost: models.CostOf(10),
	}, func(context.Context, map[string]any, tools.Context) (any, error) {
		invoked = true
		return nil, nil
	})
	exec, store, _ := newExecutor(t, reg, map[string]int{"user-1": 2})

	_, err := exec.Execute(context.Background(),
		models.PlanStep{Action: "generate_page_content_tool"}, testContext())
	var f *fault.Fault
	if !errors.As(err, &f) || f.Code != fault.CodeInsufficientCredits {
		t.Fatalf("error = %v, want insufficient credits fault", err)
	}
	if f.Details["required"] != 10 || f.Details["available"] != 2 {
		t.Errorf("details = %v", f.Details)
	}
	if invoked {
		t.Error("handler must not run after a failed pre-check")
	}
	if recorded, _ := store.LoadObservations(context.Background(), "sess-1", 0); len(recorded) != 0 {
		t.Errorf("no observation should be recorded, got %d", len(recorded))
	}
}

func TestExecuteFailureDoesNotCharge(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(models.ToolDescriptor{
		Name: "analyze_competitor", Description: "analyze",
		CreditCost: models.CostOf(5),
	}, func(context.Context, map[string]any, tools.Context) (any, error) {
		return nil, fault.New(fault.CodeModelUnavailable, "model down")
	})
	exec, _, ledger := newExecutor(t, reg, map[string]int{"user-1": 20})

	obs, err := exec.Execute(context.Background(),
		models.PlanStep{Action: "analyze_competitor"}, testContext())
	if err != nil {
		t.Fatalf("Execute() error = %v (tool failure must not be fatal)", err)
	}
	if obs.OK {
		t.Fatal("observation should report failure")
	}
	if obs.CreditCharged != 0 {
		t.Errorf("CreditCharged = %d, want 0", obs.CreditCharged)
	}
	if balance, _ := ledger.Balance(context.Background(), "user-1"); balance != 20 {
		t.Errorf("balance = %d, want untouched 20", balance)
	}
	if obs.Error == nil || obs.Error.Code != int(fault.CodeModelUnavailable) {
		t.Errorf("observation error = %+v", obs.Error)
	}
}

func TestExecuteRetriesTransientFailure(t *testing.T) {
	calls := 0
	reg := tools.NewRegistry()
	reg.MustRegister(models.ToolDescriptor{Name: "get_reports", Description: "reports"},
		func(context.Context, map[string]any, tools.Context) (any, error) {
			calls++
			if calls < 3 {
				return nil, fault.New(fault.CodeBackendTimeout, "slow backend")
			}
			return map[string]any{"rows": 2}, nil
		})
	exec, _, _ := newExecutor(t, reg, nil)

	obs, err := exec.Execute(context.Background(),
		models.PlanStep{Action: "get_reports"}, testContext())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !obs.OK {
		t.Fatalf("observation = %+v, want success after retries", obs)
	}
	if obs.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", obs.Attempts)
	}
}

func TestExecuteNonRetryableFailsFast(t *testing.T) {
	calls := 0
	reg := tools.NewRegistry()
	reg.MustRegister(models.ToolDescriptor{Name: "pause_campaign", Description: "pause"},
		func(context.Context, map[string]any, tools.Context) (any, error) {
			calls++
			return nil, fault.New(fault.CodeValidation, "bad campaign id")
		})
	exec, _, _ := newExecutor(t, reg, nil)

	obs, err := exec.Execute(context.Background(),
		models.PlanStep{Action: "pause_campaign"}, testContext())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if obs.OK || obs.Attempts != 1 {
		t.Errorf("observation = %+v", obs)
	}
}

func TestExecuteUnknownToolIsFatal(t *testing.T) {
	exec, _, _ := newExecutor(t, tools.NewRegistry(), nil)
	_, err := exec.Execute(context.Background(),
		models.PlanStep{Action: "nope"}, testContext())
	if err == nil {
		t.Fatal("unknown tool must propagate as an error")
	}
}

func TestExecuteInvalidParamsBecomeObservation(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(models.ToolDescriptor{
		Name: "calculator", Description: "math",
		Parameters: []models.ParamSpec{
			{Name: "expression", Type: models.ParamString, Required: true},
		},
	}, func(context.Context, map[string]any, tools.Context) (any, error) {
		return nil, nil
	})
	exec, _, _ := newExecutor(t, reg, nil)

	obs, err := exec.Execute(context.Background(),
		models.PlanStep{Action: "calculator", ActionInput: map[string]any{}}, testContext())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if obs.OK {
		t.Fatal("invalid params should fail the observation")
	}
	if obs.Error == nil || obs.Error.Code != int(fault.CodeValidation) {
		t.Errorf("error = %+v, want validation", obs.Error)
	}
}

func TestExecuteLiftsAttachments(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(models.ToolDescriptor{Name: "generate_ad_image", Description: "image"},
		func(context.Context, map[string]any, tools.Context) (any, error) {
			return map[string]any{
				"url": "https://objects.test/a.png",
				"attachments": []models.Attachment{
					{Type: "image", URL: "https://objects.test/a.png"},
				},
			}, nil
		})
	exec, _, _ := newExecutor(t, reg, nil)

	obs, err := exec.Execute(context.Background(),
		models.PlanStep{Action: "generate_ad_image"}, testContext())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(obs.Attachments) != 1 {
		t.Fatalf("attachments = %+v, want 1", obs.Attachments)
	}
	data := obs.Data.(map[string]any)
	if _, present := data["attachments"]; present {
		t.Error("attachments should be lifted out of the data map")
	}
}
