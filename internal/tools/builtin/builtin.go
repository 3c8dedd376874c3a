// Package builtin provides the free utility tools: date and time lookup,
// arithmetic evaluation, web search, and account balance and report
// queries. Builtin tools never charge credits and never require
// confirmation.
package builtin

import (
	"context"

	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// AccountReader answers the account queries. The credit ledger and the
// backend reporting API satisfy this at wiring time.
type AccountReader interface {
	// Balance returns the principal's current credit balance.
	Balance(ctx context.Context, principalID string) (int, error)

	// Reports returns campaign performance reports for the principal.
	Reports(ctx context.Context, principalID string, params map[string]any) (any, error)
}

// Options configures the builtin tool set.
type Options struct {
	// Search performs web searches. Nil disables the web_search tool.
	Search *SearchClient

	// Account answers get_balance and get_reports. Nil disables both.
	Account AccountReader
}

// RegisterAll registers every builtin tool into the registry.
func RegisterAll(reg *tools.Registry, opts Options) error {
	if err := reg.Register(datetimeDescriptor(), datetimeHandler); err != nil {
		return err
	}
	if err := reg.Register(calculatorDescriptor(), calculatorHandler); err != nil {
		return err
	}
	if opts.Search != nil {
		if err := reg.Register(searchDescriptor(), searchHandler(opts.Search)); err != nil {
			return err
		}
	}
	if opts.Account != nil {
		if err := reg.Register(balanceDescriptor(), balanceHandler(opts.Account)); err != nil {
			return err
		}
		if err := reg.Register(reportsDescriptor(), reportsHandler(opts.Account)); err != nil {
			return err
		}
	}
	return nil
}

func balanceDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "get_balance",
		Description: "Get the user's current credit balance.",
		Category:    models.CategoryBuiltin,
		Returns:     "Current credit balance as an integer.",
	}
}

func balanceHandler(account AccountReader) tools.Handler {
	return func(ctx context.Context, _ map[string]any, tc tools.Context) (any, error) {
		balance, err := account.Balance(ctx, tc.Principal.ID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"balance": balance}, nil
	}
}

func reportsDescriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "get_reports",
		Description: "Get campaign performance reports (impressions, clicks, spend, conversions).",
		Category:    models.CategoryBuiltin,
		Parameters: []models.ParamSpec{
			{Name: "campaign_id", Type: models.ParamString, Description: "Limit the report to one campaign."},
			{Name: "date_range", Type: models.ParamString, Default: "last_7_days",
				Enum:        []string{"today", "yesterday", "last_7_days", "last_30_days", "this_month"},
				Description: "Reporting window."},
		},
		Returns: "Campaign metrics rows for the requested window.",
	}
}

func reportsHandler(account AccountReader) tools.Handler {
	return func(ctx context.Context, params map[string]any, tc tools.Context) (any, error) {
		return account.Reports(ctx, tc.Principal.ID, params)
	}
}
