package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

func nopHandler(_ context.Context, _ map[string]any, _ Context) (any, error) {
	return "ok", nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	desc := models.ToolDescriptor{
		Name:        "datetime",
		Description: "Current date and time",
		Category:    models.CategoryBuiltin,
	}
	if err := r.Register(desc, nopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tool, ok := r.Lookup("datetime")
	if !ok {
		t.Fatal("Lookup() did not find registered tool")
	}
	if tool.Descriptor.Category != models.CategoryBuiltin {
		t.Errorf("category = %q, want builtin", tool.Descriptor.Category)
	}
	if _, ok := r.Lookup("nope"); ok {
		t.Error("Lookup() found unregistered tool")
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	desc := models.ToolDescriptor{Name: "calculator", Description: "math"}
	if err := r.Register(desc, nopHandler); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	err := r.Register(desc, nopHandler)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("second Register() error = %v, want duplicate error", err)
	}
}

func TestRegisterRejectsInvalidSchema(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name string
		desc models.ToolDescriptor
	}{
		{
			name: "empty tool name",
			desc: models.ToolDescriptor{Name: "  "},
		},
		{
			name: "unknown param type",
			desc: models.ToolDescriptor{
				Name:       "bad",
				Parameters: []models.ParamSpec{{Name: "x", Type: "decimal"}},
			},
		},
		{
			name: "enum on non-string",
			desc: models.ToolDescriptor{
				Name:       "bad2",
				Parameters: []models.ParamSpec{{Name: "x", Type: models.ParamInteger, Enum: []string{"a"}}},
			},
		},
		{
			name: "unnamed param",
			desc: models.ToolDescriptor{
				Name:       "bad3",
				Parameters: []models.ParamSpec{{Type: models.ParamString}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Register(tt.desc, nopHandler); err == nil {
				t.Error("Register() should reject invalid descriptor")
			}
		})
	}
}

func TestDescriptorsPreserveOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		if err := r.Register(models.ToolDescriptor{Name: n, Description: n}, nopHandler); err != nil {
			t.Fatalf("Register(%q) error = %v", n, err)
		}
	}
	descs := r.Descriptors()
	if len(descs) != len(names) {
		t.Fatalf("Descriptors() returned %d, want %d", len(descs), len(names))
	}
	for i, n := range names {
		if descs[i].Name != n {
			t.Errorf("Descriptors()[%d] = %q, want %q", i, descs[i].Name, n)
		}
	}
}

func registerSample(t *testing.T) *Tool {
	t.Helper()
	r := NewRegistry()
	desc := models.ToolDescriptor{
		Name:        "generate_ad_copy",
		Description: "Generate ad copy",
		Category:    models.CategoryAIAssisted,
		CreditCost:  models.CostOf(3),
		Parameters: []models.ParamSpec{
			{Name: "product", Type: models.ParamString, Required: true},
			{Name: "style", Type: models.ParamString, Enum: []string{"professional", "casual", "urgent"}},
			{Name: "variants", Type: models.ParamInteger, Default: 3},
		},
	}
	if err := r.Register(desc, nopHandler); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	tool, _ := r.Lookup("generate_ad_copy")
	return tool
}

func TestPrepareAppliesDefaults(t *testing.T) {
	tool := registerSample(t)
	params, err := tool.Prepare(map[string]any{"product": "running shoes"})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if params["variants"] != 3 {
		t.Errorf("variants = %v, want default 3", params["variants"])
	}
}

func TestPrepareCoercesTypes(t *testing.T) {
	tool := registerSample(t)
	params, err := tool.Prepare(map[string]any{
		"product":  "shoes",
		"variants": "5",
	})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if params["variants"] != int64(5) {
		t.Errorf("variants = %v (%T), want int64(5)", params["variants"], params["variants"])
	}

	params, err = tool.Prepare(map[string]any{
		"product":  "shoes",
		"variants": float64(4),
	})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if params["variants"] != int64(4) {
		t.Errorf("variants = %v (%T), want int64(4)", params["variants"], params["variants"])
	}
}

func TestPrepareRejectsBadEnum(t *testing.T) {
	tool := registerSample(t)
	_, err := tool.Prepare(map[string]any{
		"product": "shoes",
		"style":   "sarcastic",
	})
	if err == nil {
		t.Fatal("Prepare() should reject value outside the enum")
	}
	var f *fault.Fault
	if !errors.As(err, &f) || f.Code != fault.CodeValidation {
		t.Errorf("error = %v, want fault code %d", err, fault.CodeValidation)
	}
}

func TestPrepareRejectsMissingRequired(t *testing.T) {
	tool := registerSample(t)
	if _, err := tool.Prepare(map[string]any{"style": "casual"}); err == nil {
		t.Fatal("Prepare() should reject missing required parameter")
	}
}

func TestMissingRequired(t *testing.T) {
	tool := registerSample(t)
	if got := tool.MissingRequired(map[string]any{}); got != "product" {
		t.Errorf("MissingRequired() = %q, want product", got)
	}
	if got := tool.MissingRequired(map[string]any{"product": "   "}); got != "product" {
		t.Errorf("MissingRequired() on blank string = %q, want product", got)
	}
	if got := tool.MissingRequired(map[string]any{"product": "shoes"}); got != "" {
		t.Errorf("MissingRequired() = %q, want empty", got)
	}
}

func TestCatalogPrompt(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(models.ToolDescriptor{
		Name:        "generate_ad_image",
		Description: "Generate an ad image",
		CreditCost:  models.CostOf(8),
		Parameters: []models.ParamSpec{
			{Name: "prompt", Type: models.ParamString, Required: true, Description: "Image description"},
		},
	}, nopHandler)

	prompt := r.CatalogPrompt()
	for _, want := range []string{"generate_ad_image", "costs 8 credits", "prompt (string, required)"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("CatalogPrompt() missing %q:\n%s", want, prompt)
		}
	}
}

func TestParamsFromStruct(t *testing.T) {
	type args struct {
		Product string `json:"product" jsonschema:"required,description=Product to advertise"`
		Tone    string `json:"tone,omitempty" jsonschema:"enum=professional,enum=casual"`
		Count   int    `json:"count,omitempty" jsonschema:"default=3"`
	}
	specs, err := ParamsFromStruct(&args{})
	if err != nil {
		t.Fatalf("ParamsFromStruct() error = %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3", len(specs))
	}
	if specs[0].Name != "product" || !specs[0].Required {
		t.Errorf("specs[0] = %+v, want required product", specs[0])
	}
	if specs[1].Name != "tone" || len(specs[1].Enum) != 2 {
		t.Errorf("specs[1] = %+v, want tone with 2 enum values", specs[1])
	}
	if specs[2].Type != models.ParamInteger {
		t.Errorf("specs[2].Type = %q, want integer", specs[2].Type)
	}
	if specs[2].Default != 3 {
		t.Errorf("specs[2].Default = %v (%T), want 3", specs[2].Default, specs[2].Default)
	}
}
