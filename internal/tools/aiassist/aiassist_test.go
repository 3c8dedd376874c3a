package aiassist

import (
	"context"
	"errors"
	"testing"

	"github.com/adpilot-ai/adpilot/internal/llm"
	"github.com/adpilot-ai/adpilot/internal/objectstore"
	"github.com/adpilot-ai/adpilot/internal/tools"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// fakeTextProvider returns a fixed completion and records requests.
type fakeTextProvider struct {
	response string
	err      error
	lastReq  llm.Request
}

func (p *fakeTextProvider) Name() string { return "fake" }

func (p *fakeTextProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.lastReq = req
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

// fakeImageProvider implements llm.Provider and llm.ImageProvider so the
// registry detects image support.
type fakeImageProvider struct {
	fakeTextProvider
	image []byte
}

func (p *fakeImageProvider) GenerateImage(_ context.Context, prompt, _ string) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.lastReq = llm.Request{System: prompt}
	return p.image, nil
}

func testOptions(p llm.Provider) Options {
	reg := llm.NewRegistry("fake", "fake")
	reg.Register(p, "model-1")
	return Options{Providers: reg, Objects: objectstore.NewMemoryStore()}
}

func testContext() tools.Context {
	return tools.Context{
		Principal: models.Principal{ID: "user-1"},
		SessionID: "sess-1",
	}
}

func TestRegisterAllCatalog(t *testing.T) {
	provider := &fakeImageProvider{}
	reg := tools.NewRegistry()
	if err := RegisterAll(reg, testOptions(provider)); err != nil {
		t.Fatalf("RegisterAll() error = %v", err)
	}

	costs := map[string]int{
		"generate_ad_copy":           3,
		"optimize_ad_copy":           2,
		"suggest_targeting":          2,
		"analyze_performance":        3,
		"analyze_competitor":         5,
		"generate_page_content_tool": 10,
		"translate_content":          2,
		"generate_ad_image":          8,
	}
	for name, cost := range costs {
		tool, ok := reg.Lookup(name)
		if !ok {
			t.Fatalf("tool %q not registered", name)
		}
		if got := tool.Descriptor.Cost(); got != cost {
			t.Errorf("%s cost = %d, want %d", name, got, cost)
		}
		if tool.Descriptor.Category != models.CategoryAIAssisted {
			t.Errorf("%s category = %q", name, tool.Descriptor.Category)
		}
	}
}

func TestDescriptorParamsFromArgStructs(t *testing.T) {
	params := adCopyDescriptor().Parameters
	if len(params) != 4 {
		t.Fatalf("generate_ad_copy params = %d, want 4", len(params))
	}
	if params[0].Name != "product" || !params[0].Required || params[0].Type != models.ParamString {
		t.Errorf("params[0] = %+v, want required string product", params[0])
	}
	if params[1].Name != "style" || len(params[1].Enum) != 5 {
		t.Errorf("params[1] = %+v, want style with 5 enum values", params[1])
	}
	if params[3].Name != "variants" || params[3].Type != models.ParamInteger || params[3].Default != 3 {
		t.Errorf("params[3] = %+v, want integer variants defaulting to 3", params[3])
	}

	params = performanceDescriptor().Parameters
	if params[0].Name != "metrics" || params[0].Type != models.ParamObject || !params[0].Required {
		t.Errorf("metrics spec = %+v, want required object", params[0])
	}

	params = pageContentDescriptor().Parameters
	if params[3].Name != "language" || params[3].Default != "English" {
		t.Errorf("language spec = %+v, want default English", params[3])
	}
}

func TestAdCopyHandler(t *testing.T) {
	provider := &fakeTextProvider{response: `{
		"variants": [
			{"headline": "Run Faster", "body": "Shoes built for speed.", "cta": "Shop now"},
			{"headline": "Go Further", "body": "Comfort for every mile.", "cta": "Learn more"}
		]
	}`}
	handler := adCopyHandler(testOptions(provider))

	out, err := handler(context.Background(),
		map[string]any{"product": "running shoes", "style": "casual"}, testContext())
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	result := out.(struct {
		Variants []AdVariant `json:"variants"`
	})
	if len(result.Variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(result.Variants))
	}
	if result.Variants[0].Headline != "Run Faster" {
		t.Errorf("headline = %q", result.Variants[0].Headline)
	}
	if !provider.lastReq.ForceJSON {
		t.Error("request should force JSON")
	}
}

func TestHandlerPropagatesModelError(t *testing.T) {
	wantErr := errors.New("model exploded")
	provider := &fakeTextProvider{err: wantErr}
	handler := targetingHandler(testOptions(provider))

	_, err := handler(context.Background(), map[string]any{"product": "x"}, testContext())
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
}

func TestAdImageHandlerStoresObject(t *testing.T) {
	provider := &fakeImageProvider{image: []byte("png-data")}
	opts := testOptions(provider)
	store := opts.Objects.(*objectstore.MemoryStore)
	handler := adImageHandler(opts)

	out, err := handler(context.Background(),
		map[string]any{"prompt": "shoes on a track", "style": "photo"}, testContext())
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	m := out.(map[string]any)
	url, _ := m["url"].(string)
	if url == "" {
		t.Fatal("missing url in result")
	}
	if store.Len() != 1 {
		t.Errorf("stored %d objects, want 1", store.Len())
	}
	attachments := m["attachments"].([]models.Attachment)
	if len(attachments) != 1 || attachments[0].Type != "image" {
		t.Errorf("attachments = %+v", attachments)
	}
}
