// Package extractiontest provides a configurable in-memory stand-in for the
// remote extraction service, for tests.
package extractiontest

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/docuflow/internal/extraction"
)

// Fake implements extraction.Service. Each operation delegates to the
// corresponding Func field when set, otherwise returns an empty success.
// Calls records operation names in order.
type Fake struct {
	mu    sync.Mutex
	calls []string

	AnalyzeFunc  func(ctx context.Context, req extraction.AnalyzeRequest) (*extraction.AnalyzeResponse, error)
	GenerateFunc func(ctx context.Context, req extraction.GenerateSchemaRequest) (*extraction.GenerateSchemaResponse, error)
	TemplateFunc func(ctx context.Context, req extraction.GetTemplateRequest) (*extraction.GetTemplateResponse, error)
	ListFunc     func(ctx context.Context) (*extraction.ListTemplatesResponse, error)
	ExtractFunc  func(ctx context.Context, req extraction.ExtractRequest) (*extraction.ExtractResponse, error)
	SaveFunc     func(ctx context.Context, req extraction.SaveRequest) (*extraction.SaveResponse, error)
	ExportFunc   func(ctx context.Context, jobID string) ([]byte, error)
}

var _ extraction.Service = (*Fake)(nil)

func (f *Fake) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

// Calls returns the operations invoked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times op was invoked.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *Fake) AnalyzeFields(ctx context.Context, req extraction.AnalyzeRequest) (*extraction.AnalyzeResponse, error) {
	f.record("analyzeFields")
	if f.AnalyzeFunc != nil {
		return f.AnalyzeFunc(ctx, req)
	}
	return &extraction.AnalyzeResponse{Success: true, SessionID: "session-1"}, nil
}

func (f *Fake) GenerateSchema(ctx context.Context, req extraction.GenerateSchemaRequest) (*extraction.GenerateSchemaResponse, error) {
	f.record("generateSchema")
	if f.GenerateFunc != nil {
		return f.GenerateFunc(ctx, req)
	}
	return &extraction.GenerateSchemaResponse{Success: true, Schema: []byte(`{"type":"object"}`)}, nil
}

func (f *Fake) GetTemplate(ctx context.Context, req extraction.GetTemplateRequest) (*extraction.GetTemplateResponse, error) {
	f.record("getTemplate")
	if f.TemplateFunc != nil {
		return f.TemplateFunc(ctx, req)
	}
	return &extraction.GetTemplateResponse{Success: true, Schema: []byte(`{"type":"object","properties":{"total":{"type":"number"}}}`)}, nil
}

func (f *Fake) ListTemplates(ctx context.Context) (*extraction.ListTemplatesResponse, error) {
	f.record("listTemplates")
	if f.ListFunc != nil {
		return f.ListFunc(ctx)
	}
	return &extraction.ListTemplatesResponse{Success: true}, nil
}

func (f *Fake) ExtractData(ctx context.Context, req extraction.ExtractRequest) (*extraction.ExtractResponse, error) {
	f.record("extractData")
	if f.ExtractFunc != nil {
		return f.ExtractFunc(ctx, req)
	}
	return &extraction.ExtractResponse{Success: true, ExtractionJobID: "job-1"}, nil
}

func (f *Fake) SaveExtractedData(ctx context.Context, req extraction.SaveRequest) (*extraction.SaveResponse, error) {
	f.record("saveExtractedData")
	if f.SaveFunc != nil {
		return f.SaveFunc(ctx, req)
	}
	return &extraction.SaveResponse{Success: true}, nil
}

func (f *Fake) ExportToExcel(ctx context.Context, jobID string) ([]byte, error) {
	f.record("exportToExcel")
	if f.ExportFunc != nil {
		return f.ExportFunc(ctx, jobID)
	}
	return []byte("xlsx"), nil
}
