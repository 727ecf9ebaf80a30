package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docuflow/constants"
	"github.com/joseph-ayodele/docuflow/internal/common"
	"github.com/joseph-ayodele/docuflow/internal/entity"
	"github.com/joseph-ayodele/docuflow/internal/extraction"
	"github.com/joseph-ayodele/docuflow/internal/extraction/extractiontest"
)

var testOrg = entity.OrgContext{OrgName: "acme"}

func testDoc() *entity.Document {
	return &entity.Document{ID: "doc-1", Name: "invoice-001", FolderName: "Invoices"}
}

func analyzeOK(fields ...string) func(context.Context, extraction.AnalyzeRequest) (*extraction.AnalyzeResponse, error) {
	return func(_ context.Context, req extraction.AnalyzeRequest) (*extraction.AnalyzeResponse, error) {
		out := make([]entity.DiscoveredField, len(fields))
		for i, f := range fields {
			out[i] = entity.DiscoveredField{FieldName: f, DisplayName: f, DataType: constants.TypeText}
		}
		sid := req.SessionID
		if sid == "" {
			sid = "session-1"
		}
		return &extraction.AnalyzeResponse{
			Success:      true,
			Fields:       out,
			DocumentType: "invoice",
			SessionID:    sid,
		}, nil
	}
}

func startedController(t *testing.T, svc *extractiontest.Fake) *Controller {
	t.Helper()
	c := NewController(svc, nil, nil, nil, nil, nil)
	c.StartExtraction(testDoc(), testOrg, &entity.ParseOutput{Text: "parsed"})
	return c
}

func TestStartExtraction_BeginsOnAnalyze(t *testing.T) {
	c := startedController(t, &extractiontest.Fake{})
	assert.Equal(t, constants.StepAnalyze, c.Step())
	assert.Empty(t, c.SessionID())
	assert.Nil(t, c.Extracted())
}

func TestAnalyzeFields_RequiresDocumentAndOrg(t *testing.T) {
	svc := &extractiontest.Fake{}
	c := NewController(svc, nil, nil, nil, nil, nil)

	err := c.AnalyzeFields(context.Background())
	require.ErrorIs(t, err, common.ErrPrecondition)
	assert.Zero(t, svc.CallCount("analyzeFields"), "precondition failures make no remote call")
	assert.Equal(t, constants.StepAnalyze, c.Step())

	c.StartExtraction(testDoc(), entity.OrgContext{}, nil)
	err = c.AnalyzeFields(context.Background())
	require.ErrorIs(t, err, common.ErrPrecondition)
	assert.Zero(t, svc.CallCount("analyzeFields"))
}

func TestAnalyzeFields_AdvancesAndStoresSession(t *testing.T) {
	svc := &extractiontest.Fake{AnalyzeFunc: analyzeOK("invoice_number", "total")}
	c := startedController(t, svc)

	require.NoError(t, c.AnalyzeFields(context.Background()))
	assert.Equal(t, constants.StepSelect, c.Step())
	assert.Equal(t, "session-1", c.SessionID())
	assert.Equal(t, "invoice", c.DocumentType())
	assert.Len(t, c.DiscoveredFields(), 2)
	assert.Empty(t, c.Error())
}

func TestAnalyzeFields_CanonicalizesDataTypes(t *testing.T) {
	svc := &extractiontest.Fake{AnalyzeFunc: func(context.Context, extraction.AnalyzeRequest) (*extraction.AnalyzeResponse, error) {
		return &extraction.AnalyzeResponse{
			Success:      true,
			DocumentType: "invoice",
			SessionID:    "session-1",
			Fields: []entity.DiscoveredField{
				{FieldName: "total", DataType: "money"},
				{FieldName: "issued_on", DataType: "DATETIME"},
				{FieldName: "memo", DataType: "freeform"},
			},
			LineItemFields: []entity.DiscoveredField{
				{FieldName: "quantity", DataType: "integer"},
			},
			HasLineItems: true,
		}, nil
	}}
	c := startedController(t, svc)

	require.NoError(t, c.AnalyzeFields(context.Background()))
	got := c.DiscoveredFields()
	require.Len(t, got, 3)
	assert.Equal(t, constants.TypeCurrency, got[0].DataType)
	assert.Equal(t, constants.TypeDate, got[1].DataType)
	assert.Equal(t, constants.DataType("freeform"), got[2].DataType, "unknown labels pass through untouched")
	items := c.LineItemFields()
	require.Len(t, items, 1)
	assert.Equal(t, constants.TypeNumber, items[0].DataType)
}

func TestAnalyzeFields_FailureStaysOnAnalyze(t *testing.T) {
	svc := &extractiontest.Fake{AnalyzeFunc: func(context.Context, extraction.AnalyzeRequest) (*extraction.AnalyzeResponse, error) {
		return nil, errors.New("network down")
	}}
	c := startedController(t, svc)

	err := c.AnalyzeFields(context.Background())
	require.Error(t, err)
	assert.Equal(t, constants.StepAnalyze, c.Step())
	assert.NotEmpty(t, c.Error())
	assert.Empty(t, c.SessionID())
}

func TestSessionID_ThreadedThroughEveryCall(t *testing.T) {
	var sessions []string
	svc := &extractiontest.Fake{
		AnalyzeFunc: analyzeOK("total"),
		GenerateFunc: func(_ context.Context, req extraction.GenerateSchemaRequest) (*extraction.GenerateSchemaResponse, error) {
			sessions = append(sessions, req.SessionID)
			return &extraction.GenerateSchemaResponse{Success: true, Schema: []byte(`{"type":"object"}`)}, nil
		},
		ExtractFunc: func(_ context.Context, req extraction.ExtractRequest) (*extraction.ExtractResponse, error) {
			sessions = append(sessions, req.SessionID)
			return &extraction.ExtractResponse{Success: true, ExtractionJobID: "job-1"}, nil
		},
	}
	c := startedController(t, svc)

	require.NoError(t, c.AnalyzeFields(context.Background()))
	c.Selection().SelectAll(c.DiscoveredFields(), nil)
	require.NoError(t, c.GenerateSchema(context.Background(), "inv-template", false))
	require.NoError(t, c.ExtractData(context.Background()))

	require.Equal(t, []string{"session-1", "session-1"}, sessions)

	// A new instance clears the session id.
	c.StartExtraction(&entity.Document{ID: "doc-2", Name: "other"}, testOrg, nil)
	assert.Empty(t, c.SessionID())
}

func TestGenerateSchema_RequiresSelectionsAndDocType(t *testing.T) {
	svc := &extractiontest.Fake{AnalyzeFunc: analyzeOK("total")}
	c := startedController(t, svc)

	// No selections yet.
	err := c.GenerateSchema(context.Background(), "inv-template", false)
	require.ErrorIs(t, err, common.ErrPrecondition)
	assert.Zero(t, svc.CallCount("generateSchema"))

	// Selections but no detected document type.
	c.Selection().Toggle(entity.DiscoveredField{FieldName: "total"})
	err = c.GenerateSchema(context.Background(), "inv-template", false)
	require.ErrorIs(t, err, common.ErrPrecondition)
	assert.Zero(t, svc.CallCount("generateSchema"))
}

func TestGenerateSchema_RecordsTemplateWhenSaving(t *testing.T) {
	svc := &extractiontest.Fake{AnalyzeFunc: analyzeOK("invoice_number", "total")}
	c := startedController(t, svc)

	require.NoError(t, c.AnalyzeFields(context.Background()))
	c.Selection().Toggle(entity.DiscoveredField{FieldName: "invoice_number"})
	c.Selection().Toggle(entity.DiscoveredField{FieldName: "total"})
	require.Equal(t, 2, c.Selection().Count())
	assert.Nil(t, c.Selection().Template())

	require.NoError(t, c.GenerateSchema(context.Background(), "inv-template", true))
	assert.NotEmpty(t, c.Schema())
	assert.Equal(t, constants.StepExtract, c.Step())
	assert.Equal(t, "inv-template", c.TemplateName())
}

func TestGenerateSchema_BuildsLocallyWhenRemoteFails(t *testing.T) {
	svc := &extractiontest.Fake{
		AnalyzeFunc: analyzeOK("invoice_number", "total"),
		GenerateFunc: func(context.Context, extraction.GenerateSchemaRequest) (*extraction.GenerateSchemaResponse, error) {
			return nil, errors.New("service unavailable")
		},
	}
	c := startedController(t, svc)
	require.NoError(t, c.AnalyzeFields(context.Background()))
	c.Selection().SelectAll(c.DiscoveredFields(), nil)

	require.NoError(t, c.GenerateSchema(context.Background(), "inv-template", true))
	assert.NotEmpty(t, c.Schema())
	assert.Equal(t, constants.StepExtract, c.Step())
	assert.Empty(t, c.Error())
	// The template could not be saved remotely, so none is recorded.
	assert.Empty(t, c.TemplateName())
}

func TestExtractData_RequiresSchemaOrTemplate(t *testing.T) {
	svc := &extractiontest.Fake{}
	c := startedController(t, svc)

	err := c.ExtractData(context.Background())
	require.ErrorIs(t, err, common.ErrPrecondition)
	assert.Zero(t, svc.CallCount("extractData"))
}

func TestExtractData_AdvancesToActions(t *testing.T) {
	svc := &extractiontest.Fake{
		AnalyzeFunc: analyzeOK("total"),
		ExtractFunc: func(context.Context, extraction.ExtractRequest) (*extraction.ExtractResponse, error) {
			return &extraction.ExtractResponse{
				Success:         true,
				ExtractedData:   map[string]any{"total": "149.99"},
				FieldCount:      1,
				ExtractionJobID: "job-9",
				TokenUsage:      &entity.TokenUsage{TotalTokens: 420},
			}, nil
		},
	}
	c := startedController(t, svc)
	require.NoError(t, c.AnalyzeFields(context.Background()))
	c.Selection().SelectAll(c.DiscoveredFields(), nil)
	require.NoError(t, c.GenerateSchema(context.Background(), "inv-template", false))

	require.NoError(t, c.ExtractData(context.Background()))
	assert.Equal(t, constants.StepActions, c.Step())
	result := c.Extracted()
	require.NotNil(t, result)
	assert.Equal(t, "job-9", result.JobID)
	assert.Equal(t, 1, result.FieldCount)
	assert.Equal(t, 420, result.TokenUsage.TotalTokens)
}

func TestExtractData_FailedRetryThenSuccess(t *testing.T) {
	fail := true
	svc := &extractiontest.Fake{
		AnalyzeFunc: analyzeOK("total"),
		ExtractFunc: func(context.Context, extraction.ExtractRequest) (*extraction.ExtractResponse, error) {
			if fail {
				return nil, errors.New("network error")
			}
			return &extraction.ExtractResponse{Success: true, ExtractionJobID: "job-2"}, nil
		},
	}
	c := startedController(t, svc)
	require.NoError(t, c.AnalyzeFields(context.Background()))
	c.Selection().SelectAll(c.DiscoveredFields(), nil)
	require.NoError(t, c.GenerateSchema(context.Background(), "inv-template", false))

	require.Error(t, c.ExtractData(context.Background()))
	assert.Equal(t, constants.StepExtract, c.Step(), "failure does not advance")
	assert.NotEmpty(t, c.Error())

	// Retry succeeds without re-analysis: fields, selections, schema intact.
	fail = false
	require.NoError(t, c.ExtractData(context.Background()))
	assert.Equal(t, constants.StepActions, c.Step())
	assert.Empty(t, c.Error())
	assert.Equal(t, 1, svc.CallCount("analyzeFields"))
}

func TestExtractData_FailedReextractionClearsResult(t *testing.T) {
	fail := false
	svc := &extractiontest.Fake{
		AnalyzeFunc: analyzeOK("total"),
		ExtractFunc: func(context.Context, extraction.ExtractRequest) (*extraction.ExtractResponse, error) {
			if fail {
				return nil, errors.New("server error")
			}
			return &extraction.ExtractResponse{Success: true, ExtractionJobID: "job-3"}, nil
		},
	}
	c := startedController(t, svc)
	require.NoError(t, c.AnalyzeFields(context.Background()))
	c.Selection().SelectAll(c.DiscoveredFields(), nil)
	require.NoError(t, c.GenerateSchema(context.Background(), "inv-template", false))
	require.NoError(t, c.ExtractData(context.Background()))
	require.NotNil(t, c.Extracted())

	fail = true
	require.Error(t, c.ExtractData(context.Background()))
	assert.Nil(t, c.Extracted(), "stale results must not survive a failed re-extraction")
}

func TestAcceptTemplate_SkipsToExtract(t *testing.T) {
	c := startedController(t, &extractiontest.Fake{})
	tpl := &entity.TemplateInfo{Name: "inv-template", FolderName: "Invoices"}

	require.NoError(t, c.AcceptTemplate(tpl, []byte(`{"type":"object"}`)))
	assert.Equal(t, constants.StepExtract, c.Step())
	assert.Equal(t, 0, c.Selection().Count())
	assert.Equal(t, "inv-template", c.TemplateName())
}

func TestAcceptTemplate_Guards(t *testing.T) {
	c := NewController(&extractiontest.Fake{}, nil, nil, nil, nil, nil)
	assert.Error(t, c.AcceptTemplate(&entity.TemplateInfo{Name: "t"}, []byte(`{}`)), "no active document")

	c.StartExtraction(testDoc(), testOrg, nil)
	assert.Error(t, c.AcceptTemplate(nil, []byte(`{}`)))
	assert.Error(t, c.AcceptTemplate(&entity.TemplateInfo{Name: "t"}, nil))
}

func TestAcceptTemplate_RejectsMalformedSchema(t *testing.T) {
	c := startedController(t, &extractiontest.Fake{})
	tpl := &entity.TemplateInfo{Name: "inv-template"}

	err := c.AcceptTemplate(tpl, []byte(`{not json`))
	require.ErrorIs(t, err, common.ErrPrecondition)
	assert.Equal(t, constants.StepAnalyze, c.Step(), "a broken template must not advance the workflow")
	assert.Empty(t, c.Schema())

	err = c.AcceptTemplate(tpl, []byte(`{"type":123}`))
	require.ErrorIs(t, err, common.ErrPrecondition)
}

func TestSaveExtractedData_RequiresResult(t *testing.T) {
	svc := &extractiontest.Fake{}
	c := startedController(t, svc)

	err := c.SaveExtractedData(context.Background())
	require.ErrorIs(t, err, common.ErrPrecondition)
	assert.Zero(t, svc.CallCount("saveExtractedData"))
}

func TestSaveExtractedData_ReportsTemplateName(t *testing.T) {
	var saved extraction.SaveRequest
	svc := &extractiontest.Fake{SaveFunc: func(_ context.Context, req extraction.SaveRequest) (*extraction.SaveResponse, error) {
		saved = req
		return &extraction.SaveResponse{Success: true}, nil
	}}
	c := startedController(t, svc)
	require.NoError(t, c.AcceptTemplate(&entity.TemplateInfo{Name: "inv-template"}, []byte(`{"type":"object"}`)))
	require.NoError(t, c.ExtractData(context.Background()))

	require.NoError(t, c.SaveExtractedData(context.Background()))
	assert.Equal(t, "doc-1", saved.DocumentID)
	assert.Equal(t, "job-1", saved.JobID)
	assert.Equal(t, "inv-template", saved.TemplateName)
	assert.Equal(t, constants.StepActions, c.Step(), "saving does not change the step")
}

func TestExportToExcel_DeliversPayloadToSink(t *testing.T) {
	var gotName string
	var gotPayload []byte
	sink := func(filename string, payload []byte) error {
		gotName = filename
		gotPayload = payload
		return nil
	}
	svc := &extractiontest.Fake{ExportFunc: func(_ context.Context, jobID string) ([]byte, error) {
		return []byte("workbook-bytes"), nil
	}}
	c := NewController(svc, nil, nil, sink, nil, nil)
	c.StartExtraction(testDoc(), testOrg, nil)
	require.NoError(t, c.AcceptTemplate(&entity.TemplateInfo{Name: "inv-template"}, []byte(`{"type":"object"}`)))
	require.NoError(t, c.ExtractData(context.Background()))

	require.NoError(t, c.ExportToExcel(context.Background()))
	assert.Equal(t, "invoice-001-extract.xlsx", gotName)
	assert.Equal(t, []byte("workbook-bytes"), gotPayload)
}

type stubBuilder struct {
	payload []byte
	err     error
	doc     *entity.Document
	data    *entity.ExtractedData
}

func (b *stubBuilder) BuildXLSX(doc *entity.Document, data *entity.ExtractedData) ([]byte, error) {
	b.doc = doc
	b.data = data
	return b.payload, b.err
}

func TestExportToExcel_BuildsLocallyWhenRemoteFails(t *testing.T) {
	var gotPayload []byte
	sink := func(filename string, payload []byte) error {
		gotPayload = payload
		return nil
	}
	builder := &stubBuilder{payload: []byte("local-workbook")}
	svc := &extractiontest.Fake{ExportFunc: func(context.Context, string) ([]byte, error) {
		return nil, errors.New("remote export down")
	}}
	c := NewController(svc, nil, nil, sink, builder, nil)
	c.StartExtraction(testDoc(), testOrg, nil)
	require.NoError(t, c.AcceptTemplate(&entity.TemplateInfo{Name: "inv-template"}, []byte(`{"type":"object"}`)))
	require.NoError(t, c.ExtractData(context.Background()))

	require.NoError(t, c.ExportToExcel(context.Background()))
	assert.Equal(t, []byte("local-workbook"), gotPayload)
	assert.Empty(t, c.Error())
	require.NotNil(t, builder.data, "the local build works from the extracted result")
	assert.Equal(t, "job-1", builder.data.JobID)
	require.NotNil(t, builder.doc)
	assert.Equal(t, "doc-1", builder.doc.ID)
}

func TestExportToExcel_RemoteFailureWithoutBuilderErrors(t *testing.T) {
	sinkCalled := false
	sink := func(string, []byte) error {
		sinkCalled = true
		return nil
	}
	svc := &extractiontest.Fake{ExportFunc: func(context.Context, string) ([]byte, error) {
		return nil, errors.New("remote export down")
	}}
	c := NewController(svc, nil, nil, sink, nil, nil)
	c.StartExtraction(testDoc(), testOrg, nil)
	require.NoError(t, c.AcceptTemplate(&entity.TemplateInfo{Name: "inv-template"}, []byte(`{"type":"object"}`)))
	require.NoError(t, c.ExtractData(context.Background()))

	require.Error(t, c.ExportToExcel(context.Background()))
	assert.False(t, sinkCalled)
	assert.NotEmpty(t, c.Error())
}

func TestExportToExcel_RequiresJob(t *testing.T) {
	svc := &extractiontest.Fake{}
	c := startedController(t, svc)
	err := c.ExportToExcel(context.Background())
	require.ErrorIs(t, err, common.ErrPrecondition)
	assert.Zero(t, svc.CallCount("exportToExcel"))
}

func TestStepNavigation(t *testing.T) {
	c := startedController(t, &extractiontest.Fake{})

	c.NextStep()
	assert.Equal(t, constants.StepSelect, c.Step())
	c.PreviousStep()
	assert.Equal(t, constants.StepAnalyze, c.Step())
	c.PreviousStep()
	assert.Equal(t, constants.StepAnalyze, c.Step(), "first step is a floor")

	require.NoError(t, c.GoToStep(constants.StepActions))
	c.NextStep()
	assert.Equal(t, constants.StepActions, c.Step(), "terminal step is a ceiling")

	assert.Error(t, c.GoToStep("nonsense"))
}

func TestGoToStep_ClearsError(t *testing.T) {
	svc := &extractiontest.Fake{AnalyzeFunc: func(context.Context, extraction.AnalyzeRequest) (*extraction.AnalyzeResponse, error) {
		return nil, errors.New("boom")
	}}
	c := startedController(t, svc)
	require.Error(t, c.AnalyzeFields(context.Background()))
	require.NotEmpty(t, c.Error())

	require.NoError(t, c.GoToStep(constants.StepAnalyze))
	assert.Empty(t, c.Error())
}

func TestReentrantCallRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	svc := &extractiontest.Fake{AnalyzeFunc: func(context.Context, extraction.AnalyzeRequest) (*extraction.AnalyzeResponse, error) {
		close(entered)
		<-release
		return &extraction.AnalyzeResponse{Success: true, SessionID: "session-1"}, nil
	}}
	c := startedController(t, svc)

	done := make(chan error, 1)
	go func() { done <- c.AnalyzeFields(context.Background()) }()
	<-entered

	err := c.AnalyzeFields(context.Background())
	assert.ErrorIs(t, err, common.ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, svc.CallCount("analyzeFields"))
}

func TestStaleResponseAfterResetIsDropped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	svc := &extractiontest.Fake{AnalyzeFunc: func(context.Context, extraction.AnalyzeRequest) (*extraction.AnalyzeResponse, error) {
		close(entered)
		<-release
		return &extraction.AnalyzeResponse{
			Success:      true,
			Fields:       []entity.DiscoveredField{{FieldName: "stale"}},
			DocumentType: "stale-type",
			SessionID:    "stale-session",
		}, nil
	}}
	c := startedController(t, svc)

	done := make(chan error, 1)
	go func() { done <- c.AnalyzeFields(context.Background()) }()
	<-entered

	// The user abandons the instance while the call is in flight.
	c.StartExtraction(&entity.Document{ID: "doc-2", Name: "other"}, testOrg, nil)
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, constants.StepAnalyze, c.Step())
	assert.Empty(t, c.DiscoveredFields(), "late response must not mutate the new instance")
	assert.Empty(t, c.SessionID())
	assert.Equal(t, "", c.DocumentType())
}

func TestClose_ResetsState(t *testing.T) {
	svc := &extractiontest.Fake{AnalyzeFunc: analyzeOK("total")}
	c := startedController(t, svc)
	require.NoError(t, c.AnalyzeFields(context.Background()))

	c.Close(false)
	assert.Nil(t, c.Document())
	assert.Empty(t, c.SessionID())
	assert.Equal(t, constants.StepAnalyze, c.Step())
	assert.Empty(t, c.DiscoveredFields())

	// Close(true) keeps only the document reference.
	c.StartExtraction(testDoc(), testOrg, nil)
	c.Close(true)
	require.NotNil(t, c.Document())
	assert.Equal(t, "doc-1", c.Document().ID)
	assert.Empty(t, c.SessionID())
}

func TestWorkedScenario_AnalyzeSelectGenerate(t *testing.T) {
	svc := &extractiontest.Fake{AnalyzeFunc: analyzeOK("invoice_number", "total")}
	c := startedController(t, svc)

	require.NoError(t, c.AnalyzeFields(context.Background()))
	for _, f := range c.DiscoveredFields() {
		c.Selection().Toggle(f)
	}
	assert.Equal(t, 2, c.Selection().Count())
	assert.Nil(t, c.Selection().Template())

	require.NoError(t, c.GenerateSchema(context.Background(), "inv-template", true))
	assert.NotEmpty(t, c.Schema())
	assert.Equal(t, "inv-template", c.TemplateName())
	assert.Equal(t, constants.StepExtract, c.Step())
}
