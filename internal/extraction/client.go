package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/joseph-ayodele/docuflow/internal/common"
)

// ClientConfig configures the HTTP client for the extraction service.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the HTTP JSON implementation of Service.
type Client struct {
	cfg  ClientConfig
	http *http.Client
	log  *slog.Logger
}

var _ Service = (*Client)(nil)

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) headers() map[string]string {
	h := map[string]string{}
	if c.cfg.APIKey != "" {
		h["Authorization"] = "Bearer " + c.cfg.APIKey
	}
	return h
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, _, err := SendJSON(ctx, c.http, c.endpoint(path), body, c.headers(), c.log)
	if err != nil {
		return common.RemoteError(path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) AnalyzeFields(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	if req.OrgName == "" {
		req.OrgName = common.OrgNameFromContext(ctx)
	}
	if err := common.NewValidator().
		Field("document_name", req.DocumentName, common.Required).
		Field("org_name", req.OrgName, common.Required).
		Field("folder_name", req.FolderName, common.Required).
		Error(); err != nil {
		return nil, err
	}

	var resp AnalyzeResponse
	if err := c.post(ctx, "/api/extraction/analyze-fields", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, fmt.Errorf("analyze fields: %s", respError(resp.Error))
	}
	return &resp, nil
}

func (c *Client) GenerateSchema(ctx context.Context, req GenerateSchemaRequest) (*GenerateSchemaResponse, error) {
	if err := common.NewValidator().
		Field("template_name", req.TemplateName, common.Required).
		Field("document_type", req.DocumentType, common.Required).
		Error(); err != nil {
		return nil, err
	}
	if verr := common.MaxLength("template_name", req.TemplateName, 120); verr != nil {
		return nil, verr
	}
	if len(req.Fields) == 0 {
		return nil, common.PreconditionError("no fields to generate a schema from")
	}

	var resp GenerateSchemaResponse
	if err := c.post(ctx, "/api/extraction/generate-schema", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, fmt.Errorf("generate schema: %s", respError(resp.Error))
	}
	return &resp, nil
}

func (c *Client) GetTemplate(ctx context.Context, req GetTemplateRequest) (*GetTemplateResponse, error) {
	if err := common.NewValidator().
		Field("template_name", req.TemplateName, common.Required).
		Error(); err != nil {
		return nil, err
	}

	var resp GetTemplateResponse
	if err := c.post(ctx, "/api/extraction/get-template", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, fmt.Errorf("get template: %s", respError(resp.Error))
	}
	return &resp, nil
}

func (c *Client) ListTemplates(ctx context.Context) (*ListTemplatesResponse, error) {
	var resp ListTemplatesResponse
	if err := c.post(ctx, "/api/extraction/list-templates", struct{}{}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, fmt.Errorf("list templates: %s", respError(resp.Error))
	}
	return &resp, nil
}

func (c *Client) ExtractData(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	if req.OrgName == "" {
		req.OrgName = common.OrgNameFromContext(ctx)
	}
	if err := common.NewValidator().
		Field("document_name", req.DocumentName, common.Required).
		Field("org_name", req.OrgName, common.Required).
		Error(); err != nil {
		return nil, err
	}
	if req.TemplateName == "" && len(req.Schema) == 0 {
		return nil, common.PreconditionError("either a schema or a template is required")
	}

	var resp ExtractResponse
	if err := c.post(ctx, "/api/extraction/extract-data", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, fmt.Errorf("extract data: %s", respError(resp.Error))
	}
	return &resp, nil
}

func (c *Client) SaveExtractedData(ctx context.Context, req SaveRequest) (*SaveResponse, error) {
	if err := common.NewValidator().
		Field("job_id", req.JobID, common.Required).
		Field("document_id", req.DocumentID, common.Required).
		Error(); err != nil {
		return nil, err
	}

	var resp SaveResponse
	if err := c.post(ctx, "/api/extraction/save", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, fmt.Errorf("save extracted data: %s", respError(resp.Error))
	}
	return &resp, nil
}

func (c *Client) ExportToExcel(ctx context.Context, jobID string) ([]byte, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, common.PreconditionError("job id is required")
	}
	path := "/api/extraction/jobs/" + url.PathEscape(jobID) + "/excel"
	return GetBinary(ctx, c.http, c.endpoint(path), c.headers(), c.log)
}

func respError(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}
