package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ericksa/legalese/internal/clause"
	"go.uber.org/zap"
)

// TGIWorker talks to a self-hosted text-generation-inference server. It satisfies
// clause.Generator with the same prompt payload as the hosted API.
type TGIWorker struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewTGIWorker(baseURL, apiToken string, logger *zap.Logger) *TGIWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TGIWorker{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (w *TGIWorker) GetTools() []ToolDef {
	return []ToolDef{
		{Name: "generate", Description: "Generate text using the TGI inference server"},
		{Name: "health", Description: "Check TGI server health"},
	}
}

func (w *TGIWorker) Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error) {
	switch name {
	case "generate", "tgi_generate":
		return w.generate(ctx, input)
	case "health", "tgi_health":
		return w.health(ctx)
	default:
		return nil, fmt.Errorf("unknown tgi tool: %s", name)
	}
}

func (w *TGIWorker) Generate(ctx context.Context, req clause.GenerationRequest) (string, error) {
	body, err := json.Marshal(newGenerationPayload(req))
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, "POST", w.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if w.apiToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.apiToken)
	}

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read TGI response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &clause.RemoteError{StatusCode: resp.StatusCode, Body: truncateBody(b)}
	}

	var result struct {
		GeneratedText *string `json:"generated_text"`
	}
	if err := json.Unmarshal(b, &result); err != nil || result.GeneratedText == nil {
		return "", &clause.RemoteError{StatusCode: resp.StatusCode, Body: truncateBody(b)}
	}
	return *result.GeneratedText, nil
}

func (w *TGIWorker) generate(ctx context.Context, input json.RawMessage) ([]byte, error) {
	var req HFGenerateRequest
	if err := decode(input, &req); err != nil {
		return nil, err
	}
	if req.Inputs == "" {
		return nil, fmt.Errorf("%w: inputs is required", ErrInvalidInput)
	}
	if req.MaxNewTokens == 0 {
		req.MaxNewTokens = 512
	}

	text, err := w.Generate(ctx, clause.GenerationRequest{
		Inputs:       req.Inputs,
		MaxNewTokens: req.MaxNewTokens,
		Temperature:  req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"generated_text": text})
}

func (w *TGIWorker) health(ctx context.Context) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", w.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	status := "ok"
	if resp.StatusCode != http.StatusOK {
		status = "unavailable"
	}
	return json.Marshal(map[string]interface{}{
		"status":      status,
		"base_url":    w.baseURL,
		"status_code": resp.StatusCode,
	})
}
