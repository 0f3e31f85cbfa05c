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

const (
	DefaultHuggingFaceEndpoint = "https://router.huggingface.co"
	DefaultHuggingFaceHub      = "https://huggingface.co"
	DefaultGenerationModel     = "mistralai/Mistral-7B-Instruct-v0.2"

	maxErrorBody = 2048
)

// HuggingFaceConfig configures the hosted Inference API client.
type HuggingFaceConfig struct {
	APIToken string
	Endpoint string
	HubURL   string
	Model    string
}

// HuggingFaceWorker calls the hosted text-generation Inference API. It satisfies
// clause.Generator.
type HuggingFaceWorker struct {
	apiToken   string
	endpoint   string
	hubURL     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHuggingFaceWorker(cfg HuggingFaceConfig, logger *zap.Logger) *HuggingFaceWorker {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultHuggingFaceEndpoint
	}
	if cfg.HubURL == "" {
		cfg.HubURL = DefaultHuggingFaceHub
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGenerationModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HuggingFaceWorker{
		apiToken: cfg.APIToken,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		hubURL:   strings.TrimRight(cfg.HubURL, "/"),
		model:    cfg.Model,
		// Per-call deadlines come from the caller's context.
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (w *HuggingFaceWorker) GetTools() []ToolDef {
	return []ToolDef{
		{Name: "generate", Description: "Generate text with the configured Inference API model"},
		{Name: "model_info", Description: "Get information about a model on the HuggingFace Hub"},
	}
}

func (w *HuggingFaceWorker) Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error) {
	switch name {
	case "generate", "huggingface_generate":
		return w.generate(ctx, input)
	case "model_info", "huggingface_model_info":
		return w.modelInfo(ctx, input)
	default:
		return nil, fmt.Errorf("unknown huggingface tool: %s", name)
	}
}

type hfGenerationPayload struct {
	Inputs     string                 `json:"inputs"`
	Parameters hfGenerationParameters `json:"parameters"`
}

type hfGenerationParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

func newGenerationPayload(req clause.GenerationRequest) hfGenerationPayload {
	return hfGenerationPayload{
		Inputs: req.Inputs,
		Parameters: hfGenerationParameters{
			MaxNewTokens:   req.MaxNewTokens,
			Temperature:    req.Temperature,
			ReturnFullText: false,
		},
	}
}

// Generate posts the prompt and returns the first generated_text of the
// list-shaped response.
func (w *HuggingFaceWorker) Generate(ctx context.Context, req clause.GenerationRequest) (string, error) {
	body, err := json.Marshal(newGenerationPayload(req))
	if err != nil {
		return "", err
	}

	url := w.endpoint + "/models/" + w.model
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
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
		return "", fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &clause.RemoteError{StatusCode: resp.StatusCode, Body: truncateBody(b)}
	}

	var result []struct {
		GeneratedText *string `json:"generated_text"`
	}
	if err := json.Unmarshal(b, &result); err != nil || len(result) == 0 || result[0].GeneratedText == nil {
		return "", &clause.RemoteError{StatusCode: resp.StatusCode, Body: truncateBody(b)}
	}

	w.logger.Debug("Inference call completed",
		zap.String("model", w.model),
		zap.Int("prompt_chars", len(req.Inputs)))
	return *result[0].GeneratedText, nil
}

type HFGenerateRequest struct {
	Inputs       string  `json:"inputs"`
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

func (w *HuggingFaceWorker) generate(ctx context.Context, input json.RawMessage) ([]byte, error) {
	var req HFGenerateRequest
	if err := decode(input, &req); err != nil {
		return nil, err
	}
	if req.Inputs == "" {
		return nil, fmt.Errorf("%w: inputs is required", ErrInvalidInput)
	}
	if req.MaxNewTokens == 0 {
		req.MaxNewTokens = 250
	}

	text, err := w.Generate(ctx, clause.GenerationRequest{
		Inputs:       req.Inputs,
		MaxNewTokens: req.MaxNewTokens,
		Temperature:  req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"generated_text": text, "model": w.model})
}

type HFModelInfoRequest struct {
	Model string `json:"model"`
}

func (w *HuggingFaceWorker) modelInfo(ctx context.Context, input json.RawMessage) ([]byte, error) {
	var req HFModelInfoRequest
	if len(input) > 0 {
		if err := decode(input, &req); err != nil {
			return nil, err
		}
	}
	if req.Model == "" {
		req.Model = w.model
	}

	httpReq, err := http.NewRequestWithContext(ctx, "GET", w.hubURL+"/api/models/"+req.Model, nil)
	if err != nil {
		return nil, err
	}
	if w.apiToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.apiToken)
	}

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read model info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HuggingFace Hub error: %d %s", resp.StatusCode, truncateBody(b))
	}
	return b, nil
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody])
	}
	return string(b)
}
