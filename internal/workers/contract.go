package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ericksa/legalese/internal/clause"
	"github.com/ericksa/legalese/internal/config"
	"github.com/ericksa/legalese/internal/store"
	"go.uber.org/zap"
)

// ErrInvalidInput marks request validation failures.
var ErrInvalidInput = errors.New("invalid input")

const anonymousUser = "anonymous"

// ContractWorkerConfig wires the pipeline into a ContractWorker.
type ContractWorkerConfig struct {
	Model     *clause.ModelState
	Generator clause.Generator
	Rewrite   clause.RewriterOptions
	Chat      clause.DocumentQAOptions
	// Store is optional; without it analyses are not persisted.
	Store    *store.Store
	BasePath string
}

// ContractWorker exposes clause analysis, negotiation and document chat.
type ContractWorker struct {
	analyzer  *clause.Analyzer
	rewriter  *clause.Rewriter
	qa        *clause.DocumentQA
	model     *clause.ModelState
	generator bool
	store     *store.Store
	basePath  string
	logger    *zap.Logger
}

func NewContractWorker(cfg ContractWorkerConfig, logger *zap.Logger) *ContractWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContractWorker{
		analyzer:  clause.NewAnalyzer(clause.NewClassifier(cfg.Model)),
		rewriter:  clause.NewRewriter(cfg.Generator, cfg.Rewrite, logger),
		qa:        clause.NewDocumentQA(cfg.Generator, cfg.Chat, logger),
		model:     cfg.Model,
		generator: cfg.Generator != nil,
		store:     cfg.Store,
		basePath:  cfg.BasePath,
		logger:    logger,
	}
}

// NewContractWorkerFromConfig builds the model state, the remote generator and the
// worker from the service configuration. The generator is returned as well (nil
// when unconfigured) so callers can expose its own tools. st may be nil.
func NewContractWorkerFromConfig(cfg *config.Config, st *store.Store, logger *zap.Logger) (*ContractWorker, clause.Generator) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ai := cfg.Legalese.AI

	model := clause.LoadModel(clause.ModelOptions{
		Skip: ai.SkipModelLoading,
		Name: ai.ModelName,
		Path: ai.ModelPath,
	}, logger)

	gen := NewGenerator(GeneratorConfig{
		Provider: ai.Provider,
		Endpoint: ai.Endpoint,
		Model:    ai.Model,
		APIToken: ai.HFToken,
	}, logger)
	if gen == nil {
		logger.Warn("Remote inference not configured; rewrites use rules and chat is unavailable",
			zap.String("provider", ai.Provider))
	}

	w := NewContractWorker(ContractWorkerConfig{
		Model:     model,
		Generator: gen,
		Rewrite: clause.RewriterOptions{
			Timeout:   ai.RewriteTimeout,
			MaxTokens: ai.RewriteMaxTokens,
		},
		Chat: clause.DocumentQAOptions{
			Timeout:      ai.ChatTimeout,
			MaxTokens:    ai.ChatMaxTokens,
			ContextChars: ai.ChatContextChars,
		},
		Store:    st,
		BasePath: cfg.Legalese.Server.BasePath,
	}, logger)
	return w, gen
}

func (w *ContractWorker) GetTools() []ToolDef {
	return []ToolDef{
		{Name: "analyze", Description: "Split a contract into clauses and classify each clause's risk"},
		{Name: "negotiate", Description: "Suggest a more balanced rewrite of a clause"},
		{Name: "chat", Description: "Answer a question about a contract's text"},
		{Name: "list", Description: "List analysed documents for a user"},
		{Name: "get", Description: "Get an analysed document by ID"},
		{Name: "status", Description: "Report model and remote inference availability"},
	}
}

func (w *ContractWorker) Execute(ctx context.Context, name string, input json.RawMessage) ([]byte, error) {
	switch name {
	case "analyze", "contract_analyze":
		var req AnalyzeRequest
		if err := decode(input, &req); err != nil {
			return nil, err
		}
		resp, err := w.Analyze(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	case "negotiate", "contract_negotiate":
		var req NegotiateRequest
		if err := decode(input, &req); err != nil {
			return nil, err
		}
		resp, err := w.Negotiate(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	case "chat", "contract_chat":
		var req ChatRequest
		if err := decode(input, &req); err != nil {
			return nil, err
		}
		resp, err := w.Chat(ctx, req)
		if err != nil {
			return nil, err
		}
		return json.Marshal(resp)
	case "list", "contract_list":
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := decode(input, &req); err != nil {
			return nil, err
		}
		docs, err := w.ListDocuments(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(docs)
	case "get", "contract_get":
		var req struct {
			DocumentID int64 `json:"document_id"`
		}
		if err := decode(input, &req); err != nil {
			return nil, err
		}
		doc, err := w.GetDocument(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(doc)
	case "status", "contract_status":
		return json.Marshal(w.Status())
	default:
		return nil, fmt.Errorf("unknown contract tool: %s", name)
	}
}

type AnalyzeRequest struct {
	Content  string `json:"content"`
	Path     string `json:"path,omitempty"`
	Filename string `json:"filename,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

type AnalyzeResponse struct {
	DocumentID int64           `json:"document_id,omitempty"`
	Filename   string          `json:"filename"`
	Results    []clause.Result `json:"results"`
}

// Analyze runs the clause pipeline over plain text and stores the outcome when a
// store is configured.
func (w *ContractWorker) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	content := req.Content
	if content == "" && req.Path != "" {
		full, err := resolvePath(w.basePath, req.Path)
		if err != nil {
			return nil, err
		}
		b, err := readFile(full)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", req.Path, err)
		}
		content = string(b)
		if req.Filename == "" {
			req.Filename = filepath.Base(req.Path)
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content or path required", ErrInvalidInput)
	}

	resp := &AnalyzeResponse{
		Filename: req.Filename,
		Results:  w.analyzer.Analyze(content),
	}

	if w.store != nil {
		userID := req.UserID
		if userID == "" {
			userID = anonymousUser
		}
		id, err := w.store.SaveAnalysis(ctx, userID, req.Filename, content, resp.Results)
		if err != nil {
			return nil, err
		}
		resp.DocumentID = id
	}

	w.logger.Info("Document analysed",
		zap.String("filename", req.Filename),
		zap.Int("clauses", len(resp.Results)),
		zap.Int64("document_id", resp.DocumentID))
	return resp, nil
}

type NegotiateRequest struct {
	Text string `json:"text"`
}

type NegotiateResponse struct {
	RewrittenText string `json:"rewritten_text"`
}

func (w *ContractWorker) Negotiate(ctx context.Context, req NegotiateRequest) (*NegotiateResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	return &NegotiateResponse{RewrittenText: w.rewriter.Rewrite(ctx, req.Text)}, nil
}

type ChatRequest struct {
	DocumentID int64  `json:"document_id,omitempty"`
	Content    string `json:"content,omitempty"`
	Question   string `json:"question"`
}

// ChatResponse carries the answer string. Error is set when the answer is a
// rendered failure rather than model output.
type ChatResponse struct {
	Answer string `json:"answer"`
	Error  bool   `json:"error"`
}

func (w *ContractWorker) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	content := req.Content
	if content == "" {
		if req.DocumentID == 0 {
			return nil, fmt.Errorf("%w: document_id or content required", ErrInvalidInput)
		}
		doc, err := w.GetDocument(ctx, req.DocumentID)
		if err != nil {
			return nil, err
		}
		content = doc.Content
	}

	answer, err := w.qa.Ask(ctx, content, req.Question)
	if err != nil {
		w.logger.Warn("Document chat failed", zap.Int64("document_id", req.DocumentID), zap.Error(err))
		return &ChatResponse{Answer: clause.ErrorAnswer(err), Error: true}, nil
	}
	return &ChatResponse{Answer: answer}, nil
}

func (w *ContractWorker) ListDocuments(ctx context.Context, userID string) ([]store.DocumentSummary, error) {
	if w.store == nil {
		return nil, errors.New("document store not configured")
	}
	if userID == "" {
		userID = anonymousUser
	}
	return w.store.ListDocuments(ctx, userID)
}

func (w *ContractWorker) GetDocument(ctx context.Context, id int64) (*store.Document, error) {
	if w.store == nil {
		return nil, errors.New("document store not configured")
	}
	return w.store.GetDocument(ctx, id)
}

type Status struct {
	AIModel   string `json:"ai_model"`
	ModelName string `json:"model_name,omitempty"`
	Generator string `json:"generator"`
	Store     bool   `json:"store"`
}

func (w *ContractWorker) Status() Status {
	s := Status{AIModel: "using heuristics", Generator: "not configured", Store: w.store != nil}
	if w.model.Available() {
		s.AIModel = "loaded"
		s.ModelName = w.model.Name
	}
	if w.generator {
		s.Generator = "configured"
	}
	return s
}

func decode(input json.RawMessage, v interface{}) error {
	if len(input) == 0 {
		return nil
	}
	if err := json.Unmarshal(input, v); err != nil {
		return fmt.Errorf("%w: failed to parse request: %v", ErrInvalidInput, err)
	}
	return nil
}
