package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ericksa/legalese/internal/config"
	"github.com/ericksa/legalese/internal/middleware"
	"github.com/ericksa/legalese/internal/store"
	"github.com/ericksa/legalese/internal/workers"
	"github.com/ericksa/legalese/pkg/mcp"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxUpload bounds analysed documents and request bodies.
const maxUpload = 10 << 20

func newRouter(cfg *config.Config, a *app) *mux.Router {
	router := mux.NewRouter()
	middleware.Register(router, cfg, a.logger)

	// MCP endpoint
	router.PathPrefix("/mcp").Handler(a.handler)

	router.HandleFunc("/health", a.healthHandler).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyze", a.analyzeHandler).Methods("POST")
	api.HandleFunc("/documents", a.listDocumentsHandler).Methods("GET")
	api.HandleFunc("/documents/{id:[0-9]+}", a.getDocumentHandler).Methods("GET")
	api.HandleFunc("/negotiate", a.negotiateHandler).Methods("POST")
	api.HandleFunc("/chat", a.chatHandler).Methods("POST")

	// Tools endpoints
	router.HandleFunc("/tools", a.listToolsHandler).Methods("GET")
	router.HandleFunc("/tools/{worker}/{tool}", a.executeToolHandler).Methods("POST")

	// Configuration API
	config.NewConfigAPI(cfg).Register(router)

	// Preflight requests are answered by the CORS middleware.
	router.Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	return router
}

type healthResponse struct {
	Status    string `json:"status"`
	AIModel   string `json:"ai_model"`
	ModelName string `json:"model_name,omitempty"`
	Generator string `json:"generator"`
	Store     bool   `json:"store"`
}

func (a *app) healthHandler(w http.ResponseWriter, r *http.Request) {
	st := a.contract.Status()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		AIModel:   st.AIModel,
		ModelName: st.ModelName,
		Generator: st.Generator,
		Store:     st.Store,
	})
}

func (a *app) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req workers.AnalyzeRequest
	if err := decodeAnalyzeRequest(w, r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if uid := r.URL.Query().Get("user_id"); uid != "" && req.UserID == "" {
		req.UserID = uid
	}
	// Paths are a tool-surface convenience; HTTP callers send the document itself.
	req.Path = ""

	resp, err := a.contract.Analyze(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeAnalyzeRequest accepts either a JSON body or a multipart upload whose
// "file" part holds the extracted plain text.
func decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request, req *workers.AnalyzeRequest) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	if err := r.ParseMultipartForm(maxUpload); err == nil {
		file, header, err := r.FormFile("file")
		if err != nil {
			return fmt.Errorf("%w: file part required", workers.ErrInvalidInput)
		}
		defer file.Close()
		b, err := io.ReadAll(file)
		if err != nil {
			return fmt.Errorf("%w: read upload: %v", workers.ErrInvalidInput, err)
		}
		req.Content = string(b)
		req.Filename = header.Filename
		req.UserID = r.FormValue("user_id")
		return nil
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return fmt.Errorf("%w: %v", workers.ErrInvalidInput, err)
	}

	return decodeJSON(r, req)
}

func (a *app) listDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := a.contract.ListDocuments(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	if docs == nil {
		docs = []store.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (a *app) getDocumentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		a.writeError(w, fmt.Errorf("%w: invalid document id", workers.ErrInvalidInput))
		return
	}
	doc, err := a.contract.GetDocument(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *app) negotiateHandler(w http.ResponseWriter, r *http.Request) {
	var req workers.NegotiateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	resp, err := a.contract.Negotiate(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *app) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req workers.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	resp, err := a.contract.Chat(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *app) listToolsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": a.handler.Tools()})
}

func (a *app) executeToolHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	fullToolName := vars["worker"] + "_" + vars["tool"]

	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
	if err != nil {
		a.writeError(w, fmt.Errorf("%w: %v", workers.ErrInvalidInput, err))
		return
	}
	if len(args) > 0 && !json.Valid(args) {
		a.writeError(w, fmt.Errorf("%w: body is not valid JSON", workers.ErrInvalidInput))
		return
	}

	result, err := a.handler.ExecuteTool(r.Context(), fullToolName, args)
	if err != nil {
		a.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(result)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpload)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", workers.ErrInvalidInput, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workers.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, mcp.ErrToolNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (a *app) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
