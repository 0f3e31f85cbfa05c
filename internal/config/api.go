package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

const masked = "***"

// ConfigAPI provides HTTP endpoints to view and validate configuration
type ConfigAPI struct {
	cfg    *Config
	mu     sync.RWMutex
	router *mux.Router
	load   func() (*Config, error)
}

func NewConfigAPI(cfg *Config) *ConfigAPI {
	api := &ConfigAPI{
		cfg:    cfg,
		router: mux.NewRouter(),
		load:   Load,
	}
	api.routes()
	return api
}

func (api *ConfigAPI) Router() *mux.Router {
	return api.router
}

// Register mounts the configuration routes on an existing router.
func (api *ConfigAPI) Register(r *mux.Router) {
	r.HandleFunc("/configure", api.getConfig).Methods("GET")
	r.HandleFunc("/configure/", api.getConfig).Methods("GET")
	r.HandleFunc("/configure/reload", api.reloadConfig).Methods("POST")
	r.HandleFunc("/configure/validate", api.validateConfig).Methods("POST")
	r.HandleFunc("/configure/{section}", api.getSection).Methods("GET")
}

func (api *ConfigAPI) routes() {
	api.Register(api.router)
}

func (api *ConfigAPI) getConfig(w http.ResponseWriter, r *http.Request) {
	api.mu.RLock()
	defer api.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.safeConfigCopy())
}

func (api *ConfigAPI) getSection(w http.ResponseWriter, r *http.Request) {
	api.mu.RLock()
	defer api.mu.RUnlock()

	safe := api.safeConfigCopy()
	section := mux.Vars(r)["section"]
	var sectionCfg interface{}

	switch section {
	case "server":
		sectionCfg = safe.Legalese.Server
	case "auth":
		sectionCfg = safe.Legalese.Auth
	case "ai":
		sectionCfg = safe.Legalese.AI
	case "store":
		sectionCfg = safe.Legalese.Store
	case "audit":
		sectionCfg = safe.Legalese.Audit
	case "log":
		sectionCfg = safe.Legalese.Log
	default:
		http.Error(w, fmt.Sprintf("unknown section: %s", section), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sectionCfg)
}

func (api *ConfigAPI) reloadConfig(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()
	reloadedCfg, err := api.load()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to reload config: %v", err), http.StatusInternalServerError)
		return
	}
	if err := reloadedCfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration: %v", err), http.StatusBadRequest)
		return
	}
	*api.cfg = *reloadedCfg
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.safeConfigCopy())
}

func (api *ConfigAPI) validateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, fmt.Sprintf("invalid config payload: %v", err), http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration: %v", err), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"valid": true, "message": "configuration is valid"})
}

func (api *ConfigAPI) safeConfigCopy() *Config {
	copyCfg := *api.cfg
	copyCfg.Legalese.Server.AllowedOrigins = append([]string(nil), api.cfg.Legalese.Server.AllowedOrigins...)
	if copyCfg.Legalese.AI.HFToken != "" {
		copyCfg.Legalese.AI.HFToken = masked
	}
	if copyCfg.Legalese.Auth.Token != "" {
		copyCfg.Legalese.Auth.Token = masked
	}
	return &copyCfg
}
