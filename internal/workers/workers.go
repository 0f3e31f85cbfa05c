package workers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ericksa/legalese/internal/clause"
	"go.uber.org/zap"
)

type ToolDef struct {
	Name        string
	Description string
}

const (
	ProviderHuggingFace = "huggingface"
	ProviderTGI         = "tgi"
)

// GeneratorConfig selects the remote text-generation backend.
type GeneratorConfig struct {
	Provider string
	Endpoint string
	Model    string
	APIToken string
}

// NewGenerator returns the configured backend, or nil when its credential (the API
// token for the hosted API, the endpoint for TGI) is missing.
func NewGenerator(cfg GeneratorConfig, logger *zap.Logger) clause.Generator {
	switch strings.ToLower(cfg.Provider) {
	case ProviderTGI:
		if cfg.Endpoint == "" {
			return nil
		}
		return NewTGIWorker(cfg.Endpoint, cfg.APIToken, logger)
	default:
		if cfg.APIToken == "" {
			return nil
		}
		return NewHuggingFaceWorker(HuggingFaceConfig{
			APIToken: cfg.APIToken,
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
		}, logger)
	}
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// resolvePath joins a caller-supplied relative path onto basePath. Absolute paths
// and paths that climb out of basePath are rejected.
func resolvePath(basePath, path string) (string, error) {
	if basePath == "" {
		return "", fmt.Errorf("%w: file access is not configured", ErrInvalidInput)
	}
	if filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		return "", fmt.Errorf("%w: path must be relative: %s", ErrInvalidInput, path)
	}
	base, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}
	full := filepath.Join(base, path)
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes base directory: %s", ErrInvalidInput, path)
	}
	return full, nil
}
