package clause

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DefaultModelName is the pretrained checkpoint the model path is built around.
const DefaultModelName = "nlpaueb/legal-bert-base-uncased"

// SequenceClassifier is a trained clause classifier. Classify reports ok=false when
// it declines to decide, in which case keyword heuristics are used.
type SequenceClassifier interface {
	Classify(text string) (Assessment, bool)
}

// ModelState records whether a trained classifier is available. It is built once at
// startup by LoadModel and only read afterwards.
type ModelState struct {
	Loaded     bool
	Name       string
	Labels     []string
	classifier SequenceClassifier
}

// Available reports whether the model path can be consulted.
func (m *ModelState) Available() bool {
	return m != nil && m.Loaded && m.classifier != nil
}

// ModelOptions controls LoadModel.
type ModelOptions struct {
	Skip bool
	Name string
	// Path is a local checkpoint directory holding the model's config.json.
	Path string
}

// NewModelState wraps an already constructed classifier. Used by tests and by
// callers embedding their own inference runtime.
func NewModelState(name string, c SequenceClassifier) *ModelState {
	if c == nil {
		return &ModelState{Name: name}
	}
	return &ModelState{Loaded: true, Name: name, classifier: c}
}

// LoadModel resolves the optional trained model. Failure is never fatal: the
// returned state is simply "not loaded" and classification stays heuristic.
func LoadModel(opts ModelOptions, logger *zap.Logger) *ModelState {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := opts.Name
	if name == "" {
		name = DefaultModelName
	}
	state := &ModelState{Name: name}

	if opts.Skip {
		logger.Info("Skipping AI model loading, using heuristics only")
		return state
	}
	if opts.Path == "" {
		logger.Info("No model checkpoint configured, using heuristics only", zap.String("model", name))
		return state
	}

	logger.Info("Loading model", zap.String("model", name), zap.String("path", opts.Path))
	labels, err := readCheckpointLabels(opts.Path)
	if err != nil {
		logger.Warn("Could not load model, falling back to heuristic analysis",
			zap.String("model", name), zap.Error(err))
		return state
	}

	state.Loaded = true
	state.Labels = labels
	state.classifier = pretrainedClassifier{name: name}
	logger.Info("Model loaded", zap.String("model", name), zap.Int("labels", len(labels)))
	return state
}

type checkpointConfig struct {
	Architectures []string          `json:"architectures"`
	ID2Label      map[string]string `json:"id2label"`
	NumLabels     int               `json:"num_labels"`
}

func readCheckpointLabels(dir string) ([]string, error) {
	b, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("read checkpoint config: %w", err)
	}
	var cfg checkpointConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse checkpoint config: %w", err)
	}
	n := cfg.NumLabels
	if n == 0 {
		n = len(cfg.ID2Label)
	}
	if n == 0 {
		n = 3
	}
	labels := make([]string, n)
	for i := range labels {
		if l, ok := cfg.ID2Label[fmt.Sprint(i)]; ok {
			labels[i] = l
		} else {
			labels[i] = fmt.Sprintf("LABEL_%d", i)
		}
	}
	return labels, nil
}

// pretrainedClassifier stands in for the base checkpoint. Its classification head
// is not fine-tuned, so it always defers to the keyword heuristics.
// TODO: swap for a fine-tuned three-label head once a checkpoint is trained.
type pretrainedClassifier struct {
	name string
}

func (pretrainedClassifier) Classify(string) (Assessment, bool) {
	return Assessment{}, false
}
