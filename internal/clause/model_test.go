package clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoadModel_Skip(t *testing.T) {
	m := LoadModel(ModelOptions{Skip: true, Path: t.TempDir()}, zap.NewNop())
	assert.False(t, m.Loaded)
	assert.False(t, m.Available())
	assert.Equal(t, DefaultModelName, m.Name)
}

func TestLoadModel_NoPath(t *testing.T) {
	m := LoadModel(ModelOptions{}, nil)
	assert.False(t, m.Loaded)
}

func TestLoadModel_MissingArtifact(t *testing.T) {
	m := LoadModel(ModelOptions{Path: filepath.Join(t.TempDir(), "missing")}, zap.NewNop())
	assert.False(t, m.Loaded)
}

func TestLoadModel_BadConfig(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0644)

	m := LoadModel(ModelOptions{Path: dir}, zap.NewNop())
	assert.False(t, m.Loaded)
}

func TestLoadModel_Checkpoint(t *testing.T) {
	dir := t.TempDir()
	cfg := `{"architectures":["BertForSequenceClassification"],"id2label":{"0":"green","1":"yellow","2":"red"}}`
	os.WriteFile(filepath.Join(dir, "config.json"), []byte(cfg), 0644)

	m := LoadModel(ModelOptions{Name: "legal-bert", Path: dir}, zap.NewNop())
	assert.True(t, m.Loaded)
	assert.True(t, m.Available())
	assert.Equal(t, "legal-bert", m.Name)
	assert.Equal(t, []string{"green", "yellow", "red"}, m.Labels)

	// The base checkpoint never decides; heuristics still apply.
	c := NewClassifier(m)
	assert.Equal(t, Red, c.Classify("The Vendor shall indemnify the Client against all claims.").Risk)
	assert.Equal(t, Green, c.Classify("Payment shall be made in USD.").Risk)
}

func TestLoadModel_DefaultLabels(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{}`), 0644)

	m := LoadModel(ModelOptions{Path: dir}, zap.NewNop())
	assert.Equal(t, []string{"LABEL_0", "LABEL_1", "LABEL_2"}, m.Labels)
}

func TestNewModelState_NilClassifier(t *testing.T) {
	m := NewModelState("x", nil)
	assert.False(t, m.Available())
}
