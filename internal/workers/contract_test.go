package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/ericksa/legalese/internal/clause"
	"github.com/ericksa/legalese/internal/config"
	"github.com/ericksa/legalese/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testContract = "SERVICES AGREEMENT\n" +
	"The Vendor shall indemnify the Client against all claims.\n" +
	"This agreement shall terminate after 30 days notice.\n" +
	"Payment shall be made in USD."

func newTestContractWorker(t *testing.T, gen clause.Generator) (*ContractWorker, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	w := NewContractWorker(ContractWorkerConfig{
		Model:     clause.LoadModel(clause.ModelOptions{Skip: true}, zap.NewNop()),
		Generator: gen,
		Store:     s,
		BasePath:  t.TempDir(),
	}, zap.NewNop())
	return w, s
}

func TestContractWorker_AnalyzeAndGet(t *testing.T) {
	w, _ := newTestContractWorker(t, nil)
	ctx := context.Background()

	out, err := w.Execute(ctx, "contract_analyze", []byte(`{"content":`+jsonString(testContract)+`,"filename":"msa.txt","user_id":"u1"}`))
	require.NoError(t, err)

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "msa.txt", resp.Filename)
	assert.NotZero(t, resp.DocumentID)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, clause.Red, resp.Results[0].Risk)
	assert.Equal(t, clause.Yellow, resp.Results[1].Risk)
	assert.Equal(t, clause.Green, resp.Results[2].Risk)

	doc, err := w.GetDocument(ctx, resp.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, testContract, doc.Content)
	assert.Equal(t, resp.Results, doc.Results)

	docs, err := w.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 3, docs[0].ClauseCount)
}

func TestContractWorker_AnalyzeFromPath(t *testing.T) {
	w, _ := newTestContractWorker(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(w.basePath, "nda.txt"), []byte(testContract), 0644))

	resp, err := w.Analyze(context.Background(), AnalyzeRequest{Path: "nda.txt"})
	require.NoError(t, err)
	assert.Equal(t, "nda.txt", resp.Filename)
	assert.Len(t, resp.Results, 3)

	_, err = w.Analyze(context.Background(), AnalyzeRequest{Path: "missing.txt"})
	assert.Error(t, err)
}

func TestContractWorker_AnalyzeRejectsPathsOutsideBase(t *testing.T) {
	w, s := newTestContractWorker(t, nil)
	ctx := context.Background()

	outside := filepath.Join(filepath.Dir(w.basePath), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte(testContract), 0644))

	for _, path := range []string{
		"/etc/passwd",
		outside,
		"../secret.txt",
		"sub/../../secret.txt",
		"../../../../../../etc/passwd",
	} {
		_, err := w.Analyze(ctx, AnalyzeRequest{Path: path})
		assert.ErrorIs(t, err, ErrInvalidInput, path)
	}

	docs, err := s.ListDocuments(ctx, "anonymous")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestContractWorker_AnalyzePathWithoutBase(t *testing.T) {
	w := NewContractWorker(ContractWorkerConfig{}, zap.NewNop())
	_, err := w.Analyze(context.Background(), AnalyzeRequest{Path: "nda.txt"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewContractWorkerFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Legalese.AI.SkipModelLoading = true
	cfg.Legalese.AI.Provider = ProviderHuggingFace
	cfg.Legalese.Server.BasePath = t.TempDir()

	w, gen := NewContractWorkerFromConfig(cfg, nil, zap.NewNop())
	assert.Nil(t, gen)
	assert.Equal(t, cfg.Legalese.Server.BasePath, w.basePath)
	assert.Equal(t, "using heuristics", w.Status().AIModel)

	cfg.Legalese.AI.HFToken = "hf_test"
	_, gen = NewContractWorkerFromConfig(cfg, nil, zap.NewNop())
	assert.IsType(t, &HuggingFaceWorker{}, gen)
}

func TestNewContractWorkerFromConfig_TGIWithoutEndpoint(t *testing.T) {
	cfg := &config.Config{}
	cfg.Legalese.AI.SkipModelLoading = true
	cfg.Legalese.AI.Provider = ProviderTGI
	cfg.Legalese.AI.HFToken = "hf_test"

	w, gen := NewContractWorkerFromConfig(cfg, nil, zap.NewNop())
	assert.Nil(t, gen)

	resp, err := w.Chat(context.Background(), ChatRequest{Content: testContract, Question: "Who pays?"})
	require.NoError(t, err)
	assert.Equal(t, clause.MissingCredentialsMessage, resp.Answer)
	assert.True(t, resp.Error)
}

func TestResolvePath(t *testing.T) {
	base := t.TempDir()

	got, err := resolvePath(base, "contracts/../nda.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "nda.txt"), got)

	_, err = resolvePath(base, "..")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestContractWorker_AnalyzeRequiresContent(t *testing.T) {
	w, _ := newTestContractWorker(t, nil)
	_, err := w.Analyze(context.Background(), AnalyzeRequest{Content: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = w.Execute(context.Background(), "analyze", []byte(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestContractWorker_AnalyzeWithoutStore(t *testing.T) {
	w := NewContractWorker(ContractWorkerConfig{}, nil)
	resp, err := w.Analyze(context.Background(), AnalyzeRequest{Content: testContract})
	require.NoError(t, err)
	assert.Zero(t, resp.DocumentID)
	assert.Len(t, resp.Results, 3)

	_, err = w.ListDocuments(context.Background(), "")
	assert.Error(t, err)
}

func TestContractWorker_Negotiate(t *testing.T) {
	w, _ := newTestContractWorker(t, nil)

	out, err := w.Execute(context.Background(), "negotiate", []byte(`{"text":"The Vendor shall indemnify the Client against all claims."}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"rewritten_text":"Each party shall indemnify the other for direct damages resulting from its gross negligence or willful misconduct."}`, string(out))

	_, err = w.Negotiate(context.Background(), NegotiateRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestContractWorker_NegotiateRemote(t *testing.T) {
	srv, _ := newInferenceServer(t, http.StatusOK, `[{"generated_text":"Either party may terminate on 90 days notice."}]`)
	w, _ := newTestContractWorker(t, NewHuggingFaceWorker(HuggingFaceConfig{APIToken: "t", Endpoint: srv.URL}, nil))

	resp, err := w.Negotiate(context.Background(), NegotiateRequest{Text: "This agreement shall terminate after 30 days notice."})
	require.NoError(t, err)
	assert.Equal(t, "Either party may terminate on 90 days notice.", resp.RewrittenText)
}

func TestContractWorker_ChatWithoutCredentials(t *testing.T) {
	w, _ := newTestContractWorker(t, nil)

	resp, err := w.Chat(context.Background(), ChatRequest{Content: testContract, Question: "Who indemnifies whom?"})
	require.NoError(t, err)
	assert.True(t, resp.Error)
	assert.Equal(t, clause.MissingCredentialsMessage, resp.Answer)
}

func TestContractWorker_ChatStoredDocument(t *testing.T) {
	srv, captured := newInferenceServer(t, http.StatusOK, `[{"generated_text":" The Vendor indemnifies the Client. "}]`)
	w, _ := newTestContractWorker(t, NewHuggingFaceWorker(HuggingFaceConfig{APIToken: "t", Endpoint: srv.URL}, nil))
	ctx := context.Background()

	analysed, err := w.Analyze(ctx, AnalyzeRequest{Content: testContract})
	require.NoError(t, err)

	out, err := w.Execute(ctx, "chat", []byte(`{"document_id":`+jsonInt(analysed.DocumentID)+`,"question":"Who indemnifies whom?"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"The Vendor indemnifies the Client.","error":false}`, string(out))
	assert.Contains(t, (*captured)[0].Payload.Inputs, "Payment shall be made in USD.")
}

func TestContractWorker_ChatValidation(t *testing.T) {
	w, _ := newTestContractWorker(t, nil)
	ctx := context.Background()

	_, err := w.Chat(ctx, ChatRequest{Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = w.Chat(ctx, ChatRequest{Question: "q"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = w.Chat(ctx, ChatRequest{DocumentID: 404, Question: "q"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestContractWorker_Status(t *testing.T) {
	w, _ := newTestContractWorker(t, nil)
	assert.Equal(t, Status{AIModel: "using heuristics", Generator: "not configured", Store: true}, w.Status())

	loaded := NewContractWorker(ContractWorkerConfig{
		Model:     clause.NewModelState("legal-bert", stubSequenceClassifier{}),
		Generator: NewTGIWorker("http://tgi", "", nil),
	}, nil)
	out, err := loaded.Execute(context.Background(), "contract_status", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ai_model":"loaded","model_name":"legal-bert","generator":"configured","store":false}`, string(out))
}

func TestContractWorker_UnknownTool(t *testing.T) {
	w, _ := newTestContractWorker(t, nil)
	_, err := w.Execute(context.Background(), "contract_sign", nil)
	assert.Error(t, err)
	assert.Len(t, w.GetTools(), 6)
}

type stubSequenceClassifier struct{}

func (stubSequenceClassifier) Classify(string) (clause.Assessment, bool) {
	return clause.Assessment{}, false
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
