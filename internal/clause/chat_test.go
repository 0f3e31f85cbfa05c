package clause

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChat_MissingCredentials(t *testing.T) {
	q := NewDocumentQA(nil, DocumentQAOptions{}, zap.NewNop())

	assert.Equal(t, MissingCredentialsMessage, q.Chat(context.Background(), "doc", "question?"))

	_, err := q.Ask(context.Background(), "doc", "question?")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestChat_Success(t *testing.T) {
	gen := &stubGenerator{text: "\n The notice period is 30 days. "}
	q := NewDocumentQA(gen, DocumentQAOptions{}, zap.NewNop())

	answer := q.Chat(context.Background(), "Either party may terminate on 30 days notice.", "What is the notice period?")
	assert.Equal(t, "The notice period is 30 days.", answer)
	assert.False(t, IsErrorAnswer(answer))

	require.Equal(t, 1, gen.calls())
	req := gen.requests[0]
	assert.Equal(t, DefaultChatMaxTokens, req.MaxNewTokens)
	assert.InDelta(t, 0.4, req.Temperature, 1e-9)
	assert.True(t, strings.HasPrefix(req.Inputs, "[INST] You are an expert legal assistant."))
	assert.Contains(t, req.Inputs, "state that clearly")
	assert.Contains(t, req.Inputs, "Contract Context:\nEither party may terminate on 30 days notice.")
	assert.True(t, strings.HasSuffix(req.Inputs, "User Question: What is the notice period? [/INST]"))
	assert.True(t, gen.deadline)
}

func TestChat_RemoteStatusError(t *testing.T) {
	gen := &stubGenerator{err: &RemoteError{StatusCode: 503, Body: "Model is currently loading"}}
	q := NewDocumentQA(gen, DocumentQAOptions{}, zap.NewNop())

	answer := q.Chat(context.Background(), "doc", "q")
	assert.Equal(t, "Error from AI provider: 503 - Model is currently loading", answer)
	assert.True(t, IsErrorAnswer(answer))

	_, err := q.Ask(context.Background(), "doc", "q")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 503, remote.StatusCode)
}

func TestChat_TransportError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection reset by peer")}
	q := NewDocumentQA(gen, DocumentQAOptions{}, zap.NewNop())

	answer := q.Chat(context.Background(), "doc", "q")
	assert.Equal(t, "Timeout or Error: connection reset by peer", answer)
	assert.True(t, IsErrorAnswer(answer))
	assert.Equal(t, 1, gen.calls(), "chat must not retry")
}

func TestChat_Timeout(t *testing.T) {
	q := NewDocumentQA(blockingGenerator{}, DocumentQAOptions{Timeout: 20 * time.Millisecond}, zap.NewNop())

	answer := q.Chat(context.Background(), "doc", "q")
	assert.True(t, strings.HasPrefix(answer, "Timeout or Error: "))
	assert.Contains(t, answer, context.DeadlineExceeded.Error())
}

func TestChat_TruncatesContext(t *testing.T) {
	gen := &stubGenerator{text: "ok"}
	q := NewDocumentQA(gen, DocumentQAOptions{}, zap.NewNop())

	doc := strings.Repeat("x", DefaultChatContextChars) + strings.Repeat("y", 5000)
	require.Len(t, doc, 20000)

	q.Chat(context.Background(), doc, "What?")

	require.Equal(t, 1, gen.calls())
	inputs := gen.requests[0].Inputs
	assert.Contains(t, inputs, "Contract Context:\n"+strings.Repeat("x", DefaultChatContextChars)+"\n\nUser Question:")
	assert.NotContains(t, inputs, "xy")
	assert.NotContains(t, inputs, "yyyy")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "éé", Truncate("éééé", 2))
	assert.Equal(t, "", Truncate("abc", -1))
}
