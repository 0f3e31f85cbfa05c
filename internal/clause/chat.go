package clause

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	chatSystemPrompt = "You are an expert legal assistant. Use the provided contract text to answer the user's question accurately. If the answer is not in the text, state that clearly. Do not make up legal facts."

	// MissingCredentialsMessage is what Chat returns when no generator is configured.
	MissingCredentialsMessage = "Error: AI Service credentials not configured (HF_TOKEN)."

	DefaultChatTimeout      = 30 * time.Second
	DefaultChatMaxTokens    = 500
	DefaultChatContextChars = 15000
	chatTemperature         = 0.4
)

// DocumentQAOptions tunes the question-answering call.
type DocumentQAOptions struct {
	Timeout      time.Duration
	MaxTokens    int
	ContextChars int
}

// DocumentQA answers questions about a document with a single remote call over a
// truncated copy of its text. There is no local fallback.
type DocumentQA struct {
	gen          Generator
	timeout      time.Duration
	maxTokens    int
	contextChars int
	logger       *zap.Logger
}

func NewDocumentQA(gen Generator, opts DocumentQAOptions, logger *zap.Logger) *DocumentQA {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultChatTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultChatMaxTokens
	}
	if opts.ContextChars <= 0 {
		opts.ContextChars = DefaultChatContextChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentQA{
		gen:          gen,
		timeout:      opts.Timeout,
		maxTokens:    opts.MaxTokens,
		contextChars: opts.ContextChars,
		logger:       logger,
	}
}

// Ask answers question from content. Errors are ErrNoCredentials, *RemoteError or
// the transport error from the generator.
func (q *DocumentQA) Ask(ctx context.Context, content, question string) (string, error) {
	if q.gen == nil {
		return "", ErrNoCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	text, err := q.gen.Generate(ctx, GenerationRequest{
		Inputs:       q.prompt(content, question),
		MaxNewTokens: q.maxTokens,
		Temperature:  chatTemperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Chat is Ask with failures rendered as a message. Callers cannot tell an error
// from an answer by type; use Ask, or check IsErrorAnswer, when that matters.
func (q *DocumentQA) Chat(ctx context.Context, content, question string) string {
	answer, err := q.Ask(ctx, content, question)
	if err == nil {
		return answer
	}
	q.logger.Warn("Document chat failed", zap.Error(err))
	return ErrorAnswer(err)
}

// ErrorAnswer renders an Ask error the way Chat reports it.
func ErrorAnswer(err error) string {
	var remote *RemoteError
	switch {
	case errors.Is(err, ErrNoCredentials):
		return MissingCredentialsMessage
	case errors.As(err, &remote):
		return fmt.Sprintf("Error from AI provider: %d - %s", remote.StatusCode, remote.Body)
	default:
		return fmt.Sprintf("Timeout or Error: %v", err)
	}
}

// IsErrorAnswer reports whether a Chat answer is one of the rendered failures.
func IsErrorAnswer(answer string) bool {
	return answer == MissingCredentialsMessage ||
		strings.HasPrefix(answer, "Error from AI provider: ") ||
		strings.HasPrefix(answer, "Timeout or Error: ")
}

func (q *DocumentQA) prompt(content, question string) string {
	return fmt.Sprintf("[INST] %s\n\nContract Context:\n%s\n\nUser Question: %s [/INST]",
		chatSystemPrompt, Truncate(content, q.contextChars), question)
}

// Truncate returns at most n characters (runes) of s.
func Truncate(s string, n int) string {
	if n < 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
