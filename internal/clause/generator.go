package clause

import (
	"context"
	"errors"
	"fmt"
)

// GenerationRequest is a prompt-shaped payload for a text-generation endpoint.
type GenerationRequest struct {
	Inputs       string
	MaxNewTokens int
	Temperature  float64
}

// Generator calls a remote text-generation endpoint and returns the generated text.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

var (
	// ErrNoCredentials is returned when no remote generator is configured.
	ErrNoCredentials = errors.New("AI service credentials not configured")
	// ErrEmptyGeneration is returned when the endpoint answered with blank text.
	ErrEmptyGeneration = errors.New("empty generated text")
)

// RemoteError describes a response the generation endpoint returned but that could
// not be used: a non-success status, or a success status with an unexpected body.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("generation endpoint returned %d: %s", e.StatusCode, e.Body)
}
