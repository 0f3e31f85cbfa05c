package clause

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRewrite_Rules(t *testing.T) {
	tests := []struct {
		name     string
		clause   string
		expected string
	}{
		{
			"indemnify replaced whole",
			"The Vendor shall indemnify the Client against all claims.",
			mutualIndemnity,
		},
		{
			"sole discretion",
			"Fees may be changed at the Provider's sole discretion.",
			"Fees may be changed at the Provider's reasonable discretion.",
		},
		{
			"30 days",
			"This agreement shall terminate after 30 days notice.",
			"This agreement shall terminate after 90 days notice.",
		},
		{
			"indemnify beats other rules",
			"At its sole discretion the Vendor shall INDEMNIFY within 30 days.",
			mutualIndemnity,
		},
		{
			"sole discretion beats 30 days",
			"At its sole discretion, within 30 days.",
			"At its reasonable discretion, within 30 days.",
		},
		{
			"no trigger",
			"Payment shall be made in USD.",
			genericSuggestion,
		},
		{
			"detected but substitution is case sensitive",
			"Decisions are at the Provider's Sole Discretion.",
			genericSuggestion,
		},
	}

	r := NewRewriter(nil, RewriterOptions{}, zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Rewrite(context.Background(), tt.clause))
		})
	}
}

func TestRewrite_RemoteTakesPriority(t *testing.T) {
	gen := &stubGenerator{text: "  Each party may terminate on 90 days written notice.\n"}
	r := NewRewriter(gen, RewriterOptions{}, zap.NewNop())

	out := r.Rewrite(context.Background(), "The Vendor shall indemnify the Client against all claims.")
	assert.Equal(t, "Each party may terminate on 90 days written notice.", out)

	require.Equal(t, 1, gen.calls())
	req := gen.requests[0]
	assert.Equal(t, DefaultRewriteMaxTokens, req.MaxNewTokens)
	assert.InDelta(t, 0.3, req.Temperature, 1e-9)
	assert.Contains(t, req.Inputs, "[INST] ")
	assert.Contains(t, req.Inputs, "mutually beneficial")
	assert.Contains(t, req.Inputs, "Clause: The Vendor shall indemnify the Client against all claims. [/INST]")
	assert.True(t, gen.deadline, "remote call must be bounded by a timeout")
}

func TestRewrite_RemoteFailureFallsBack(t *testing.T) {
	failures := []error{
		errors.New("dial tcp: connection refused"),
		&RemoteError{StatusCode: 503, Body: "model loading"},
		&RemoteError{StatusCode: 200, Body: `{"unexpected":true}`},
	}
	for _, failure := range failures {
		gen := &stubGenerator{err: failure}
		r := NewRewriter(gen, RewriterOptions{}, zap.NewNop())

		assert.Equal(t, "This agreement shall terminate after 90 days notice.",
			r.Rewrite(context.Background(), "This agreement shall terminate after 30 days notice."))
		assert.Equal(t, genericSuggestion, r.Rewrite(context.Background(), "Payment shall be made in USD."))
	}
}

func TestRewrite_BlankGenerationFallsBack(t *testing.T) {
	r := NewRewriter(&stubGenerator{text: "   "}, RewriterOptions{}, zap.NewNop())
	assert.Equal(t, mutualIndemnity, r.Rewrite(context.Background(), "Client shall indemnify Vendor."))
}

func TestRewrite_Timeout(t *testing.T) {
	r := NewRewriter(blockingGenerator{}, RewriterOptions{Timeout: 20 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	out := r.Rewrite(context.Background(), "Payment shall be made in USD.")
	assert.Equal(t, genericSuggestion, out)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRewrite_AlwaysNonEmpty(t *testing.T) {
	r := NewRewriter(&stubGenerator{err: errors.New("boom")}, RewriterOptions{}, nil)
	for _, c := range []string{"x", "Payment shall be made in USD.", "indemnify", "30 days", "sole discretion"} {
		assert.NotEmpty(t, r.Rewrite(context.Background(), c))
	}
}
