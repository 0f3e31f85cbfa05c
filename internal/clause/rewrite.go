package clause

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	rewriteSystemPrompt = "You are an expert legal counsel. Rewrite the provided clause to be 'mutually beneficial' while retaining essential protections for the user. Output ONLY the rewritten text."

	mutualIndemnity   = "Each party shall indemnify the other for direct damages resulting from its gross negligence or willful misconduct."
	genericSuggestion = "Suggested revision: [Insert mutual cap on liability and mutual indemnification]"

	DefaultRewriteTimeout   = 10 * time.Second
	DefaultRewriteMaxTokens = 250
	rewriteTemperature      = 0.3
)

type rewriteRule struct {
	trigger string
	apply   func(clause string) string
}

// Evaluated top to bottom against the lower-cased clause; only the first match fires.
// Substitutions operate on the original text.
var rewriteRules = []rewriteRule{
	{trigger: "indemnify", apply: func(string) string { return mutualIndemnity }},
	{trigger: "sole discretion", apply: func(c string) string {
		return strings.ReplaceAll(c, "sole discretion", "reasonable discretion")
	}},
	{trigger: "30 days", apply: func(c string) string {
		return strings.ReplaceAll(c, "30 days", "90 days")
	}},
}

// RewriterOptions tunes the remote tier.
type RewriterOptions struct {
	Timeout   time.Duration
	MaxTokens int
}

// Rewriter suggests balanced replacement language for a clause.
type Rewriter struct {
	gen       Generator
	timeout   time.Duration
	maxTokens int
	logger    *zap.Logger
}

// NewRewriter builds a Rewriter. A nil Generator disables the remote tier.
func NewRewriter(gen Generator, opts RewriterOptions, logger *zap.Logger) *Rewriter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRewriteTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultRewriteMaxTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rewriter{gen: gen, timeout: opts.Timeout, maxTokens: opts.MaxTokens, logger: logger}
}

// Rewrite returns a suggested replacement. It tries the remote generator, then the
// substitution rules, then a generic suggestion. It never fails.
func (r *Rewriter) Rewrite(ctx context.Context, clause string) string {
	if r.gen != nil {
		text, err := r.rewriteRemote(ctx, clause)
		if err == nil {
			return text
		}
		r.logger.Warn("LLM rewrite failed, using rule-based fallback", zap.Error(err))
	}

	rewritten := RewriteByRules(clause)
	if rewritten == clause {
		return genericSuggestion
	}
	return rewritten
}

func (r *Rewriter) rewriteRemote(ctx context.Context, clause string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	text, err := r.gen.Generate(ctx, GenerationRequest{
		Inputs:       "[INST] " + rewriteSystemPrompt + " \n\n Clause: " + clause + " [/INST]",
		MaxNewTokens: r.maxTokens,
		Temperature:  rewriteTemperature,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

// RewriteByRules applies the first matching substitution rule. The clause is
// returned unchanged when no rule applies.
func RewriteByRules(clause string) string {
	lower := strings.ToLower(clause)
	for _, rule := range rewriteRules {
		if strings.Contains(lower, rule.trigger) {
			return rule.apply(clause)
		}
	}
	return clause
}
