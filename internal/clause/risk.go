package clause

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Risk is the coarse risk tier of a clause. Tiers are ordered by severity.
type Risk int

const (
	Green Risk = iota
	Yellow
	Red
)

func (r Risk) String() string {
	switch r {
	case Green:
		return "Green"
	case Yellow:
		return "Yellow"
	case Red:
		return "Red"
	default:
		return fmt.Sprintf("Risk(%d)", int(r))
	}
}

// ParseRisk maps a stored tier name back to a Risk.
func ParseRisk(s string) (Risk, error) {
	switch s {
	case "Green":
		return Green, nil
	case "Yellow":
		return Yellow, nil
	case "Red":
		return Red, nil
	}
	return Green, fmt.Errorf("unknown risk tier: %q", s)
}

func (r Risk) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Risk) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRisk(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Assessment is the classifier's judgment for one clause.
type Assessment struct {
	Risk        Risk   `json:"risk"`
	Explanation string `json:"explanation"`
}

const (
	explainHighRisk = "High risk language detected (Indemnity/Liability)."
	explainReview   = "Non-standard term or requires review."
	explainStandard = "Standard language."
)

type riskRule struct {
	keywords    []string
	risk        Risk
	explanation string
}

// Evaluated top to bottom; the first rule with a matching keyword wins.
var riskRules = []riskRule{
	{
		keywords:    []string{"indemnify", "uncapped liability", "sole discretion", "liquidated damages"},
		risk:        Red,
		explanation: explainHighRisk,
	},
	{
		keywords:    []string{"arbitration", "jurisdiction", "terminate", "30 days"},
		risk:        Yellow,
		explanation: explainReview,
	},
}

// Classifier assigns a risk tier to a clause. The zero value classifies with
// heuristics only.
type Classifier struct {
	model *ModelState
}

func NewClassifier(model *ModelState) *Classifier {
	return &Classifier{model: model}
}

// Classify returns the assessment for a single clause. It is total over any input.
func (c *Classifier) Classify(text string) Assessment {
	if c != nil && c.model.Available() {
		if a, ok := c.model.classifier.Classify(text); ok {
			return a
		}
	}
	return classifyByKeywords(text)
}

func classifyByKeywords(text string) Assessment {
	lower := strings.ToLower(text)
	for _, rule := range riskRules {
		if containsAny(lower, rule.keywords) {
			return Assessment{Risk: rule.risk, Explanation: rule.explanation}
		}
	}
	return Assessment{Risk: Green, Explanation: explainStandard}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
