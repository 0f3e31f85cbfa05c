package clause

// Result is one analysed clause, in document order.
type Result struct {
	Text        string `json:"text"`
	Risk        Risk   `json:"risk"`
	Explanation string `json:"explanation"`
}

// Analyzer composes segmentation and classification.
type Analyzer struct {
	classifier *Classifier
}

func NewAnalyzer(classifier *Classifier) *Analyzer {
	return &Analyzer{classifier: classifier}
}

// Analyze segments text and classifies every clause in order.
func (a *Analyzer) Analyze(text string) []Result {
	clauses := Segment(text)
	results := make([]Result, 0, len(clauses))
	for _, c := range clauses {
		assessment := a.classifier.Classify(c)
		results = append(results, Result{
			Text:        c,
			Risk:        assessment.Risk,
			Explanation: assessment.Explanation,
		})
	}
	return results
}
