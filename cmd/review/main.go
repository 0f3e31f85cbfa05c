package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/ericksa/legalese/internal/clause"
	"github.com/ericksa/legalese/internal/config"
	"github.com/ericksa/legalese/internal/logging"
	"github.com/ericksa/legalese/internal/workers"
)

// Report is a reviewed contract ready for rendering
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Filename    string           `json:"filename"`
	Summary     Summary          `json:"summary"`
	Clauses     []ReviewedClause `json:"clauses"`
	Question    string           `json:"question,omitempty"`
	Answer      string           `json:"answer,omitempty"`
	AnswerError bool             `json:"answer_error,omitempty"`
}

type Summary struct {
	Total  int `json:"total"`
	Red    int `json:"red"`
	Yellow int `json:"yellow"`
	Green  int `json:"green"`
}

type ReviewedClause struct {
	Position    int         `json:"position"`
	Text        string      `json:"text"`
	Risk        clause.Risk `json:"risk"`
	Explanation string      `json:"explanation"`
	Suggestion  string      `json:"suggestion,omitempty"`
}

// Options control which assistive steps run after analysis
type Options struct {
	Rewrite  bool
	Question string
}

func main() {
	var (
		output   = flag.String("output", "console", "Output format: console, json, or file path (.json, .md, .txt)")
		rewrite  = flag.Bool("rewrite", false, "Suggest rewrites for Red and Yellow clauses")
		question = flag.String("ask", "", "Ask a question about the contract")
		verbose  = flag.Bool("v", false, "Log progress to stderr")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || flag.NArg() != 1 {
		printHelp(os.Stdout)
		if *help {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := logging.New(level, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	path := flag.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	worker, _ := workers.NewContractWorkerFromConfig(cfg, nil, logger)
	report, err := generateReport(context.Background(), worker, filepath.Base(path), string(content), Options{
		Rewrite:  *rewrite,
		Question: *question,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	toFile := false
	switch {
	case *output == "console":
		err = writeTextReport(os.Stdout, report)
	case *output == "json":
		err = writeJSONReport(os.Stdout, report)
	case strings.HasSuffix(*output, ".json"):
		err, toFile = writeReportFile(*output, report, writeJSONReport), true
	case strings.HasSuffix(*output, ".md") || strings.HasSuffix(*output, ".txt"):
		err, toFile = writeReportFile(*output, report, writeTextReport), true
	default:
		// Default to console for unknown output
		err = writeTextReport(os.Stdout, report)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}
	if toFile {
		fmt.Printf("Report written to: %s\n", *output)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `Legalese Contract Review

USAGE:
    review [OPTIONS] <contract.txt>

OPTIONS:
    -output <format>   Output format: console, json, or file path (.json, .md, .txt)
                       (default: console)
    -rewrite           Suggest balanced rewrites for Red and Yellow clauses
    -ask <question>    Ask a question about the contract (needs HF_TOKEN)
    -v                 Log progress to stderr
    -help              Show this help message

EXAMPLES:
    # Risk overview
    review msa.txt

    # Suggested rewrites saved as markdown
    review -rewrite -output msa-review.md msa.txt

    # Question answering
    HF_TOKEN=hf_xxx review -ask "Who bears liability for data loss?" msa.txt
`)
}

func generateReport(ctx context.Context, w *workers.ContractWorker, filename, content string, opts Options) (*Report, error) {
	analysed, err := w.Analyze(ctx, workers.AnalyzeRequest{Content: content, Filename: filename})
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: time.Now(),
		Filename:    filename,
		Clauses:     make([]ReviewedClause, 0, len(analysed.Results)),
	}

	for i, r := range analysed.Results {
		rc := ReviewedClause{
			Position:    i + 1,
			Text:        r.Text,
			Risk:        r.Risk,
			Explanation: r.Explanation,
		}
		switch r.Risk {
		case clause.Red:
			report.Summary.Red++
		case clause.Yellow:
			report.Summary.Yellow++
		default:
			report.Summary.Green++
		}
		if opts.Rewrite && r.Risk > clause.Green {
			neg, err := w.Negotiate(ctx, workers.NegotiateRequest{Text: r.Text})
			if err != nil {
				return nil, err
			}
			rc.Suggestion = neg.RewrittenText
		}
		report.Clauses = append(report.Clauses, rc)
	}
	report.Summary.Total = len(report.Clauses)

	if opts.Question != "" {
		chat, err := w.Chat(ctx, workers.ChatRequest{Content: content, Question: opts.Question})
		if err != nil {
			return nil, err
		}
		report.Question = opts.Question
		report.Answer = chat.Answer
		report.AnswerError = chat.Error
	}

	return report, nil
}

const textTemplate = `# Contract Review: {{.Filename}}
Generated: {{.GeneratedAt.Format "Mon Jan 2, 2006 3:04 PM"}}

| Risk | Count |
|------|-------|
| Red | {{.Summary.Red}} |
| Yellow | {{.Summary.Yellow}} |
| Green | {{.Summary.Green}} |
| **Total** | **{{.Summary.Total}}** |
{{range .Clauses}}
## {{.Position}}. [{{.Risk}}] {{.Explanation}}

> {{.Text}}
{{- if .Suggestion}}

Suggested: {{.Suggestion}}
{{- end}}
{{end}}
{{- if eq .Summary.Total 0}}
No reviewable clauses found.
{{end}}
{{- if .Question}}
## Q&A

Q: {{.Question}}
A: {{.Answer}}{{if .AnswerError}} (unavailable){{end}}
{{end}}`

var reportTemplate = template.Must(template.New("report").Parse(textTemplate))

func writeTextReport(w io.Writer, report *Report) error {
	return reportTemplate.Execute(w, report)
}

func writeJSONReport(w io.Writer, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeReportFile(path string, report *Report, write func(io.Writer, *Report) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
