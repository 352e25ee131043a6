package validator

import (
	"context"

	"github.com/hetulpatel/pdfvalidator/internal/llm"
)

// RuleCount is the number of rules every validation request carries.
const RuleCount = 3

// Status is the model's judgment for one rule.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

// Page is the text of one document page. Number starts at 1.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// ExtractedDocument is the text content of one uploaded document. It is
// built once per request and never modified afterwards.
type ExtractedDocument struct {
	FullText  string `json:"text"`
	PageCount int    `json:"pages"`
	Pages     []Page `json:"page_contents"`
}

// Verdict is the structured judgment for one rule.
type Verdict struct {
	Rule       string `json:"rule" yaml:"rule"`
	Status     Status `json:"status" yaml:"status"`
	Evidence   string `json:"evidence" yaml:"evidence"`
	Reasoning  string `json:"reasoning" yaml:"reasoning"`
	Confidence int    `json:"confidence" yaml:"confidence"`
}

// Outcome is returned to the caller once all stages succeed.
type Outcome struct {
	Results        []Verdict `json:"results" yaml:"results"`
	PageCount      int       `json:"pdf_pages" yaml:"pdf_pages"`
	ProcessingTime float64   `json:"processing_time" yaml:"processing_time"`
}

// Passed counts verdicts with StatusPass.
func (o *Outcome) Passed() int {
	n := 0
	for _, v := range o.Results {
		if v.Status == StatusPass {
			n++
		}
	}
	return n
}

// Extractor turns a document on disk into page-annotated text.
type Extractor interface {
	Extract(ctx context.Context, path string) (*ExtractedDocument, error)
}

// Config controls the validator behavior.
type Config struct {
	Extractor    Extractor
	Invoker      llm.Invoker
	SystemPrompt string
}
