package validator

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model for every validation request.
const SystemPrompt = "You are a document compliance expert. Analyze documents against rules and provide structured validation results."

// OutputSchema is the exact JSON shape the model is told to return.
const OutputSchema = `{
  "results": [
    {
      "rule": "exact rule text here",
      "status": "pass",
      "evidence": "Found in page 2: 'specific quote from document'",
      "reasoning": "Brief explanation",
      "confidence": 85
    }
  ]
}`

// BuildPrompt renders the document text and rules into the user message.
// The text is embedded as-is; callers enforce any size limit upstream.
func BuildPrompt(documentText string, rules []string) string {
	numbered := make([]string, len(rules))
	for i, rule := range rules {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, rule)
	}

	return strings.Join([]string{
		"You are validating a document against specific rules. For each rule, determine if the document PASSES or FAILS.",
		"",
		"DOCUMENT TEXT:",
		documentText,
		"",
		"RULES TO VALIDATE:",
		strings.Join(numbered, "\n"),
		"",
		"For each rule, provide:",
		`1. status: "pass" or "fail"`,
		`2. evidence: One specific sentence or phrase quoted from the document (include the page number if it appears under a "--- Page X ---" marker)`,
		"3. reasoning: Brief explanation of why it passes or fails",
		"4. confidence: Integer from 0-100 indicating your certainty",
		"",
		"Return one result per rule, in the same order as the rules above.",
		"IMPORTANT: Return your response as valid JSON in this exact format (no markdown, just pure JSON):",
		OutputSchema,
		"",
		"Be precise and quote directly from the document for evidence.",
	}, "\n")
}
