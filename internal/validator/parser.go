package validator

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	fenceJSON = "```json"
	fence     = "```"
)

const resultSchemaJSON = `{
  "type": "object",
  "required": ["results"],
  "properties": {
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["rule", "status", "evidence", "reasoning", "confidence"],
        "properties": {
          "rule": {"type": "string"},
          "status": {"type": "string", "enum": ["pass", "fail"]},
          "evidence": {"type": "string"},
          "reasoning": {"type": "string"},
          "confidence": {"type": "integer", "minimum": 0, "maximum": 100}
        }
      }
    }
  }
}`

var resultSchema = jsonschema.MustCompileString("validation-result.json", resultSchemaJSON)

// rawVerdict decodes confidence as a float so integral values such as 85.0
// pass through after schema validation.
type rawVerdict struct {
	Rule       string  `json:"rule"`
	Status     Status  `json:"status"`
	Evidence   string  `json:"evidence"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// UnwrapFences strips a markdown code fence around the model output.
// A ```json fence wins over a plain fence; unfenced text is returned as-is.
func UnwrapFences(raw string) string {
	if i := strings.Index(raw, fenceJSON); i >= 0 {
		inner := raw[i+len(fenceJSON):]
		if j := strings.Index(inner, fence); j >= 0 {
			inner = inner[:j]
		}
		return strings.TrimSpace(inner)
	}
	if i := strings.Index(raw, fence); i >= 0 {
		inner := raw[i+len(fence):]
		if j := strings.Index(inner, fence); j >= 0 {
			inner = inner[:j]
		}
		return strings.TrimSpace(inner)
	}
	return raw
}

// ParseResult decodes the completion into verdicts. Any schema violation
// rejects the whole payload.
func ParseResult(raw string) ([]Verdict, error) {
	body := UnwrapFences(raw)
	if strings.TrimSpace(body) == "" {
		return nil, &MalformedModelOutputError{Reason: "empty llm response", Raw: raw}
	}

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &MalformedModelOutputError{Reason: "invalid JSON", Raw: body, Err: err}
	}
	if err := resultSchema.Validate(doc); err != nil {
		return nil, &MalformedModelOutputError{Reason: "schema mismatch", Raw: body, Err: err}
	}

	var payload struct {
		Results []rawVerdict `json:"results"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, &MalformedModelOutputError{Reason: "decode results", Raw: body, Err: err}
	}

	verdicts := make([]Verdict, 0, len(payload.Results))
	for _, r := range payload.Results {
		verdicts = append(verdicts, Verdict{
			Rule:       r.Rule,
			Status:     r.Status,
			Evidence:   r.Evidence,
			Reasoning:  r.Reasoning,
			Confidence: int(r.Confidence),
		})
	}
	return verdicts, nil
}
