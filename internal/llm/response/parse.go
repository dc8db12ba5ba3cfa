// Package response turns raw model output into a prediction. The contract is
// a JSON object {"choice": int, "reasoning": string}; when the output is not
// that object the parser repairs it, then falls back to ordered pattern
// extraction over the raw text, and finally to the unanswered sentinel.
package response

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ahrav/examsolve/internal/domain"
)

// Source records which stage of the parse pipeline produced a Prediction.
type Source string

const (
	// SourceStructured means the output decoded as the expected JSON object.
	SourceStructured Source = "structured"
	// SourceRepaired means the output decoded only after JSON repair.
	SourceRepaired Source = "repaired"
	// SourcePattern means the choice was extracted from free text.
	SourcePattern Source = "pattern"
	// SourceNone means no choice could be found.
	SourceNone Source = "none"
)

// Prediction is the parsed model answer.
type Prediction struct {
	Choice    int
	Reasoning string
	Source    Source
}

// payload is the structured response schema. Choice is decoded loosely since
// models occasionally quote the number.
type payload struct {
	Choice    json.RawMessage `json:"choice"`
	Reasoning string          `json:"reasoning"`
}

// choicePatterns are tried in order against unstructured output.
var choicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`정답[:\s]*(\d)`),
	regexp.MustCompile(`"choice"[:\s]*(\d)`),
	regexp.MustCompile(`답[:\s]*(\d)`),
	regexp.MustCompile(`(\d)번`),
}

// Options toggles optional parse stages.
type Options struct {
	// DisableRepair skips the JSON repair stage.
	DisableRepair bool
}

// Parse extracts a prediction from raw model output. It never fails: output
// with no recognizable choice yields domain.Unanswered with the raw text as
// reasoning.
func Parse(raw string, opts Options) Prediction {
	text := strings.TrimSpace(raw)

	if p, ok := decode(text); ok {
		return p.withSource(SourceStructured, raw)
	}

	if !opts.DisableRepair {
		if obj, ok := objectSpan(text); ok {
			if p, ok := repair(obj); ok {
				return p.withSource(SourceRepaired, raw)
			}
		}
	}

	if choice, ok := ExtractChoice(raw); ok {
		return Prediction{Choice: choice, Reasoning: raw, Source: SourcePattern}
	}
	return Prediction{Choice: domain.Unanswered, Reasoning: raw, Source: SourceNone}
}

// ExtractChoice searches free text for a choice number using the ordered
// patterns, returning false when none match.
func ExtractChoice(text string) (int, bool) {
	for _, re := range choicePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// withSource stamps the parse stage and keeps the raw output as reasoning
// when the object carried none.
func (p Prediction) withSource(src Source, raw string) Prediction {
	p.Source = src
	if strings.TrimSpace(p.Reasoning) == "" {
		p.Reasoning = raw
	}
	return p
}

// decode accepts only objects with a non-null choice key. A bare null or an
// object without a choice is left to the later stages.
func decode(text string) (Prediction, bool) {
	var p payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return Prediction{}, false
	}
	if len(p.Choice) == 0 || string(p.Choice) == "null" {
		return Prediction{}, false
	}
	return Prediction{Choice: decodeChoice(p.Choice), Reasoning: p.Reasoning}, true
}

// decodeChoice accepts 3, 3.0 and "3"; anything else is unanswered.
func decodeChoice(raw json.RawMessage) int {
	if len(raw) == 0 {
		return domain.Unanswered
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
		if v, ok := ExtractChoice(s); ok {
			return v
		}
	}
	return domain.Unanswered
}

// objectSpan returns the text from the first '{' to the last '}', dropping
// markdown fences and prose around an embedded object. Plain prose has no
// span and is never coerced into a structured answer.
func objectSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func repair(obj string) (Prediction, bool) {
	if p, ok := decode(obj); ok {
		return p, true
	}
	repaired, err := jsonrepair.JSONRepair(obj)
	if err != nil {
		return Prediction{}, false
	}
	return decode(repaired)
}
