// Package transcript pulls candidate facts out of call transcripts.
//
// Extraction is best-effort pattern matching: a missed fact is acceptable, a panic is not.
package transcript

import (
	"regexp"
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/payload"
	"github.com/goccy/go-json"
)

// FactSet holds the facts extracted from one call. Nil fields were not found.
type FactSet struct {
	CarBrand     *string `json:"car_brand,omitempty"`
	CarModel     *string `json:"car_model,omitempty"`
	CarYear      *string `json:"car_year,omitempty"`
	CustodioName *string `json:"custodio_name,omitempty"`
	SecurityExp  *bool   `json:"security_exp,omitempty"`
	SedenaID     *bool   `json:"sedena_id,omitempty"`
}

func (f FactSet) IsEmpty() bool {
	return f.CarBrand == nil &&
		f.CarModel == nil &&
		f.CarYear == nil &&
		f.CustodioName == nil &&
		f.SecurityExp == nil &&
		f.SedenaID == nil
}

var preExtractedKeys = []string{
	"car_brand", "car_model", "car_year", "lead_name", "custodio_name", "security_exp", "sedena_id",
}

var utteranceTextKeys = []string{"text", "message", "content", "transcript"}

// LooksPreExtracted reports whether object already carries extracted fact fields.
func LooksPreExtracted(object map[string]any) bool {
	for _, key := range preExtractedKeys {
		value, ok := object[key]
		if ok && value != nil {
			return true
		}
	}

	return false
}

// ExtractInfo accepts a transcript array, an object with a transcript property, a JSON string
// encoding either, or an object of pre-extracted fields.
func ExtractInfo(data any) FactSet {
	switch typed := data.(type) {
	case nil:
		return FactSet{}
	case string:
		decoded, ok := decodeJSON(typed)
		if !ok {
			return FactSet{}
		}

		if _, isString := decoded.(string); isString {
			return FactSet{}
		}

		return ExtractInfo(decoded)
	case []byte:
		return ExtractInfo(string(typed))
	case json.RawMessage:
		return ExtractInfo(string(typed))
	case payload.Payload:
		return extractFromObject(typed)
	case map[string]any:
		return extractFromObject(typed)
	case []any:
		return analyze(joinUtterances(typed))
	default:
		return FactSet{}
	}
}

func extractFromObject(object map[string]any) FactSet {
	if LooksPreExtracted(object) {
		return copyPreExtracted(object)
	}

	switch inner := object["transcript"].(type) {
	case []any:
		return analyze(joinUtterances(inner))
	case string:
		return ExtractInfo(inner)
	default:
		return FactSet{}
	}
}

func copyPreExtracted(object map[string]any) FactSet {
	var facts FactSet

	facts.CarBrand = stringField(object, "car_brand")
	facts.CarModel = stringField(object, "car_model")
	facts.CarYear = stringField(object, "car_year")

	facts.CustodioName = stringField(object, "custodio_name")
	if facts.CustodioName == nil {
		facts.CustodioName = stringField(object, "lead_name")
	}

	facts.SecurityExp = boolField(object, "security_exp")
	facts.SedenaID = boolField(object, "sedena_id")

	return facts
}

func stringField(object map[string]any, key string) *string {
	value := payload.Stringify(object[key])
	if value == "" {
		return nil
	}

	return &value
}

func boolField(object map[string]any, key string) *bool {
	value, ok := object[key]
	if !ok || value == nil {
		return nil
	}

	parsed, ok := payload.ParseBool(value)
	if !ok {
		return nil
	}

	return &parsed
}

func decodeJSON(text string) (any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	var decoded any

	err := json.Unmarshal([]byte(trimmed), &decoded)
	if err != nil {
		return nil, false
	}

	return decoded, true
}

func joinUtterances(utterances []any) string {
	parts := make([]string, 0, len(utterances))

	for _, utterance := range utterances {
		text := utteranceText(utterance)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " ")
}

func utteranceText(utterance any) string {
	switch typed := utterance.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		for _, key := range utteranceTextKeys {
			text, ok := typed[key].(string)
			if ok && strings.TrimSpace(text) != "" {
				return strings.TrimSpace(text)
			}
		}
	}

	return ""
}

// Text returns the concatenated utterance text of a transcript value, or "" when data is not
// transcript-shaped.
func Text(data any) string {
	switch typed := data.(type) {
	case string:
		decoded, ok := decodeJSON(typed)
		if !ok {
			return ""
		}

		if _, isString := decoded.(string); isString {
			return ""
		}

		return Text(decoded)
	case []byte:
		return Text(string(typed))
	case json.RawMessage:
		return Text(string(typed))
	case []any:
		return joinUtterances(typed)
	case map[string]any:
		inner, ok := typed["transcript"]
		if !ok {
			return ""
		}

		return Text(inner)
	case payload.Payload:
		return Text(map[string]any(typed))
	default:
		return ""
	}
}

func analyze(text string) FactSet {
	var facts FactSet

	if strings.TrimSpace(text) == "" {
		return facts
	}

	facts.CarBrand = canonicalMatch(brandPattern, text, brandNames)
	facts.CarModel = canonicalMatch(modelPattern, text, modelNames)
	facts.CarYear = submatch(yearPattern, text)
	facts.CustodioName = submatch(namePattern, text)

	if securityPattern.MatchString(text) {
		facts.SecurityExp = boolPtr(true)
	}

	if sedenaPattern.MatchString(text) {
		facts.SedenaID = boolPtr(true)
	}

	return facts
}

func submatch(pattern *regexp.Regexp, text string) *string {
	match := pattern.FindStringSubmatch(text)
	if len(match) < 2 || match[1] == "" {
		return nil
	}

	value := match[1]

	return &value
}

func canonicalMatch(pattern *regexp.Regexp, text string, canonical map[string]string) *string {
	match := submatch(pattern, text)
	if match == nil {
		return nil
	}

	name, ok := canonical[strings.ToLower(*match)]
	if !ok {
		return match
	}

	return &name
}

func boolPtr(value bool) *bool {
	return &value
}
