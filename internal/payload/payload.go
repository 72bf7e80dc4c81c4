package payload

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var ErrNotObject = errors.New("webhook body is not a JSON object")

// Payload is a decoded webhook body. The calling platform does not commit to a schema, so
// fields are looked up by path instead of decoded into a struct.
type Payload map[string]any

// Path is a sequence of object keys, outermost first.
type Path []string

// P builds a Path from a dotted string.
func P(dotted string) Path {
	return strings.Split(dotted, ".")
}

// Parse decodes body keeping numbers as json.Number so identifiers are not rounded. NUL
// characters are dropped from every string.
func Parse(body []byte) (Payload, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var raw any

	err := decoder.Decode(&raw)
	if err != nil {
		return nil, err
	}

	object, ok := stripNUL(raw).(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}

	return Payload(object), nil
}

// Lookup walks path through nested objects.
func (p Payload) Lookup(path Path) (any, bool) {
	var current any = map[string]any(p)

	for _, key := range path {
		object, ok := asObject(current)
		if !ok {
			return nil, false
		}

		current, ok = object[key]
		if !ok {
			return nil, false
		}
	}

	return current, current != nil
}

// FirstString returns the first non-empty scalar found across paths, in order.
func (p Payload) FirstString(paths ...Path) string {
	for _, path := range paths {
		value, ok := p.Lookup(path)
		if !ok {
			continue
		}

		str := Stringify(value)
		if str != "" {
			return str
		}
	}

	return ""
}

// FirstValue returns the first present, non-empty value across paths without converting it.
func (p Payload) FirstValue(paths ...Path) (any, bool) {
	for _, path := range paths {
		value, ok := p.Lookup(path)
		if !ok {
			continue
		}

		if str, isString := value.(string); isString && strings.TrimSpace(str) == "" {
			continue
		}

		return value, true
	}

	return nil, false
}

// Has reports whether key is present at the top level with a non-null value.
func (p Payload) Has(key string) bool {
	value, ok := p[key]

	return ok && value != nil
}

// Stringify renders scalars as text. Objects, arrays and booleans yield "".
func Stringify(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return ""
		}

		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case int32:
		return strconv.FormatInt(int64(typed), 10)
	case uint64:
		return strconv.FormatUint(typed, 10)
	default:
		return ""
	}
}

func asObject(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case Payload:
		return typed, true
	default:
		return nil, false
	}
}
