package payload

import "strings"

const nulEscape = `\u0000`

// stripNUL removes NUL characters from every string key and value in value. Postgres text
// and jsonb columns reject them.
func stripNUL(value any) any {
	switch typed := value.(type) {
	case string:
		return strings.ReplaceAll(typed, "\x00", "")
	case map[string]any:
		cleaned := make(map[string]any, len(typed))
		for key, item := range typed {
			cleaned[strings.ReplaceAll(key, "\x00", "")] = stripNUL(item)
		}

		return cleaned
	case []any:
		for i, item := range typed {
			typed[i] = stripNUL(item)
		}

		return typed
	default:
		return value
	}
}

// SanitizeJSON drops \u0000 escapes from an encoded JSON document so it can be stored as
// jsonb. An escaped backslash followed by the text u0000 is left alone.
func SanitizeJSON(data []byte) []byte {
	if !strings.Contains(string(data), nulEscape) {
		return data
	}

	cleaned := make([]byte, 0, len(data))

	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			cleaned = append(cleaned, data[i])
			continue
		}

		if string(data[i:min(i+len(nulEscape), len(data))]) == nulEscape {
			i += len(nulEscape) - 1
			continue
		}

		cleaned = append(cleaned, data[i], data[i+1])
		i++
	}

	return cleaned
}
