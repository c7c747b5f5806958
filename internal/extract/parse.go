package extract

import (
	"encoding/json"
	"strings"
)

// ParseJSONObject pulls the first balanced top-level JSON object out of
// free text. LLM responses often wrap the object in prose or a code
// fence, so we scan for the outermost brace pair instead of decoding the
// whole response.
func ParseJSONObject(text string) (map[string]any, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var result map[string]any
				if err := json.Unmarshal([]byte(text[start:i+1]), &result); err != nil {
					return nil, false
				}
				return result, true
			}
		}
	}
	return nil, false
}
