package upstream

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// ExtractJSON pulls the JSON object out of model output that may be wrapped
// in a markdown fence or surrounded by prose. It returns "" when no valid
// object is found.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)
	if json.Valid([]byte(content)) && strings.HasPrefix(content, "{") {
		return content
	}
	if m := fencedJSON.FindStringSubmatch(content); len(m) > 1 && json.Valid([]byte(m[1])) {
		return m[1]
	}
	first := strings.IndexByte(content, '{')
	last := strings.LastIndexByte(content, '}')
	if first >= 0 && last > first {
		candidate := content[first : last+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return ""
}
