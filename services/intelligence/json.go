package intelligence

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ErrMalformedJSON wraps every decode failure of a model answer.
var ErrMalformedJSON = errors.New("malformed model json")

// ExtractJSON decodes a model answer into out. Answers wrapped in markdown
// fences are unwrapped first; the first fenced block wins.
func ExtractJSON(text string, out any) error {
	cleaned := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "```", ""))
	if cleaned == "" {
		return fmt.Errorf("%w: empty answer", ErrMalformedJSON)
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}
