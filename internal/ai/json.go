package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when model output contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in model output")

var (
	codeFence     = regexp.MustCompile("```(?:json)?[ \t]*\r?\n?")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON slices the outermost {...} block out of raw model output,
// drops stray code fences and removes trailing commas before closing brackets.
func ExtractJSON(raw string) (string, error) {
	first := strings.IndexByte(raw, '{')
	last := strings.LastIndexByte(raw, '}')
	if first < 0 || last < first {
		return "", ErrNoJSON
	}
	s := raw[first : last+1]
	s = codeFence.ReplaceAllString(s, "")
	s = trailingComma.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s), nil
}

func decodeModelJSON(raw string, dst any) error {
	s, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}
