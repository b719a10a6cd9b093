package filter

import "regexp"

// Marker replaces every detected structured-data pattern in outbound text.
const Marker = "[content removed]"

// The two detectors are deliberately heuristic: balanced-looking JSON
// objects with at least one quoted key, and arrays of primitive, object,
// or shallow-array elements. They are a best-effort leak filter, not a
// parser; deeply nested or malformed payloads can slip through.
var (
	jsonObjectPattern = regexp.MustCompile(
		`\{\s*"[^"\n]*"\s*:\s*[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

	jsonArrayElement = `(?:\{[^{}]*\}|"[^"\n]*"|-?\d+(?:\.\d+)?|true|false|null|\[[^\[\]]*\])`

	jsonArrayPattern = regexp.MustCompile(
		`\[\s*` + jsonArrayElement + `(?:\s*,\s*` + jsonArrayElement + `)*\s*\]`)
)

// patterns in application order: arrays first, so an array of objects is
// redacted whole instead of leaving bracket debris around object markers.
var patterns = []*regexp.Regexp{jsonArrayPattern, jsonObjectPattern}

// redact substitutes the marker for every pattern match in text.
func redact(text string) string {
	for _, p := range patterns {
		text = p.ReplaceAllString(text, Marker)
	}
	return text
}
