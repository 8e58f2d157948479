package interpolate

import (
	"regexp"
	"strings"
)

// variablePattern matches {{variable}} or {{ variable }} syntax.
var variablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_\-]*)\s*\}\}`)

// Engine substitutes environment variables into request text. Unknown
// placeholders are left untouched so a request remains inspectable when
// no environment (or an incomplete one) is active.
type Engine struct {
	variables map[string]string
}

// NewEngine creates an engine over the given variable set.
func NewEngine(variables map[string]string) *Engine {
	if variables == nil {
		variables = make(map[string]string)
	}
	return &Engine{variables: variables}
}

// Interpolate replaces every known {{variable}} placeholder in the input.
func (e *Engine) Interpolate(input string) string {
	if !strings.Contains(input, "{{") {
		return input
	}
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		submatch := variablePattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		if value, ok := e.variables[submatch[1]]; ok {
			return value
		}
		return match
	})
}

// InterpolateMap interpolates both keys and values of a string map.
func (e *Engine) InterpolateMap(input map[string]string) map[string]string {
	result := make(map[string]string, len(input))
	for k, v := range input {
		result[e.Interpolate(k)] = e.Interpolate(v)
	}
	return result
}

// ReplacePathParams substitutes :name segments in a URL with the given
// parameter values. Path parameters are applied before environment
// variables so a value may itself contain a placeholder.
func ReplacePathParams(url string, params map[string]string) string {
	result := url
	for key, value := range params {
		result = strings.ReplaceAll(result, ":"+key, value)
	}
	return result
}

// ExtractVariables returns the distinct variable names referenced in
// the input, in order of first appearance.
func ExtractVariables(input string) []string {
	matches := variablePattern.FindAllStringSubmatch(input, -1)
	seen := make(map[string]bool)
	var result []string
	for _, match := range matches {
		if len(match) >= 2 && !seen[match[1]] {
			seen[match[1]] = true
			result = append(result, match[1])
		}
	}
	return result
}

// ExtractPathParams returns the :name parameters present in a URL, in
// order of appearance.
func ExtractPathParams(url string) []string {
	var params []string
	for _, segment := range strings.FieldsFunc(url, func(r rune) bool {
		return r == '/' || r == '?' || r == '&' || r == '='
	}) {
		if strings.HasPrefix(segment, ":") && len(segment) > 1 {
			params = append(params, segment[1:])
		}
	}
	return params
}
