// Package quality runs quality checks: built-in generics dispatched to
// external tools, custom command checks with output parsing and a
// pass-condition mini-language, gate evaluation, and human review.
package quality

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/devman-ai/devman/pkg/models"
)

// ParseOutput extracts key/value pairs from raw command output using
// the configured parser.
func ParseOutput(parser models.OutputParser, output string) (map[string]string, error) {
	switch parser.Kind {
	case models.ParserLineContains:
		return parseLineContains(parser.Text, output), nil
	case models.ParserRegex:
		return parseRegex(parser.Pattern, output)
	case models.ParserJSONPath:
		return parseJSONPath(parser.Path, output)
	case models.ParserCustom:
		return nil, fmt.Errorf("custom output parser: not implemented")
	default:
		return nil, fmt.Errorf("unknown output parser %q", parser.Kind)
	}
}

func parseLineContains(text, output string) map[string]string {
	found := false
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, text) {
			found = true
			break
		}
	}
	return map[string]string{"contains": strconv.FormatBool(found)}
}

func parseRegex(pattern, output string) (map[string]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}

	names := re.SubexpNames()
	hasNamed := false
	for _, name := range names {
		if name != "" {
			hasNamed = true
			break
		}
	}

	match := re.FindStringSubmatch(output)
	if !hasNamed {
		return map[string]string{"match": strconv.FormatBool(match != nil)}, nil
	}

	values := make(map[string]string)
	if match != nil {
		for i, name := range names {
			if name != "" && i < len(match) {
				values[name] = match[i]
			}
		}
	}
	return values, nil
}

// jsonPathSegment matches "key" or "key[idx]" in dot notation.
var jsonPathSegment = regexp.MustCompile(`^([^\[\]]+)((?:\[\d+\])*)$`)

func parseJSONPath(path, output string) (map[string]string, error) {
	var doc any
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return nil, fmt.Errorf("parsing output as JSON: %w", err)
	}

	current := doc
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			continue
		}
		m := jsonPathSegment.FindStringSubmatch(segment)
		if m == nil {
			return nil, fmt.Errorf("invalid path segment %q", segment)
		}
		key, indices := m[1], m[2]

		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %q: %q is not an object", path, segment)
		}
		current, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("path %q: key %q not found", path, key)
		}

		for indices != "" {
			end := strings.Index(indices, "]")
			idx, err := strconv.Atoi(indices[1:end])
			if err != nil {
				return nil, fmt.Errorf("path %q: bad index in %q", path, segment)
			}
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("path %q: %q is not an array", path, key)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("path %q: index %d out of range", path, idx)
			}
			current = arr[idx]
			indices = indices[end+1:]
		}
	}

	value := stringifyJSON(current)
	return map[string]string{"value": value, path: value}, nil
}

func stringifyJSON(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		data, _ := json.Marshal(x)
		return string(data)
	}
}

// EvaluatePassCondition evaluates the mini-expression grammar against
// parsed values: literal true/false, a bare variable (truthy when its
// lowercased value is true/1/yes or simply non-empty), or a binary
// comparison "var OP rhs" with numeric-then-lexicographic semantics.
func EvaluatePassCondition(condition string, values map[string]string) (bool, error) {
	condition = strings.TrimSpace(condition)
	switch condition {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		if idx := strings.Index(condition, op); idx >= 0 {
			name := strings.TrimSpace(condition[:idx])
			rhs := strings.TrimSpace(condition[idx+len(op):])
			rhs = strings.Trim(rhs, `"'`)
			lhs, ok := values[name]
			if !ok {
				return false, fmt.Errorf("pass condition references unknown variable %q", name)
			}
			return compare(lhs, rhs, op), nil
		}
	}

	// Bare variable.
	value, ok := values[condition]
	if !ok {
		return false, fmt.Errorf("pass condition references unknown variable %q", condition)
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true, nil
	}
	return value != "", nil
}

func compare(lhs, rhs, op string) bool {
	ln, lerr := strconv.ParseFloat(lhs, 64)
	rn, rerr := strconv.ParseFloat(rhs, 64)
	if lerr == nil && rerr == nil {
		switch op {
		case "==":
			return ln == rn
		case "!=":
			return ln != rn
		case ">":
			return ln > rn
		case ">=":
			return ln >= rn
		case "<":
			return ln < rn
		case "<=":
			return ln <= rn
		}
	}
	switch op {
	case "==":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	}
	return false
}

// ExtractMetrics re-runs each extractor's parser over the output and
// emits numeric metrics. The value is looked up under "value" first,
// then under the metric's own name. Non-numeric or missing values are
// skipped.
func ExtractMetrics(extractors []models.MetricExtractor, output string) []models.Metric {
	var metrics []models.Metric
	for _, ex := range extractors {
		values, err := ParseOutput(ex.Extractor, output)
		if err != nil {
			continue
		}
		raw, ok := values["value"]
		if !ok {
			raw, ok = values[ex.Name]
		}
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		metrics = append(metrics, models.Metric{Name: ex.Name, Value: value, Unit: ex.Unit})
	}
	return metrics
}

// coveragePatterns are tried in order against test output; the first
// capture that parses wins.
var coveragePatterns = []*regexp.Regexp{
	regexp.MustCompile(`Coverage:\s*([0-9.]+)%`),
	regexp.MustCompile(`coverage:\s*([0-9.]+)%`),
	regexp.MustCompile(`(\d+\.?\d*)%.*coverage`),
}

// extractCoverage pulls a coverage percentage out of test output.
func extractCoverage(output string) (float64, bool) {
	for _, re := range coveragePatterns {
		if m := re.FindStringSubmatch(output); m != nil {
			if value, err := strconv.ParseFloat(m[1], 64); err == nil {
				return value, true
			}
		}
	}
	return 0, false
}
