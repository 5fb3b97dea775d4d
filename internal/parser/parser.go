package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mickamy/planview/internal/model"
)

const (
	keyPlan     = "Plan"
	keyPlans    = "Plans"
	keyNodeType = "Node Type"
)

// Parse reads a PostgreSQL EXPLAIN document in JSON, YAML or text format.
// Malformed input yields a *ParseError.
func Parse(r io.Reader) (*model.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return ParseBytes(data)
}

// ParseString is Parse over an in-memory string.
func ParseString(s string) (*model.Document, error) {
	return ParseBytes([]byte(s))
}

// ParseBytes detects the format and dispatches to the matching decoder. JSON
// and YAML copied out of psql, with its header, separator and "+" wraps, are
// unwrapped first.
func ParseBytes(data []byte) (*model.Document, error) {
	format := detect(data)
	if format == model.FormatText {
		unwrapped := unwrapPsql(data)
		if f := detect(unwrapped); f != model.FormatText {
			format, data = f, unwrapped
		}
	}
	switch format {
	case model.FormatJSON:
		return ParseJSON(bytes.NewReader(data))
	case model.FormatYAML:
		return ParseYAML(data)
	default:
		return ParseText(string(data))
	}
}

// DetectFormat inspects the first meaningful characters of data, ignoring
// psql table decorations.
func DetectFormat(data []byte) model.Format {
	if f := detect(data); f != model.FormatText {
		return f
	}
	return detect(unwrapPsql(data))
}

func detect(data []byte) model.Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return model.FormatJSON
	}
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "- Plan:") || strings.HasPrefix(line, "Plan:") {
			return model.FormatYAML
		}
		break
	}
	return model.FormatText
}

// ParseJSON reads a PostgreSQL EXPLAIN (FORMAT JSON) document.
func ParseJSON(r io.Reader) (*model.Document, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, parseErr(model.FormatJSON, "decode json", err)
	}
	return buildDocument(model.FormatJSON, normalizeValue(payload))
}

func buildDocument(format model.Format, payload any) (*model.Document, error) {
	entry, err := pickFirstEntry(payload)
	if err != nil {
		return nil, parseErr(format, err.Error(), nil)
	}

	var rootMap map[string]any
	fields := map[string]any{}
	if planVal, ok := entry[keyPlan]; ok {
		rootMap, err = asObject(planVal)
		if err != nil {
			return nil, parseErr(format, "invalid Plan node", err)
		}
		for k, v := range entry {
			if k != keyPlan {
				fields[k] = v
			}
		}
	} else if _, ok := entry[keyNodeType]; ok {
		rootMap = entry
	} else {
		return nil, parseErr(format, "missing Plan root", nil)
	}

	root, err := buildStep(rootMap, "0")
	if err != nil {
		return nil, parseErr(format, "invalid plan step", err)
	}

	return &model.Document{Root: root, Fields: fields, Format: format}, nil
}

func pickFirstEntry(payload any) (map[string]any, error) {
	switch v := payload.(type) {
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty payload")
		}
		obj, err := asObject(v[0])
		if err != nil {
			return nil, fmt.Errorf("invalid entry: %w", err)
		}
		return obj, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("unexpected top-level type %T", payload)
	}
}

func buildStep(data map[string]any, path string) (*model.Step, error) {
	step := &model.Step{Fields: make(map[string]any, len(data))}
	for k, v := range data {
		if k == keyPlans {
			continue
		}
		step.Fields[k] = v
	}

	childrenVal, ok := data[keyPlans]
	if !ok || childrenVal == nil {
		return step, nil
	}
	children, ok := childrenVal.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: Plans is %T, expected array", path, childrenVal)
	}
	for i, childVal := range children {
		childPath := fmt.Sprintf("%s.%d", path, i)
		childMap, err := asObject(childVal)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", childPath, err)
		}
		child, err := buildStep(childMap, childPath)
		if err != nil {
			return nil, err
		}
		step.Children = append(step.Children, child)
	}
	return step, nil
}

// normalizeValue turns decoder-specific scalars into float64 and rewrites
// nested maps so every consumer sees map[string]any / []any / float64.
func normalizeValue(val any) any {
	switch v := val.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v.String()
		}
		return f
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func asObject(val any) (map[string]any, error) {
	if val == nil {
		return nil, fmt.Errorf("nil object")
	}
	obj, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", val)
	}
	return obj, nil
}
