package parser

import (
	"gopkg.in/yaml.v3"

	"github.com/mickamy/planview/internal/model"
)

// ParseYAML reads a PostgreSQL EXPLAIN (FORMAT YAML) document.
func ParseYAML(data []byte) (*model.Document, error) {
	var payload any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, parseErr(model.FormatYAML, "decode yaml", err)
	}
	if payload == nil {
		return nil, parseErr(model.FormatYAML, "empty payload", nil)
	}
	return buildDocument(model.FormatYAML, normalizeValue(payload))
}
