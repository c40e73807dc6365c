// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package catalog loads the ordered list of HE commands to extract.
//
// A catalog document has the form
//
//	{"categories": {"key": {"name": "...", "commands": ["HE AN", ...]}},
//	 "command_details": {"HE AN": {"priority": "high", "critical": true}}}
//
// and may be written as JSON or YAML. Category and command order is preserved.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	apperrors "hextract/cli/internal/errors"
	"hextract/cli/internal/model"
)

const schemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["categories"],
	"properties": {
		"categories": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["commands"],
				"properties": {
					"name": {"type": "string"},
					"commands": {"type": "array", "items": {"type": "string", "minLength": 1}}
				}
			}
		},
		"command_details": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"priority": {"enum": ["high", "medium", "low"]},
					"critical": {"type": "boolean"}
				}
			}
		}
	}
}`

var schema = jsonschema.MustCompileString("catalog.schema.json", schemaJSON)

type detail struct {
	Priority model.Priority `json:"priority" yaml:"priority"`
	Critical bool           `json:"critical" yaml:"critical"`
}

type category struct {
	Key      string   `json:"-" yaml:"-"`
	Name     string   `json:"name" yaml:"name"`
	Commands []string `json:"commands" yaml:"commands"`
}

// Load reads and validates a catalog file. The format follows the extension:
// .yaml and .yml are YAML, everything else is JSON.
func Load(path string) ([]model.CommandSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidCatalog, "read "+path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return Parse(data, ext == ".yaml" || ext == ".yml")
}

// Parse validates and flattens a catalog document.
func Parse(data []byte, isYAML bool) ([]model.CommandSpec, error) {
	if err := validate(data, isYAML); err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidCatalog, "catalog does not match schema", err)
	}
	decode := decodeJSON
	if isYAML {
		decode = decodeYAML
	}
	cats, details, err := decode(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidCatalog, "decode catalog", err)
	}

	var specs []model.CommandSpec
	seen := map[string]struct{}{}
	for _, cat := range cats {
		for _, cmd := range cat.Commands {
			cmd = strings.TrimSpace(cmd)
			if _, dup := seen[cmd]; dup || cmd == "" {
				continue
			}
			seen[cmd] = struct{}{}
			d, listed := details[cmd]
			prio := d.Priority
			switch {
			case !listed:
				prio = DerivePriority(cmd)
			case !prio.IsValid():
				prio = model.PriorityMedium
			}
			specs = append(specs, model.CommandSpec{Command: cmd, Category: cat.Key, Priority: prio, Critical: d.Critical})
		}
	}
	if len(specs) == 0 {
		return nil, apperrors.New(apperrors.InvalidCatalog, "catalog contains no commands")
	}
	return specs, nil
}

// LoadOrFallback returns the catalog at path, or the built-in fallback when the
// path is empty or the file cannot be used. The boolean reports fallback use.
func LoadOrFallback(path string, log *zap.Logger) ([]model.CommandSpec, bool) {
	if log == nil {
		log = zap.NewNop()
	}
	if path == "" {
		log.Info("no catalog configured, using fallback catalog")
		return Fallback(), true
	}
	specs, err := Load(path)
	if err != nil {
		log.Warn("catalog unusable, using fallback catalog", zap.String("path", path), zap.Error(err))
		return Fallback(), true
	}
	return specs, false
}

func validate(data []byte, isYAML bool) error {
	var v interface{}
	if isYAML {
		var y interface{}
		if err := yaml.Unmarshal(data, &y); err != nil {
			return err
		}
		b, err := json.Marshal(y)
		if err != nil {
			return err
		}
		data = b
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}

// decodeJSON walks categories token by token so their document order survives.
func decodeJSON(data []byte) ([]category, map[string]detail, error) {
	var doc struct {
		Categories     json.RawMessage   `json:"categories"`
		CommandDetails map[string]detail `json:"command_details"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(doc.Categories))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, nil, fmt.Errorf("categories is not an object")
	}
	var cats []category
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		cat := category{Key: fmt.Sprint(tok)}
		if err := dec.Decode(&cat); err != nil {
			return nil, nil, fmt.Errorf("category %q: %w", cat.Key, err)
		}
		cats = append(cats, cat)
	}
	return cats, doc.CommandDetails, nil
}

func decodeYAML(data []byte) ([]category, map[string]detail, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, err
	}
	doc := mappingAt(&root)
	if doc == nil {
		return nil, nil, fmt.Errorf("catalog is not a mapping")
	}
	details := map[string]detail{}
	if n := valueOf(doc, "command_details"); n != nil {
		if err := n.Decode(&details); err != nil {
			return nil, nil, fmt.Errorf("command_details: %w", err)
		}
	}
	var cats []category
	if n := valueOf(doc, "categories"); n != nil {
		for i := 0; i+1 < len(n.Content); i += 2 {
			cat := category{Key: n.Content[i].Value}
			if err := n.Content[i+1].Decode(&cat); err != nil {
				return nil, nil, fmt.Errorf("category %q: %w", cat.Key, err)
			}
			cats = append(cats, cat)
		}
	}
	return cats, details, nil
}

func mappingAt(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

func valueOf(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
