package rpc

import (
	"sort"

	"github.com/ayusman/toolgate/internal/plugin"
)

// Tool is one manifest entry: a qualified plugin command with a JSON-Schema
// description of its input.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON-Schema object describing a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes one argument in an input schema. A parameter whose type
// could not be introspected is emitted with no type constraint.
type Property struct {
	Type        string `json:"type,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Manifest is the payload delivered to every streaming client at connection
// time and returned by tools/list.
type Manifest struct {
	Tools []Tool `json:"tools"`
}

// BuildManifest flattens a registry snapshot into the manifest. It is a pure
// function of the snapshot: one Tool per command, ordered by qualified name,
// and total — schema generation never fails.
func BuildManifest(snap *plugin.Snapshot) *Manifest {
	m := &Manifest{Tools: []Tool{}}
	for _, p := range snap.Plugins {
		for i := range p.Commands {
			cmd := &p.Commands[i]
			m.Tools = append(m.Tools, Tool{
				Name:        p.QualifiedName(cmd),
				Description: cmd.Description,
				InputSchema: buildSchema(cmd),
			})
		}
	}
	sort.Slice(m.Tools, func(i, j int) bool { return m.Tools[i].Name < m.Tools[j].Name })
	return m
}

func buildSchema(cmd *plugin.Command) InputSchema {
	schema := InputSchema{
		Type:       "object",
		Properties: make(map[string]Property, len(cmd.Parameters)),
	}
	for _, param := range cmd.Parameters {
		schema.Properties[param.Name] = Property{
			Type:        string(param.Type),
			Default:     param.Default,
			Description: param.Description,
		}
		if param.Required {
			schema.Required = append(schema.Required, param.Name)
		}
	}
	sort.Strings(schema.Required)
	return schema
}
