// Package plugin provides plugin discovery, introspection, and subprocess
// execution for the Toolgate gateway.
package plugin

// ParameterType classifies a command-line parameter's value.
type ParameterType string

// Parameter types emitted by the introspector.
const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeBoolean ParameterType = "boolean"
	// TypeAny marks a parameter whose type could not be determined.
	// The manifest builder emits an unconstrained schema field for it.
	TypeAny ParameterType = ""
)

// Parameter describes one command-line option of a plugin command.
type Parameter struct {
	Name        string        `json:"name"`
	Type        ParameterType `json:"type,omitempty"`
	Required    bool          `json:"required,omitempty"`
	Default     any           `json:"default,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Command describes one subcommand of a plugin. Immutable once introspected.
type Command struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty"`
}

// Plugin represents a discovered plugin executable and its command surface.
type Plugin struct {
	Name       string    `json:"name"`
	Executable string    `json:"executable"`
	Commands   []Command `json:"commands"`
}

// QualifiedName returns the tool name a command is exposed under:
// "<plugin>.<command>".
func (p *Plugin) QualifiedName(c *Command) string {
	return p.Name + "." + c.Name
}
