package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNotIntrospectable is returned when a plugin declares no usable command
// surface through either --describe or --help.
var ErrNotIntrospectable = errors.New("plugin declared no commands")

// introspectTimeout bounds each discovery invocation. Discovery only runs
// help/describe modes, never business commands, so this can be short.
const introspectTimeout = 2 * time.Second

// commandNameRe matches dash-case command tokens.
var commandNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// optionLineRe matches an option line from a command's help output, e.g.
// "  --param PARAM  Parameter for workflow" or "  --verbose  Enable output".
var optionLineRe = regexp.MustCompile(`^\s+(?:-\w,\s+)?--([a-z0-9][a-z0-9-]*)(?:\s([A-Z][A-Z0-9_]*))?\s{2,}(.*)$`)

// defaultRe extracts a declared default from an option description.
var defaultRe = regexp.MustCompile(`\(default:\s*([^)]*)\)`)

// Introspect discovers a plugin's commands and parameters by invoking the
// executable in describe/help modes. It never runs a business command.
//
// Two declaration styles are supported: a JSON schema printed by
// "<exe> --describe", and argparse-style help output ("<exe> --help" listing
// an "Available commands:" block, with per-command option help). The returned
// Plugin is excluded from the registry when an error is reported.
func Introspect(name, executable string) (*Plugin, error) {
	info, err := os.Stat(executable)
	if err != nil {
		return nil, fmt.Errorf("plugin executable not accessible: %w", err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return nil, fmt.Errorf("plugin %q is not executable", executable)
	}

	if p, err := introspectDescribe(name, executable); err == nil {
		return p, nil
	}

	return introspectHelp(name, executable)
}

// describePayload is the schema a plugin may print for "--describe".
type describePayload struct {
	Name     string    `json:"name"`
	Commands []Command `json:"commands"`
}

// introspectDescribe asks the plugin to declare its schema as JSON.
func introspectDescribe(name, executable string) (*Plugin, error) {
	out, err := runDiscovery(executable, "--describe")
	if err != nil {
		return nil, err
	}

	var payload describePayload
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("invalid describe output: %w", err)
	}
	if len(payload.Commands) == 0 {
		return nil, ErrNotIntrospectable
	}
	for _, c := range payload.Commands {
		if !commandNameRe.MatchString(c.Name) {
			return nil, fmt.Errorf("invalid command name %q in describe output", c.Name)
		}
	}

	return &Plugin{Name: name, Executable: executable, Commands: payload.Commands}, nil
}

// introspectHelp parses the plugin's top-level help for its command list,
// then each command's help for its options.
func introspectHelp(name, executable string) (*Plugin, error) {
	out, err := runDiscovery(executable, "--help")
	if err != nil {
		return nil, fmt.Errorf("help invocation failed: %w", err)
	}

	names := parseCommandList(string(out))
	if len(names) == 0 {
		return nil, ErrNotIntrospectable
	}

	commands := make([]Command, 0, len(names))
	for _, cn := range names {
		cmd := Command{Name: cn.name, Description: cn.description}
		// A command whose help cannot be fetched still exists; it is
		// exposed with no declared parameters.
		if help, err := runDiscovery(executable, cn.name, "--help"); err == nil {
			cmd.Parameters = parseOptions(string(help))
		}
		commands = append(commands, cmd)
	}

	return &Plugin{Name: name, Executable: executable, Commands: commands}, nil
}

type commandEntry struct {
	name        string
	description string
}

// parseCommandList extracts the "Available commands:" block from help output.
// The block ends at the first blank or non-indented line.
func parseCommandList(help string) []commandEntry {
	lines := strings.Split(help, "\n")
	var entries []commandEntry
	inBlock := false
	seen := make(map[string]bool)

	for _, line := range lines {
		if !inBlock {
			if strings.TrimSpace(strings.ToLower(line)) == "available commands:" {
				inBlock = true
			}
			continue
		}
		if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, " ") {
			break
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || !commandNameRe.MatchString(fields[0]) {
			continue
		}
		if seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		entries = append(entries, commandEntry{
			name:        fields[0],
			description: strings.Join(fields[1:], " "),
		})
	}

	return entries
}

// parseOptions extracts --option lines from a command's help output.
func parseOptions(help string) []Parameter {
	var params []Parameter
	for _, line := range strings.Split(help, "\n") {
		m := optionLineRe.FindStringSubmatch(line)
		if m == nil || m[1] == "help" {
			continue
		}

		p := Parameter{
			Name:        m[1],
			Type:        typeForMetavar(m[2]),
			Description: strings.TrimSpace(m[3]),
		}
		if strings.Contains(m[3], "(required)") {
			p.Required = true
		}
		if dm := defaultRe.FindStringSubmatch(m[3]); dm != nil {
			p.Default = coerceDefault(strings.TrimSpace(dm[1]), p.Type)
		}
		params = append(params, p)
	}
	return params
}

// typeForMetavar infers a parameter type from its help metavar. An option
// without a metavar takes no value and is treated as a boolean flag.
func typeForMetavar(metavar string) ParameterType {
	switch metavar {
	case "":
		return TypeBoolean
	case "N", "NUM", "INT", "COUNT", "FLOAT":
		return TypeNumber
	default:
		return TypeString
	}
}

// coerceDefault converts a textual default into the parameter's value space.
func coerceDefault(raw string, t ParameterType) any {
	switch t {
	case TypeNumber:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case TypeBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

// runDiscovery executes a discovery-mode invocation with a short timeout.
func runDiscovery(executable string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), introspectTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, executable, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &bytes.Buffer{}

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("discovery timed out after %s", introspectTimeout)
	}
	// argparse prints help to stdout and may exit non-zero when invoked
	// without a command; output is still usable.
	if err != nil && stdout.Len() == 0 {
		return nil, fmt.Errorf("discovery invocation failed: %w", err)
	}

	return stdout.Bytes(), nil
}
