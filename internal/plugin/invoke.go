package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// DefaultExecTimeout bounds a tool invocation when no timeout is configured.
const DefaultExecTimeout = 30 * time.Second

// Result is the parsed outcome of one plugin invocation.
type Result struct {
	// Output is the JSON object the plugin printed on stdout.
	Output map[string]json.RawMessage
	// Raw is the unparsed stdout, kept for fallback rendering.
	Raw []byte
}

// PluginError reports a failure the plugin itself signaled by printing an
// "error" key in its output object. The exit status is irrelevant.
type PluginError struct {
	Message string
}

func (e *PluginError) Error() string {
	return e.Message
}

// ExecError reports a transport-level execution failure: non-zero exit,
// timeout, or unparsable stdout.
type ExecError struct {
	Reason string
	Stderr string
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Stderr)
	}
	return e.Reason
}

// Invoker runs plugin commands as isolated child processes. Each invocation
// is its own process with its own deadline; concurrent invocations share no
// state, so any number may run in parallel.
type Invoker struct {
	timeout time.Duration
}

// NewInvoker creates an Invoker with the given per-call timeout.
// A non-positive timeout falls back to DefaultExecTimeout.
func NewInvoker(timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	return &Invoker{timeout: timeout}
}

// Invoke runs "<executable> <command> [flags...]" and parses the single JSON
// object the plugin prints on stdout. An "error" key in that object is
// returned as *PluginError; process-level failures as *ExecError.
func (v *Invoker) Invoke(ctx context.Context, target Target, arguments map[string]any) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	args := append([]string{target.Command.Name}, flattenArguments(arguments)...)
	cmd := exec.CommandContext(ctx, target.Plugin.Executable, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &ExecError{Reason: fmt.Sprintf("execution timed out after %s", v.timeout)}
	}

	// A plugin-reported error takes precedence over the exit status: the
	// contract allows a handled failure to exit non-zero.
	var output map[string]json.RawMessage
	if jsonErr := json.Unmarshal(stdout.Bytes(), &output); jsonErr == nil {
		if rawErr, ok := output["error"]; ok {
			return nil, &PluginError{Message: errorText(rawErr)}
		}
		if err == nil {
			return &Result{Output: output, Raw: stdout.Bytes()}, nil
		}
	}

	if err != nil {
		return nil, &ExecError{
			Reason: fmt.Sprintf("plugin exited with %s", exitStatus(err)),
			Stderr: excerpt(stderr.String()),
		}
	}
	return nil, &ExecError{
		Reason: "plugin printed no parseable JSON object",
		Stderr: excerpt(stdout.String()),
	}
}

// flattenArguments translates the request's arguments mapping into flag form.
// Boolean true emits a bare flag, boolean false is omitted, strings pass
// verbatim, and everything else is compact JSON. Keys are sorted so the
// child's argv is deterministic.
func flattenArguments(arguments map[string]any) []string {
	keys := make([]string, 0, len(arguments))
	for k := range arguments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var flags []string
	for _, k := range keys {
		switch val := arguments[k].(type) {
		case bool:
			if val {
				flags = append(flags, "--"+k)
			}
		case string:
			flags = append(flags, "--"+k, val)
		case nil:
			flags = append(flags, "--"+k, "")
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				continue
			}
			flags = append(flags, "--"+k, string(encoded))
		}
	}
	return flags
}

// errorText renders a plugin's "error" value as a message string.
func errorText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// exitStatus describes how the child terminated.
func exitStatus(err error) string {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return fmt.Sprintf("code %d", exitErr.ExitCode())
	}
	return err.Error()
}

// excerpt trims noise output to a bounded, single-line summary.
func excerpt(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	const max = 256
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
