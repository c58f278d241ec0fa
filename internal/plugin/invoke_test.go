package plugin

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/toolgate/testdata"
)

func scriptTarget(t *testing.T, script, command string) Target {
	t.Helper()
	path := writeScript(t, "plugin", script)
	p := &Plugin{
		Name:       "test",
		Executable: path,
		Commands:   []Command{{Name: command}},
	}
	return Target{Plugin: p, Command: &p.Commands[0]}
}

func TestInvoker_Success(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	target := scriptTarget(t, testdata.WorkflowPluginScript, "workflow-command")
	invoker := NewInvoker(5 * time.Second)

	result, err := invoker.Invoke(context.Background(), target, map[string]any{"param": "test_value"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	raw, ok := result.Output["result"]
	if !ok {
		t.Fatalf("output missing result key: %s", result.Raw)
	}
	if !strings.Contains(string(raw), "Workflow executed with param: test_value") {
		t.Errorf("result = %s", raw)
	}
}

func TestInvoker_PluginReportedError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	target := scriptTarget(t, testdata.ErrorPluginScript, "error-command")
	invoker := NewInvoker(5 * time.Second)

	_, err := invoker.Invoke(context.Background(), target, nil)
	var pluginErr *PluginError
	if !errors.As(err, &pluginErr) {
		t.Fatalf("Invoke() error = %v, want *PluginError", err)
	}
	if pluginErr.Message != "This is a test error" {
		t.Errorf("message = %q", pluginErr.Message)
	}
}

func TestInvoker_CrashIsExecError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	target := scriptTarget(t, testdata.CrashPluginScript, "crash-command")
	invoker := NewInvoker(5 * time.Second)

	_, err := invoker.Invoke(context.Background(), target, nil)
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Invoke() error = %v, want *ExecError", err)
	}
	if !strings.Contains(execErr.Error(), "code 3") {
		t.Errorf("error should carry exit code: %v", execErr)
	}
	if !strings.Contains(execErr.Error(), "something went badly wrong") {
		t.Errorf("error should carry stderr excerpt: %v", execErr)
	}
}

func TestInvoker_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := `#!/bin/sh
sleep 5
echo '{"result": "too late"}'
`
	target := scriptTarget(t, script, "slow-command")
	invoker := NewInvoker(200 * time.Millisecond)

	start := time.Now()
	_, err := invoker.Invoke(context.Background(), target, nil)
	elapsed := time.Since(start)

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Invoke() error = %v, want *ExecError", err)
	}
	if !strings.Contains(execErr.Error(), "timed out") {
		t.Errorf("error = %v, want timeout", execErr)
	}
	if elapsed > 2*time.Second {
		t.Errorf("timeout took %s, should be near 200ms", elapsed)
	}
}

func TestInvoker_UnparsableOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := `#!/bin/sh
echo "plain text, not json"
`
	target := scriptTarget(t, script, "noisy-command")
	invoker := NewInvoker(5 * time.Second)

	_, err := invoker.Invoke(context.Background(), target, nil)
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Invoke() error = %v, want *ExecError", err)
	}
}

func TestFlattenArguments(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want []string
	}{
		{
			name: "strings pass verbatim",
			args: map[string]any{"param": "value"},
			want: []string{"--param", "value"},
		},
		{
			name: "bool true is a bare flag",
			args: map[string]any{"verbose": true},
			want: []string{"--verbose"},
		},
		{
			name: "bool false is omitted",
			args: map[string]any{"verbose": false},
			want: nil,
		},
		{
			name: "numbers are compact json",
			args: map[string]any{"count": 3.0},
			want: []string{"--count", "3"},
		},
		{
			name: "keys are sorted",
			args: map[string]any{"b": "2", "a": "1"},
			want: []string{"--a", "1", "--b", "2"},
		},
		{
			name: "structured values are compact json",
			args: map[string]any{"items": []any{"x", "y"}},
			want: []string{"--items", `["x","y"]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flattenArguments(tt.args)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("flattenArguments() = %v, want %v", got, tt.want)
			}
		})
	}
}
