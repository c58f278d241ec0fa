// Package testdata provides shell-script plugin fixtures shared by the
// Toolgate test suites. Each fixture implements the plugin CLI contract:
// --help declares the command surface, and a command invocation prints one
// JSON object on stdout.
package testdata

import (
	"fmt"
	"os"
	"path/filepath"
)

// WorkflowPluginScript exposes "workflow-command" with a --param option and
// echoes the received parameter in its result.
const WorkflowPluginScript = `#!/bin/sh
if [ "$1" = "--help" ] || [ -z "$1" ]; then
cat <<'EOF'
usage: workflow_test_plugin [-h] {workflow-command} ...

Workflow test plugin

Available commands:
  workflow-command    Run the workflow command
EOF
exit 0
fi
cmd="$1"; shift
if [ "$1" = "--help" ]; then
cat <<'EOF'
usage: workflow_test_plugin workflow-command [-h] [--param PARAM]

options:
  -h, --help     show this help message and exit
  --param PARAM  Parameter for workflow (default: default)
EOF
exit 0
fi
case "$cmd" in
  workflow-command)
    param="default"
    while [ $# -gt 0 ]; do
      case "$1" in
        --param) param="$2"; shift 2 ;;
        *) shift ;;
      esac
    done
    printf '{"result": "Workflow executed with param: %s"}\n' "$param"
    ;;
  *)
    printf '{"error": "Unknown command"}\n'
    exit 1
    ;;
esac
`

// ErrorPluginScript exposes "error-command", which reports a handled failure
// through the error key of its output object.
const ErrorPluginScript = `#!/bin/sh
if [ "$1" = "--help" ] || [ -z "$1" ]; then
cat <<'EOF'
usage: error_plugin [-h] {error-command} ...

Error test plugin

Available commands:
  error-command    Run the error command
EOF
exit 0
fi
cmd="$1"; shift
if [ "$1" = "--help" ]; then
  echo "usage: error_plugin $cmd [-h]"
  exit 0
fi
case "$cmd" in
  error-command)
    printf '{"error": "This is a test error"}\n'
    ;;
  *)
    printf '{"error": "Unknown command"}\n'
    exit 1
    ;;
esac
`

// SleepPluginScript exposes "concurrent-command", which sleeps briefly before
// responding. Used to observe that concurrent dispatches are not serialized.
const SleepPluginScript = `#!/bin/sh
if [ "$1" = "--help" ] || [ -z "$1" ]; then
cat <<'EOF'
usage: concurrent_plugin [-h] {concurrent-command} ...

Concurrent test plugin

Available commands:
  concurrent-command    Run the concurrent command
EOF
exit 0
fi
cmd="$1"; shift
if [ "$1" = "--help" ]; then
  echo "usage: concurrent_plugin $cmd [-h]"
  exit 0
fi
case "$cmd" in
  concurrent-command)
    sleep 0.3
    printf '{"result": "Concurrent execution completed"}\n'
    ;;
  *)
    printf '{"error": "Unknown command"}\n'
    exit 1
    ;;
esac
`

// CrashPluginScript exposes "crash-command", which exits non-zero with noise
// on stderr and no JSON on stdout.
const CrashPluginScript = `#!/bin/sh
if [ "$1" = "--help" ] || [ -z "$1" ]; then
cat <<'EOF'
usage: crash_plugin [-h] {crash-command} ...

Crash test plugin

Available commands:
  crash-command    Run the crash command
EOF
exit 0
fi
echo "something went badly wrong" >&2
exit 3
`

// SimplePluginScript builds a fixture named for its plugin that exposes
// "test-command" and reports "<name> executed successfully".
func SimplePluginScript(name string) string {
	return fmt.Sprintf(`#!/bin/sh
if [ "$1" = "--help" ] || [ -z "$1" ]; then
cat <<'EOF'
usage: %[1]s [-h] {test-command} ...

%[1]s

Available commands:
  test-command    Run the test command
EOF
exit 0
fi
cmd="$1"; shift
if [ "$1" = "--help" ]; then
  echo "usage: %[1]s $cmd [-h]"
  exit 0
fi
case "$cmd" in
  test-command)
    printf '{"result": "%[1]s executed successfully"}\n'
    ;;
  *)
    printf '{"error": "Unknown command"}\n'
    exit 1
    ;;
esac
`, name)
}

// WriteScriptPlugin installs a script fixture as <dir>/<name>/cli, matching
// the plugins-directory layout the registry scans.
func WriteScriptPlugin(dir, name, script string) (string, error) {
	pluginDir := filepath.Join(dir, name)
	if err := os.MkdirAll(pluginDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(pluginDir, "cli")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", err
	}
	return path, nil
}
