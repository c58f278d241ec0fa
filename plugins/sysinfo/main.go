// Package main provides the sysinfo sample plugin for Toolgate.
// It reports basic host facts through the plugin CLI contract.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"
)

const describePayload = `{
  "name": "sysinfo",
  "commands": [
    {
      "name": "host-info",
      "description": "Report hostname, OS, and architecture"
    },
    {
      "name": "proc-info",
      "description": "Report process details",
      "parameters": [
        {"name": "env", "type": "boolean", "description": "Include environment variable count"}
      ]
    }
  ]
}`

const helpText = `usage: sysinfo [-h] {host-info,proc-info} ...

Host information sample plugin

Available commands:
  host-info    Report hostname, OS, and architecture
  proc-info    Report process details
`

func main() {
	if len(os.Args) < 2 || os.Args[1] == "--help" {
		fmt.Print(helpText)
		return
	}
	if os.Args[1] == "--describe" {
		fmt.Println(describePayload)
		return
	}

	switch os.Args[1] {
	case "host-info":
		hostname, err := os.Hostname()
		if err != nil {
			writeError(fmt.Sprintf("failed to read hostname: %v", err))
			os.Exit(1)
		}
		writeResult(map[string]any{
			"hostname": hostname,
			"os":       runtime.GOOS,
			"arch":     runtime.GOARCH,
			"time":     time.Now().Format(time.RFC3339),
		})
	case "proc-info":
		result := map[string]any{
			"pid":  os.Getpid(),
			"cpus": runtime.NumCPU(),
		}
		for _, arg := range os.Args[2:] {
			if arg == "--env" {
				result["env_vars"] = len(os.Environ())
			}
		}
		writeResult(result)
	default:
		writeError("Unknown command")
		os.Exit(1)
	}
}

func writeResult(result any) {
	json.NewEncoder(os.Stdout).Encode(map[string]any{"result": result})
}

func writeError(message string) {
	json.NewEncoder(os.Stdout).Encode(map[string]string{"error": message})
}
