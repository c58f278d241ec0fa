// Package main provides the echo sample plugin for Toolgate.
// It demonstrates the plugin CLI contract: --describe prints the command
// schema, each subcommand prints exactly one JSON object on stdout.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const describePayload = `{
  "name": "echo",
  "commands": [
    {
      "name": "echo-text",
      "description": "Echo the given text back",
      "parameters": [
        {"name": "text", "type": "string", "required": true, "description": "Text to echo"},
        {"name": "upper", "type": "boolean", "description": "Uppercase the output"}
      ]
    },
    {
      "name": "repeat-text",
      "description": "Repeat the given text",
      "parameters": [
        {"name": "text", "type": "string", "required": true, "description": "Text to repeat"},
        {"name": "count", "type": "number", "default": 2, "description": "Number of repetitions"}
      ]
    }
  ]
}`

const helpText = `usage: echo [-h] {echo-text,repeat-text} ...

Echo sample plugin

Available commands:
  echo-text      Echo the given text back
  repeat-text    Repeat the given text
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

	command := os.Args[1]
	flags := parseFlags(os.Args[2:])

	switch command {
	case "echo-text":
		text := flags["text"]
		if _, upper := flags["upper"]; upper {
			text = strings.ToUpper(text)
		}
		writeResult(text)
	case "repeat-text":
		count := 2
		if raw, ok := flags["count"]; ok {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				count = n
			}
		}
		parts := make([]string, count)
		for i := range parts {
			parts[i] = flags["text"]
		}
		writeResult(strings.Join(parts, " "))
	default:
		writeError("Unknown command")
		os.Exit(1)
	}
}

// parseFlags reads "--name value" and bare "--name" pairs.
func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if !strings.HasPrefix(args[i], "--") {
			continue
		}
		name := strings.TrimPrefix(args[i], "--")
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			flags[name] = args[i+1]
			i++
		} else {
			flags[name] = ""
		}
	}
	return flags
}

func writeResult(result string) {
	json.NewEncoder(os.Stdout).Encode(map[string]string{"result": result})
}

func writeError(message string) {
	json.NewEncoder(os.Stdout).Encode(map[string]string{"error": message})
}
