// Command toolgate runs the Toolgate plugin gateway: it exposes the plugins
// in a directory as remotely callable tools over JSON-RPC and SSE.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/ayusman/toolgate/internal/gateway"
	"github.com/ayusman/toolgate/internal/plugin"
	"github.com/ayusman/toolgate/internal/rpc"
	"github.com/ayusman/toolgate/internal/server"
	"github.com/ayusman/toolgate/internal/store"
)

var (
	flagAddr        string
	flagPluginDir   string
	flagDB          string
	flagExecTimeout time.Duration
	flagLogLevel    string
)

func main() {
	root := &cobra.Command{
		Use:           "toolgate",
		Short:         "Expose command-line plugins as streaming JSON-RPC tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagPluginDir, "plugins-dir", envOr("TOOLGATE_PLUGINS_DIR", "plugins"), "directory scanned for plugin executables")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", envOr("TOOLGATE_LOG_LEVEL", "info"), "log level (trace, debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&flagAddr, "addr", envOr("TOOLGATE_ADDR", ":8085"), "listen address")
	serveCmd.Flags().StringVar(&flagDB, "db", os.Getenv("TOOLGATE_DB"), "invocation history database path (empty: ~/.toolgate/toolgate.db)")
	serveCmd.Flags().DurationVar(&flagExecTimeout, "exec-timeout", plugin.DefaultExecTimeout, "per-invocation plugin execution timeout")

	pluginsCmd := &cobra.Command{
		Use:   "plugins",
		Short: "Scan the plugins directory and print the discovered tools",
		RunE:  runPlugins,
	}

	root.AddCommand(serveCmd, pluginsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	dbPath := flagDB
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir := filepath.Join(homeDir, ".toolgate")
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "toolgate.db")
	}

	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	gw := gateway.New(gateway.Config{
		PluginDir:   flagPluginDir,
		ExecTimeout: flagExecTimeout,
		Store:       st,
		Logger:      logger,
	})
	if err := gw.Start(); err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	defer gw.Stop()

	srv := server.New(server.Config{Gateway: gw, Store: st, Logger: logger})

	health := gw.Health()
	logger.Info("starting server", "addr", flagAddr, "plugins", health.Plugins, "dir", flagPluginDir)
	return srv.ListenAndServe(flagAddr)
}

func runPlugins(cmd *cobra.Command, _ []string) error {
	gw := gateway.New(gateway.Config{PluginDir: flagPluginDir, Logger: newLogger()})
	if err := gw.Start(); err != nil {
		return err
	}
	defer gw.Stop()

	snap := gw.Registry().Current()
	if len(snap.Plugins) == 0 {
		fmt.Printf("No plugins found in %s\n", flagPluginDir)
		return nil
	}

	for _, tool := range rpc.BuildManifest(snap).Tools {
		fmt.Printf("%-40s %s\n", tool.Name, tool.Description)
	}
	return nil
}

func newLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "toolgate",
		Level: hclog.LevelFromString(flagLogLevel),
	})
}

// envOr reads an environment variable with a fallback default.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
