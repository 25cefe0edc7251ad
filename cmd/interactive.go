package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/estincelle/chip-tool-go/internal/logging"
	"github.com/estincelle/chip-tool-go/internal/server"
	"github.com/spf13/cobra"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Interactive mode commands",
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the interactive server mode",
	Long: `Start a WebSocket server on 0.0.0.0:<port> that:
  - Accepts one command per text frame, optionally prefixed with "json:"
  - Answers each frame with a {"results": [...], "logs": [...]} response
  - Logs to the console and to chip-tool.log beside the executable`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
	interactiveCmd.AddCommand(serverCmd)
	registerServerFlags(serverCmd)
}

func registerServerFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Uint16("port", server.DefaultPort, "Port the websocket will listen to")
	flags.Uint8("trace_decode", 0, "Enable tracing of all exchanged messages. 0 = off, 1 = on")
	flags.StringP("config", "c", "", "Path to config file (.yaml, .yml or .toml)")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error, disabled)")
	flags.String("log-file", logging.DefaultFile(), `Log file path, "" to disable`)
	flags.Int("max-upgrades-per-minute", 0, "Limit WebSocket upgrades per minute, 0 for no limit")
}

func runServer(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, source, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closeLog()

	if source != "" {
		logger.Info().Str("path", source).Msg("Loaded config")
	}
	if cfg.LogFile != "" {
		logger.Info().Str("path", cfg.LogFile).Msg("Logging to file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg.serverConfig(), logger).ListenAndServe(ctx)
}
