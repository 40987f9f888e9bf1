// Package cli implements the chatgpt-bridge command line.
package cli

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/mcp"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/gptbridge", "cli")

var (
	configFile string
	logLevel   string
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatgpt-bridge",
		Short: "MCP server bridging Claude and ChatGPT",
		Long: `chatgpt-bridge exposes ChatGPT research, analysis, real-time collaboration
and latest information tools to an MCP client over stdio.

Without --config the OpenAI provider is configured by
OPENAI_API_KEY, OPENAI_MODEL and OPENAI_BASE_URL.`,
		Version:       mcp.ServerVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(logLevel)
		},
		// serve is the default command
		RunE: runServe,
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the configuration file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "log level: TRACE|DEBUG|INFO|NOTICE|WARNING|ERROR")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "serve over HTTP on the address instead of stdio")

	cmd.AddCommand(newServeCmd(), newToolsCmd())
	return cmd
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.KV(xlog.ERROR, "err", err.Error())
	}
	return err
}

var logLevels = map[string]xlog.LogLevel{
	"TRACE":   xlog.TRACE,
	"DEBUG":   xlog.DEBUG,
	"INFO":    xlog.INFO,
	"NOTICE":  xlog.NOTICE,
	"WARNING": xlog.WARNING,
	"ERROR":   xlog.ERROR,
}

// setupLogging sends the logs to stderr, stdout carries the protocol
func setupLogging(level string) error {
	l, ok := logLevels[strings.ToUpper(level)]
	if !ok {
		return errors.Errorf("invalid log level: %s", level)
	}
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	xlog.SetGlobalLogLevel(l)
	return nil
}
