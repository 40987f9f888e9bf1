package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/config"
	"github.com/effective-security/gptbridge/dispatcher"
	"github.com/effective-security/gptbridge/gateway"
	"github.com/effective-security/gptbridge/mcp"
	"github.com/effective-security/gptbridge/mcp/httptransport"
	"github.com/effective-security/gptbridge/mcp/stdiotransport"
	"github.com/effective-security/gptbridge/pkg/llmfactory"
	"github.com/effective-security/gptbridge/store"
	"github.com/effective-security/gptbridge/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/metoro-io/mcp-golang/transport"
	"github.com/spf13/cobra"
)

var listenAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long:  "Runs the MCP server over stdio, or over HTTP when --listen is provided.",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "serve over HTTP on the address instead of stdio")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	sessions := store.NewMemoryStore(cfg.StoreOptions())
	srv, err := newServer(cfg, sessions)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tr transport.Transport
	where := "stdio"
	if listen := values.StringsCoalesce(listenAddr, cfg.Server.Listen); listen != "" {
		tr = httptransport.NewHTTPTransport(listen)
		where = "http://" + listen + httptransport.DefaultEndpoint
	} else {
		tr = stdiotransport.New()
	}

	if err := srv.Serve(ctx, tr); err != nil {
		return errors.WithMessage(err, "failed to start transport")
	}
	logger.KV(xlog.INFO, "status", "ChatGPT Bridge MCP Server running on "+where)

	if ttl := cfg.StoreOptions().TTL; ttl > 0 {
		go purgeLoop(ctx, sessions, ttl)
	}

	select {
	case <-ctx.Done():
	case <-srv.Done():
	}
	logger.KV(xlog.INFO, "status", "shutting down", "sessions", sessions.Len())
	return srv.Close()
}

// newServer wires the tools and verifies that the model of every tool
// can be created, so a missing credential fails at startup.
func newServer(cfg *config.Config, sessions store.SessionStore) (*mcp.Server, error) {
	factory := llmfactory.New(&cfg.LLM)
	for _, kind := range tools.AllKinds {
		model, err := factory.ToolModel(kind.String())
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to create model for %s", kind)
		}
		logger.KV(xlog.DEBUG,
			"tool", kind,
			"provider", model.GetProviderType(),
			"model", model.GetName(),
		)
	}

	d := dispatcher.New(sessions, gateway.New(factory))
	return mcp.NewServer(d), nil
}

func purgeLoop(ctx context.Context, sessions store.SessionStore, ttl time.Duration) {
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Purge(); n > 0 {
				logger.KV(xlog.DEBUG, "status", "purged", "sessions", n)
			}
		}
	}
}
