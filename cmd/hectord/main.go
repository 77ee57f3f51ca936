// Command hectord is the long-running HTTP daemon: it loads a
// DaemonConfig, builds one llm.Gateway per configured service, registers
// any configured MCP tool servers, and serves spec.md's §6 conversation
// API until a shutdown signal arrives.
//
// Usage:
//
//	hectord --config hectord.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/hector-core/pkg/auth"
	"github.com/kadirpekel/hector-core/pkg/config"
	"github.com/kadirpekel/hector-core/pkg/eventstore"
	"github.com/kadirpekel/hector-core/pkg/llm"
	"github.com/kadirpekel/hector-core/pkg/logging"
	"github.com/kadirpekel/hector-core/pkg/mcp"
	"github.com/kadirpekel/hector-core/pkg/observability"
	"github.com/kadirpekel/hector-core/pkg/server"
	"github.com/kadirpekel/hector-core/pkg/tool"
)

// CLI is hectord's full command-line surface: one required config path,
// no subcommands (unlike hector, hectord has exactly one job).
type CLI struct {
	Config string `short:"c" required:"" type:"path" help:"Path to hectord config file."`
}

func main() {
	_ = config.LoadEnvFiles()

	var cli CLI
	kong.Parse(&cli,
		kong.Name("hectord"),
		kong.Description("hector-core conversation API daemon"),
		kong.UsageOnError(),
	)

	if err := run(cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cli CLI) error {
	cfg, err := config.LoadDaemonConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("hectord: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Logger.Level)
	if err != nil {
		return fmt.Errorf("hectord: %w", err)
	}
	logOutput := os.Stderr
	var closeLog func()
	if cfg.Logger.File != "" {
		f, cleanup, err := logging.OpenLogFile(cfg.Logger.File)
		if err != nil {
			return fmt.Errorf("hectord: open log file: %w", err)
		}
		logOutput = f
		closeLog = cleanup
	}
	logging.Init(level, logOutput, cfg.Logger.Format)
	if closeLog != nil {
		defer closeLog()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obsManager, err := observability.NewManager(ctx, &cfg.Observability)
	if err != nil {
		return fmt.Errorf("hectord: observability: %w", err)
	}
	defer obsManager.Shutdown(context.Background())

	gateways := llm.NewServiceRegistry()
	for _, svc := range cfg.Services {
		gw := llm.New(llm.Config{
			Provider: llm.NewOpenAIProvider(svc.APIKey.Reveal(), svc.BaseURL, svc.Model),
			Cost: llm.CostModel{
				InputCostPerToken:  svc.InputCostPerToken,
				OutputCostPerToken: svc.OutputCostPerToken,
			},
			Retry: llm.RetryConfig{
				NumRetries: svc.NumRetries,
				Multiplier: svc.RetryMultiplier,
				MinWait:    time.Duration(svc.RetryMinWait * float64(time.Second)),
				MaxWait:    time.Duration(svc.RetryMaxWait * float64(time.Second)),
			},
			DisableVision: svc.DisableVision,
			CachingPrompt: svc.CachingPrompt,
			ModifyParams:  svc.ModifyParams,
		})
		if err := gateways.Register(svc.ServiceID, gw); err != nil {
			return fmt.Errorf("hectord: register service %q: %w", svc.ServiceID, err)
		}
		slog.Info("hectord: registered service", "service_id", svc.ServiceID, "model", svc.Model)
	}

	tools := tool.NewRegistry()
	for _, m := range cfg.MCPServers {
		mcpCfg := mcp.Config{
			Name:      m.Name,
			Transport: m.Transport,
			URL:       m.URL,
			Command:   m.Command,
			Args:      m.Args,
			Env:       m.Env,
			Filter:    m.Filter,
		}
		if err := tools.Register(m.Name, mcp.Factory(mcpCfg)); err != nil {
			return fmt.Errorf("hectord: register mcp server %q: %w", m.Name, err)
		}
		slog.Info("hectord: registered mcp server", "name", m.Name, "transport", m.Transport)
	}

	secrets := config.NewRegistry()
	for _, svc := range cfg.Services {
		if err := secrets.Register(svc); err != nil {
			return fmt.Errorf("hectord: %w", err)
		}
	}

	var validator *auth.JWTValidator
	if cfg.Server.Auth != nil && cfg.Server.Auth.Enabled {
		validator, err = auth.NewJWTValidator(cfg.Server.Auth.JWKSURL, cfg.Server.Auth.Issuer, cfg.Server.Auth.Audience, cfg.Server.Auth.RefreshInterval)
		if err != nil {
			return fmt.Errorf("hectord: auth: %w", err)
		}
		defer validator.Close()
	}

	var store eventstore.Store
	if cfg.StorageDir != "" {
		fileStore, err := eventstore.NewFileStore(cfg.StorageDir)
		if err != nil {
			return fmt.Errorf("hectord: storage: %w", err)
		}
		defer fileStore.Close()
		store = fileStore
		slog.Info("hectord: file-backed event store", "dir", cfg.StorageDir)
	} else {
		store = eventstore.NewMemoryStore()
		slog.Info("hectord: in-memory event store (conversations are not durable)")
	}

	srv := server.New(server.Deps{
		Gateways:      gateways,
		Tools:         tools,
		Store:         store,
		Secrets:       secrets,
		Observability: obsManager,
		Auth:          validator,
		Config:        cfg.Server,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("hectord: shutting down")
		cancel()
	}()

	if err := srv.Start(); err != nil {
		return fmt.Errorf("hectord: %w", err)
	}
	slog.Info("hectord: listening", "addr", cfg.Server.Address())

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
