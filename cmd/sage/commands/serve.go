package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagelabs/sage/internal/catalog"
	"github.com/sagelabs/sage/internal/document"
	"github.com/sagelabs/sage/internal/logging"
	"github.com/sagelabs/sage/internal/provider"
	"github.com/sagelabs/sage/internal/server"
	"github.com/sagelabs/sage/internal/session"
	"github.com/sagelabs/sage/internal/tool"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Sage HTTP server",
	Long: `Start Sage as a server that exposes the session and document API
over HTTP, streaming session events via SSE.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	log := logging.For("serve")
	log.Info().Str("version", Version).Msg("starting sage server")

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	store := document.NewStore(document.NewFileBackend(cfg.DataDir), document.WithIndexer(cat))
	svc := session.NewService(cat)
	tools := tool.DefaultTools(store, svc)

	ctx := context.Background()
	providerReg, err := provider.InitializeProviders(ctx, cfg.ProviderSettings(), cfg.Model)
	if err != nil {
		log.Warn().Err(err).Msg("provider initialization incomplete")
	}

	proc := session.NewProcessor(providerReg, cat, svc, tools)

	serverConfig := server.DefaultConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port

	srv := server.New(serverConfig, cat, store, svc, proc, providerReg)

	go func() {
		log.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}
