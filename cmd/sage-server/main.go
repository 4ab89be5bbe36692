// Package main provides the entry point for the Sage server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sagelabs/sage/internal/catalog"
	"github.com/sagelabs/sage/internal/config"
	"github.com/sagelabs/sage/internal/document"
	"github.com/sagelabs/sage/internal/logging"
	"github.com/sagelabs/sage/internal/provider"
	"github.com/sagelabs/sage/internal/server"
	"github.com/sagelabs/sage/internal/session"
	"github.com/sagelabs/sage/internal/tool"
)

var (
	port    = flag.Int("port", 0, "Server port")
	host    = flag.String("host", "", "Server host")
	version = flag.Bool("version", false, "Print version and exit")
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("sage-server %s (%s)\n", Version, BuildTime)
		os.Exit(0)
	}

	_ = godotenv.Load()

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}

	logging.Init(logging.Config{Level: logging.ParseLevel(cfg.LogLevel)})
	log := logging.For("main")
	log.Info().Str("version", Version).Msg("starting sage server")

	cat, err := catalog.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open catalog")
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
}
