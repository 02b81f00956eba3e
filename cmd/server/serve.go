package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/threadchat/internal/server"
	"github.com/Tyrowin/threadchat/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen address, e.g. :8080 (env SERVER_PORT)")
	serveCmd.Flags().Bool("seed", false, "seed an empty database with demo data before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(v.GetString(cfgKeyLogLevel))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, storeConfig(v), log.With("component", "store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		log.Info("closing store")
		_ = st.Close()
	}()

	if v.GetBool(cfgKeySeed) {
		if _, err := st.Seed(ctx); err != nil {
			return err
		}
	}

	cfg := serverConfig(v)
	srv := server.New(cfg, st, log)
	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, log)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := time.Duration(v.GetInt(cfgKeyShutdownTimeout)) * time.Second
	if err := server.ShutdownServer(httpServer, timeout, log); err != nil {
		log.Warn("http shutdown incomplete", "err", err)
	}
	if err := srv.Shutdown(timeout); err != nil {
		log.Warn("hub shutdown incomplete", "err", err)
	}
	return nil
}
