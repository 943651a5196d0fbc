package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"higress-chat/internal/adapter/httpapi"
	"higress-chat/internal/di"
	"higress-chat/internal/infrastructure/env"

	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("chatd", pflag.ExitOnError)
	flags.String("http-addr", ":8080", "listen address")
	flags.String("model", "", "default model name (MODEL)")
	flags.Bool("enable-thinking", false, "stream reasoning by default")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-dir", "", "directory for the JSON log file")
	flags.Parse(os.Args[1:])

	if _, err := env.LoadDotenv("."); err != nil {
		log.Printf("Warning: %v", err)
	}
	cfg, err := env.Load(flags)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	container, err := di.NewContainer(cfg, di.Options{Session: "chatd"})
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	defer container.Close()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewServer(container.Chat, container.Defaults, container.Logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		container.Logger.Info("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Shutdown failed", "error", err)
	}
	container.LogToolUsage()
}
