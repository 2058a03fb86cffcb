package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"modelgateway/internal/api"
	"modelgateway/internal/config"
	"modelgateway/internal/logger"
	"modelgateway/internal/provider"
	"modelgateway/internal/provider/anthropic"
	"modelgateway/internal/provider/kimi"
	"modelgateway/internal/provider/openaicompat"
)

func main() {
	root := &cobra.Command{
		Use:   "modelgateway",
		Short: "OpenAI-compatible gateway in front of heterogeneous model providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
		SilenceUsage: true,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()
	logger.Init(logger.DefaultConfig())
	log := logger.WithComponent("main")

	cfg := config.Load()

	client := &http.Client{
		Timeout: time.Duration(cfg.RequestTimeoutSecs) * time.Second,
	}
	policy := provider.RetryPolicy{
		MaxRetries: cfg.UpstreamMaxRetries,
		BaseDelay:  time.Duration(cfg.UpstreamRetryBaseDelayMS) * time.Millisecond,
	}

	compat := func(id provider.Identity, opts ...openaicompat.Option) *openaicompat.Adapter {
		opts = append(opts,
			openaicompat.WithHTTPClient(client),
			openaicompat.WithRetryPolicy(policy),
		)
		return openaicompat.New(string(id), cfg.BaseURL(string(id)), opts...)
	}

	registry := provider.NewRegistry(
		compat(provider.OpenAI),
		anthropic.New(cfg.BaseURL("anthropic"),
			anthropic.WithHTTPClient(client),
			anthropic.WithRetryPolicy(policy)),
		compat(provider.Gemini),
		kimi.New(cfg.BaseURL("kimi"),
			openaicompat.WithHTTPClient(client),
			openaicompat.WithRetryPolicy(policy)),
		compat(provider.OpenRouter),
		compat(provider.Vercel),
		compat(provider.Groq),
		compat(provider.DeepSeek),
		compat(provider.XAI),
		compat(provider.Mistral),
		compat(provider.Cohere),
		compat(provider.Azure, openaicompat.WithAPIKeyHeader("api-key")),
		compat(provider.Bedrock),
		compat(provider.Vertex),
	)

	mux := http.NewServeMux()
	api.NewServer(cfg, registry).Routes(mux)

	// no WriteTimeout: streaming responses stay open as long as the
	// upstream keeps producing
	server := &http.Server{
		Addr:              cfg.BindAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening", "addr", cfg.BindAddr())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err.Error())
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err.Error())
		return err
	}
	return nil
}
