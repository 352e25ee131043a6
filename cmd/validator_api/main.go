package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hetulpatel/pdfvalidator/internal/config"
	"github.com/hetulpatel/pdfvalidator/internal/events"
	"github.com/hetulpatel/pdfvalidator/internal/kafka"
	"github.com/hetulpatel/pdfvalidator/internal/llm"
	"github.com/hetulpatel/pdfvalidator/internal/logging"
	"github.com/hetulpatel/pdfvalidator/internal/server"
	"github.com/hetulpatel/pdfvalidator/internal/validator"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("[validator-api] %v", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logging.Fatalf("[validator-api] create upload dir %s: %v", cfg.UploadDir, err)
	}

	extractor, err := validator.NewExtractor(cfg.PDFExtractor, cfg.PDFToTextBin)
	if err != nil {
		logging.Fatalf("[validator-api] %v", err)
	}
	invoker, err := llm.FromConfig(ctx, cfg)
	if err != nil {
		logging.Fatalf("[validator-api] llm client: %v", err)
	}
	if closer, ok := invoker.(io.Closer); ok {
		defer closer.Close()
	}
	svc, err := validator.NewService(validator.Config{Extractor: extractor, Invoker: invoker})
	if err != nil {
		logging.Fatalf("[validator-api] %v", err)
	}

	publisher := mustPublisher(ctx, cfg)
	defer publisher.Close()

	srv, err := server.New(server.Options{Config: cfg, Validator: svc, Publisher: publisher})
	if err != nil {
		logging.Fatalf("[validator-api] %v", err)
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Infof("[validator-api] listening on %s (provider=%s model=%s extractor=%s)",
			cfg.HTTPAddr, cfg.LLMProvider, invoker.Model(), cfg.PDFExtractor)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logging.Infof("[validator-api] shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logging.Fatalf("[validator-api] %v", err)
	}
}

// mustPublisher returns a kafka publisher when outcome events are enabled
// and a no-op publisher otherwise.
func mustPublisher(ctx context.Context, cfg *config.Config) events.Publisher {
	if !cfg.OutcomeEvents {
		return events.Nop{}
	}

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, cfg.KafkaBrokers); err != nil {
		logging.Fatalf("[validator-api] wait for broker: %v", err)
	}
	cancel()

	ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
	if err := kafka.EnsureTopic(ensureCtx, cfg.KafkaBrokers, cfg.OutcomesTopic); err != nil {
		logging.Warnf("[validator-api] ensure topic warning: %v", err)
	}
	cancelEnsure()

	logging.Infof("[validator-api] publishing outcomes to %s", cfg.OutcomesTopic)
	return events.NewKafkaPublisher(kafka.NewWriter(cfg.KafkaBrokers, cfg.OutcomesTopic))
}
