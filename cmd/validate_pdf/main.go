package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hetulpatel/pdfvalidator/internal/cli"
	"github.com/hetulpatel/pdfvalidator/internal/config"
	"github.com/hetulpatel/pdfvalidator/internal/llm"
	"github.com/hetulpatel/pdfvalidator/internal/logging"
	"github.com/hetulpatel/pdfvalidator/internal/validator"
)

func main() {
	rootCmd := cli.NewValidateCommand(newService)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, cli.ErrRulesFailed) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func newService(ctx context.Context) (cli.Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	extractor, err := validator.NewExtractor(cfg.PDFExtractor, cfg.PDFToTextBin)
	if err != nil {
		return nil, err
	}
	invoker, err := llm.FromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	return validator.NewService(validator.Config{Extractor: extractor, Invoker: invoker})
}
