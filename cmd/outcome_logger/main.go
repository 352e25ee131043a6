package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hetulpatel/pdfvalidator/internal/events"
	"github.com/hetulpatel/pdfvalidator/internal/kafka"
	"github.com/hetulpatel/pdfvalidator/internal/logging"
	"github.com/hetulpatel/pdfvalidator/internal/workers"
)

func main() {
	_ = godotenv.Load()
	logging.InitFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	brokers := envList("KAFKA_BROKERS", []string{kafka.DefaultBroker})
	topic := envString("OUTCOMES_KAFKA_TOPIC", kafka.DefaultOutcomesTopic)
	group := envString("OUTCOME_LOGGER_GROUP", "outcome-logger")
	workerCount := envInt("OUTCOME_LOGGER_WORKERS", 1)

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
		logging.Fatalf("[outcome-logger] wait for broker: %v", err)
	}
	cancel()

	ensureCtx, cancelEnsure := context.WithTimeout(ctx, 30*time.Second)
	if err := kafka.EnsureTopic(ensureCtx, brokers, topic); err != nil {
		logging.Warnf("[outcome-logger] ensure topic warning: %v", err)
	}
	cancelEnsure()

	logging.Infof("[outcome-logger] consuming %s with group %s (%d workers)", topic, group, workerCount)
	workers.Run(ctx, brokers, topic, group, workerCount, func(ctx context.Context, ev *events.OutcomeEvent) error {
		if !ev.Succeeded() {
			logging.Warnf("[outcome-logger] %s file=%s provider=%s kind=%s error=%s",
				ev.RequestID, ev.Filename, ev.Provider, ev.ErrorKind, ev.Error)
			return nil
		}
		logging.Infof("[outcome-logger] %s file=%s pages=%d passed=%d failed=%d time=%.2fs provider=%s model=%s",
			ev.RequestID, ev.Filename, ev.PageCount, ev.Passed, ev.Failed, ev.ProcessingTime, ev.Provider, ev.Model)
		return nil
	})
}

func envString(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return def
}

func envList(key string, def []string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
