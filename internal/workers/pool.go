package workers

import (
	"context"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hetulpatel/pdfvalidator/internal/events"
	"github.com/hetulpatel/pdfvalidator/internal/kafka"
	"github.com/hetulpatel/pdfvalidator/internal/logging"
)

type Handler func(context.Context, *events.OutcomeEvent) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
}

// Run starts workerCount consumers in the same group and blocks until ctx
// ends and every consumer has returned.
func Run(ctx context.Context, brokers []string, topic, group string, workerCount int, handler Handler) {
	if workerCount <= 0 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			reader := kafka.NewReader(brokers, topic, group)
			defer reader.Close()
			logging.Debugf("outcome worker %d consuming %s", id, topic)
			consume(ctx, reader, handler)
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
}

func consume(ctx context.Context, reader messageReader, handler Handler) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Errorf("worker read error: %v", err)
			continue
		}

		ev, err := events.DecodeMessage(msg)
		if err != nil {
			logging.Errorf("worker decode error at offset %d: %v", msg.Offset, err)
			continue
		}

		if handler != nil {
			if err := handler(ctx, &ev); err != nil {
				logging.Errorf("worker handler error for %s: %v", ev.RequestID, err)
			}
		}
	}
}
