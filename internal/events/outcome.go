// Package events publishes a notification for every finished validation
// request. Events describe the request; they are not a store of documents
// or results.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/pdfvalidator/internal/hashutil"
	"github.com/hetulpatel/pdfvalidator/internal/validator"
)

// OutcomeEvent summarises one validation request.
type OutcomeEvent struct {
	RequestID      string    `json:"request_id"`
	Filename       string    `json:"filename"`
	DocumentSHA256 string    `json:"document_sha256,omitempty"`
	RulesDigest    string    `json:"rules_digest"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	Passed         int       `json:"passed"`
	Failed         int       `json:"failed"`
	PageCount      int       `json:"pdf_pages"`
	ProcessingTime float64   `json:"processing_time"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	Error          string    `json:"error,omitempty"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Succeeded reports whether the request produced an outcome.
func (e OutcomeEvent) Succeeded() bool {
	return e.ErrorKind == ""
}

// Request identifies the request an event is built for.
type Request struct {
	RequestID      string
	Filename       string
	DocumentSHA256 string
	Rules          []string
	Provider       string
	Model          string
}

// NewOutcomeEvent builds the event for a finished request. Exactly one of
// outcome and err is expected to be non-nil.
func NewOutcomeEvent(req Request, outcome *validator.Outcome, err error) OutcomeEvent {
	ev := OutcomeEvent{
		RequestID:      req.RequestID,
		Filename:       req.Filename,
		DocumentSHA256: req.DocumentSHA256,
		RulesDigest:    hashutil.HashStrings(req.Rules...),
		Provider:       req.Provider,
		Model:          req.Model,
		FinishedAt:     time.Now().UTC(),
	}
	if outcome != nil {
		ev.Passed = outcome.Passed()
		ev.Failed = len(outcome.Results) - ev.Passed
		ev.PageCount = outcome.PageCount
		ev.ProcessingTime = outcome.ProcessingTime
	}
	if err != nil {
		ev.ErrorKind = validator.Kind(err)
		ev.Error = err.Error()
	}
	return ev
}

// Publisher delivers outcome events.
type Publisher interface {
	PublishOutcome(ctx context.Context, ev OutcomeEvent) error
	Close() error
}

// Nop discards events. It is used when outcome events are disabled.
type Nop struct{}

func (Nop) PublishOutcome(context.Context, OutcomeEvent) error { return nil }

func (Nop) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by request id.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishOutcome(ctx context.Context, ev OutcomeEvent) error {
	if p == nil || p.writer == nil {
		return nil
	}
	msg, err := EncodeMessage(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// EncodeMessage turns an event into its kafka message.
func EncodeMessage(ev OutcomeEvent) (kafka.Message, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal outcome %s: %w", ev.RequestID, err)
	}
	return kafka.Message{Key: []byte(ev.RequestID), Value: payload, Time: ev.FinishedAt}, nil
}

// DecodeMessage is the inverse of EncodeMessage.
func DecodeMessage(msg kafka.Message) (OutcomeEvent, error) {
	var ev OutcomeEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return OutcomeEvent{}, fmt.Errorf("unmarshal outcome: %w", err)
	}
	return ev, nil
}
