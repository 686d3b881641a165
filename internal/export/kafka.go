// Package export publishes correction results for downstream visualisation
// and archival. The sink is optional; runs without configured brokers use
// the no-op sink.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/nameji/troposar/internal/domain"
)

// CorrectionEvent summarises one corrected (or skipped) interferogram pair.
type CorrectionEvent struct {
	RunID       string    `json:"run_id"`
	Master      string    `json:"master"`
	Slave       string    `json:"slave"`
	Baseline    float64   `json:"baseline,omitempty"`
	Skipped     bool      `json:"skipped"`
	SkipReason  string    `json:"skip_reason,omitempty"`
	ValidCells  int       `json:"valid_cells,omitempty"`
	MeanDelayCm float64   `json:"mean_differential_delay_cm,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// RunSummaryEvent closes out a run.
type RunSummaryEvent struct {
	RunID          string    `json:"run_id"`
	Master         string    `json:"master"`
	Dates          int       `json:"dates"`
	PairsCorrected int       `json:"pairs_corrected"`
	PairsSkipped   int       `json:"pairs_skipped"`
	Incomplete     int       `json:"incomplete_dates"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// Sink receives run events.
type Sink interface {
	PublishCorrection(ctx context.Context, ev CorrectionEvent) error
	PublishRunSummary(ctx context.Context, ev RunSummaryEvent) error
	Close() error
}

// NopSink discards events. Used when export is not configured.
type NopSink struct{}

func (NopSink) PublishCorrection(context.Context, CorrectionEvent) error { return nil }
func (NopSink) PublishRunSummary(context.Context, RunSummaryEvent) error { return nil }
func (NopSink) Close() error                                             { return nil }

// KafkaSink publishes run events to a Kafka topic.
type KafkaSink struct {
	writer *kafkago.Writer
	runID  string
	logger *slog.Logger
}

// NewKafkaSink creates a producer for the configured export topic. Each
// sink instance carries a fresh run ID stamped onto every event.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &KafkaSink{writer: w, runID: uuid.NewString(), logger: logger}
}

// RunID returns the sink's run identifier.
func (s *KafkaSink) RunID() string { return s.runID }

// PublishCorrection emits one pair event.
func (s *KafkaSink) PublishCorrection(ctx context.Context, ev CorrectionEvent) error {
	ev.RunID = s.runID
	ev.ProcessedAt = domain.Now()
	return s.publish(ctx, "correction", ev.Master+"_"+ev.Slave, ev)
}

// PublishRunSummary emits the closing run event.
func (s *KafkaSink) PublishRunSummary(ctx context.Context, ev RunSummaryEvent) error {
	ev.RunID = s.runID
	ev.ProcessedAt = domain.Now()
	return s.publish(ctx, "run_summary", s.runID, ev)
}

func (s *KafkaSink) publish(ctx context.Context, kind, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serialize %s event: %w", kind, err)
	}
	return s.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_kind", Value: []byte(kind)},
			{Key: "run_id", Value: []byte(s.runID)},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
