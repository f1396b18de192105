package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-tracker/internal/config"
	"github.com/couchcryptid/weather-tracker/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by CueWriter.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// CueWriter publishes collection cues to a Kafka topic so other devices and
// services can react to adds and deletes. It implements domain.CuePlayer.
type CueWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewCueWriter creates a Kafka producer for the configured cue topic.
func NewCueWriter(cfg *config.Config, logger *slog.Logger) *CueWriter {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaCueTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &CueWriter{writer: w, logger: logger}
}

// Play serializes and publishes a single cue.
func (w *CueWriter) Play(ctx context.Context, cue domain.Cue) error {
	msg, err := serializeToMessage(cue)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish cue: %w", err)
	}
	w.logger.Debug("cue published", "kind", cue.Kind, "city_id", cue.CityID)
	return nil
}

func (w *CueWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Cue into a Kafka message keyed by city so
// every cue for one city lands on the same partition.
func serializeToMessage(cue domain.Cue) (kafkago.Message, error) {
	data, err := json.Marshal(cue)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cue: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(cue.CityID, 10)),
		Value: data,
		Time:  cue.At,
		Headers: []kafkago.Header{
			{Key: "cue_kind", Value: []byte(cue.Kind)},
			{Key: "emitted_at", Value: []byte(cue.At.UTC().Format(time.RFC3339))},
			{Key: "event_id", Value: []byte(uuid.NewString())},
		},
	}, nil
}
