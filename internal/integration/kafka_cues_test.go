//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/weather-tracker/internal/adapter/kafka"
	"github.com/couchcryptid/weather-tracker/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-tracker/internal/config"
	"github.com/couchcryptid/weather-tracker/internal/domain"
	"github.com/couchcryptid/weather-tracker/internal/observability"
	"github.com/couchcryptid/weather-tracker/internal/tracker"
	json "github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testCueTopic = "test-weather-cues"

type stubLookup struct{}

func (stubLookup) Current(_ context.Context, _ domain.Coordinate) (domain.WeatherSnapshot, error) {
	return domain.WeatherSnapshot{ProviderLocationID: 5280, TemperatureCelsius: 15, IconCode: "01d", Description: "clear sky"}, nil
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("weather-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestCueWriter_PublishesCollectionChanges adds and removes a city and reads
// both cues back from the broker.
func TestCueWriter_PublishesCollectionChanges(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testCueTopic)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaCueTopic: testCueTopic}
	writer := kafka.NewCueWriter(cfg, logger)
	defer writer.Close()

	kv, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	defer kv.Close()

	col := tracker.New(kv, stubLookup{}, nil, writer, logger, observability.NewMetricsForTesting(),
		tracker.WithClock(clockwork.NewFakeClockAt(time.Date(2026, 10, 16, 15, 4, 0, 0, time.UTC))),
		tracker.WithLocation(time.UTC),
	)
	col.Load(ctx)

	_, err = col.AddFromFetch(ctx, domain.CityRef{ID: 4250542, Name: "Springfield", CountryCode: "US"})
	require.NoError(t, err)
	col.Close()
	require.NoError(t, col.Remove(ctx, 5280))
	col.Close()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testCueTopic,
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
	defer consumer.Close()

	var kinds []domain.CueKind
	for range 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read cue")

		assert.Equal(t, "5280", string(msg.Key))
		var cue domain.Cue
		require.NoError(t, json.Unmarshal(msg.Value, &cue))
		assert.Equal(t, int64(5280), cue.CityID)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, string(cue.Kind), headers["cue_kind"])
		assert.NotEmpty(t, headers["event_id"])
		kinds = append(kinds, cue.Kind)
	}

	assert.Equal(t, []domain.CueKind{domain.CueAdd, domain.CueDelete}, kinds)
}
