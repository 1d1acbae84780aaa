//go:build integration

package outbox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func TestDLQReplayPublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	userID := uuid.NewString()
	achievementID := uuid.NewString()

	payload := map[string]any{
		"achievement_id": achievementID,
		"user_id":        userID,
		"challenge_id":   uuid.NewString(),
		"challenge_slug": "weekend-warrior",
		"enrollment_id":  uuid.NewString(),
		"reward":         "Warrior badge",
		"badge":          "warrior",
		"completed_on":   time.Now().UTC().Truncate(time.Second),
	}
	insertOutboxPayload(t, ctx, pool, userID, achievementID, payload)

	registry := &stubRegistry{id: 100}

	// 1. Initial dispatch fails and moves the message to DLQ.
	failingProducer := &stubProducer{err: errors.New("upstream kafka unavailable")}
	dispatcher := NewDispatcher(pool, failingProducer, registry, 5*time.Millisecond, 10)
	require.NoError(t, dispatcher.processBatch(ctx))

	var dlqCount int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount)
	require.NoError(t, err)
	require.Equal(t, 1, dlqCount, "expected message routed to DLQ on failure")

	// 2. Requeue the DLQ entry.
	manager := NewDLQManager(pool, 5, time.Second)
	replayed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, replayed)

	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount)
	require.NoError(t, err)
	require.Equal(t, 0, dlqCount, "expected DLQ cleared after requeue")

	// 3. Dispatch the requeued event against a real broker and read it back.
	kContainer, err := kafkaContainer.RunContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kContainer.Terminate(context.Background()) })

	brokers, err := kContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	broker := brokers[0]

	conn, err := kafka.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             "challenge_events",
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))

	producer := NewKafkaProducer([]string{broker})
	t.Cleanup(func() { _ = producer.Close() })

	dispatcher = NewDispatcher(pool, producer, registry, 5*time.Millisecond, 10)
	require.NoError(t, dispatcher.processBatch(ctx))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   "challenge_events",
		GroupID: "dlq-replay-test",
	})
	t.Cleanup(func() { _ = reader.Close() })

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, userID, string(msg.Key))

	// Confluent wire format: magic byte plus the registered schema ID.
	require.Greater(t, len(msg.Value), 5)
	require.Equal(t, byte(0), msg.Value[0])
	require.Equal(t, uint32(100), binary.BigEndian.Uint32(msg.Value[1:5]))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value[5:], &decoded))
	require.Equal(t, achievementID, decoded["achievement_id"])
	require.Equal(t, userID, decoded["user_id"])
}

func insertOutboxPayload(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userID, aggregateID string, payload map[string]any) {
	t.Helper()

	payloadBytes, err := json.Marshal(payload)
	require.NoError(t, err)

	_, err = pool.Exec(ctx,
		`INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		"achievement",
		aggregateID,
		"challenge.completed",
		"challenge_events",
		"challenge_events-value",
		userID,
		payloadBytes,
	)
	require.NoError(t, err)
}
