//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"dealdesk/internal/notify"
	"dealdesk/internal/platform/config"
	"dealdesk/internal/platform/kafka"
	"dealdesk/internal/platform/postgres"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/testutil/containers"
)

func TestRelayDeliversOutboxToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := containers.NewPostgresContainer(t)
	require.NoError(t, postgres.Migrate(ctx, pg.DB))
	rp := containers.NewRedpandaContainer(t)

	cfg := config.KafkaConfig{Brokers: []string{rp.Broker}, Topic: "dealdesk.notifications.test"}
	producer, err := kafka.NewProducer(cfg)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1))
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1), "existing topic is fine")

	outbox := notify.NewOutboxStore(pg.DB)
	subject := id.SubjectID(uuid.New())
	event := notify.NewEvent(notify.KindAppealResolved, subject, id.ActorID(uuid.New()), "approved", "Appeal overturned", time.Now())
	require.NoError(t, outbox.Notify(ctx, event))

	relay, err := notify.NewRelay(outbox, producer)
	require.NoError(t, err)
	n, err := relay.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := outbox.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, subject.String(), string(records[0].Key))

	var got notify.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, notify.KindAppealResolved, got.Kind)
}
