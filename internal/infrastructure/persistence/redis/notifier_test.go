package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/stockledger/internal/domain/alert"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestAlertNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := NewAlertNotifier(pub, "stock.alert.created", zaptest.NewLogger(t))

	a := &alert.Alert{
		ID:                       3,
		ProductID:                42,
		Type:                     alert.TypeLowStock,
		CurrentStock:             15,
		ReorderPoint:             20,
		Threshold:                20,
		SuggestedReorderQuantity: 50,
		CreatedAt:                time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, n.Notify(context.Background(), a))
	assert.Equal(t, "stock.alert.created", pub.channel)

	var event alert.Event
	require.NoError(t, json.Unmarshal(pub.payload, &event))
	assert.Equal(t, uint(42), event.ProductID)
	assert.Equal(t, alert.TypeLowStock, event.AlertType)
	assert.Equal(t, 50, event.SuggestedReorderQuantity)
}

func TestAlertNotifier_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	n := NewAlertNotifier(pub, "alerts", nil)

	err := n.Notify(context.Background(), &alert.Alert{ID: 1})
	assert.ErrorContains(t, err, "connection refused")
}

func TestAlertNotifier_LogsPublish(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	n := NewAlertNotifier(&fakePublisher{}, "alerts", zap.New(core))

	require.NoError(t, n.Notify(context.Background(), &alert.Alert{ID: 9}))

	entries := logs.FilterMessage("告警消息已发布").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "alerts", entries[0].ContextMap()["channel"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["receivers"])
}
