package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkaGo.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{w: fw}

	ev := Event{
		Type: TypeOrderPlaced, OrderID: "o1", OrderNumber: "ORD-1-u1", UserID: "u1",
		Status: "pending", Total: "80.80", OccurredAt: time.Unix(0, 0).UTC(),
	}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.NoError(t, p.Close())

	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "o1", string(fw.msgs[0].Key))
	assert.Equal(t, TypeOrderPlaced, string(fw.msgs[0].Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &got))
	assert.Equal(t, ev, got)
	assert.True(t, fw.closed)
}

func TestNewKafkaPublisher_Config(t *testing.T) {
	p := NewKafkaPublisher([]string{"k1:9092"}, "order-events")
	w, ok := p.w.(*kafkaGo.Writer)
	require.True(t, ok)
	assert.Equal(t, "order-events", w.Topic)
	assert.IsType(t, &kafkaGo.Hash{}, w.Balancer)
}
