package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"service-dispatch/internal/logx"
)

func TestRegistry_PushNotConnected(t *testing.T) {
	t.Parallel()

	r := NewRegistry(logx.Nop())
	err := r.Push(context.Background(), 42, Message{Type: TypeOffer})
	require.ErrorIs(t, err, ErrNotConnected)
	require.False(t, r.Connected(42))
}

func TestProducer_Publish(t *testing.T) {
	t.Parallel()

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var msg Message
		return json.Unmarshal(value, &msg)
	})

	p := NewProducer(mock, "courier-notifications")
	err := p.Publish(7, Message{
		Type:      TypeOffer,
		OfferID:   "off-1",
		OrderID:   "ord-1",
		ExpiresAt: time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestNotifier_FallsBackToKafka(t *testing.T) {
	t.Parallel()

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageAndSucceed()

	n := NewNotifier(NewRegistry(logx.Nop()), NewProducer(mock, "courier-notifications"), logx.Nop())
	err := n.Notify(context.Background(), 7, Message{Type: TypeOffer, OfferID: "off-1"})
	require.NoError(t, err)
}

func TestNotifier_NoProducer(t *testing.T) {
	t.Parallel()

	n := NewNotifier(NewRegistry(logx.Nop()), nil, logx.Nop())
	err := n.Notify(context.Background(), 7, Message{Type: TypeOffer})
	require.ErrorIs(t, err, ErrNotConnected)
}
