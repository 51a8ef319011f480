package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/carcare-engine/internal/domain"
	"github.com/boddenberg/carcare-engine/internal/infra/events"
	"github.com/boddenberg/carcare-engine/internal/port"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ port.EventPublisher = (*events.Publisher)(nil)
	_ port.EventPublisher = events.Noop{}
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	require.NoError(t, err)
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := events.Connect(srv.ClientURL(), "carcare-test", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

func TestPublisher_TaskOverdue(t *testing.T) {
	nc := startTestNATS(t)

	got := make(chan domain.TaskOverdueEvent, 1)
	sub, err := events.Subscribe(nc, domain.SubjectTaskOverdue, func(_ context.Context, e domain.TaskOverdueEvent) {
		got <- e
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	pub := events.NewPublisher(nc, zap.NewNop())
	err = pub.Publish(context.Background(), domain.SubjectTaskOverdue, domain.TaskOverdueEvent{
		VehicleID:     "v1",
		ServiceTypeID: "oil-change",
		Priority:      domain.PriorityHigh,
		Progress:      100,
	})
	require.NoError(t, err)

	select {
	case e := <-got:
		assert.Equal(t, "oil-change", e.ServiceTypeID)
		assert.Equal(t, domain.PriorityHigh, e.Priority)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublisher_DropsMalformed(t *testing.T) {
	nc := startTestNATS(t)

	called := make(chan struct{}, 1)
	sub, err := events.Subscribe(nc, domain.SubjectQuoteEvaluated, func(context.Context, domain.QuoteEvaluatedEvent) {
		called <- struct{}{}
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, nc.Publish(domain.SubjectQuoteEvaluated, []byte("{bad")))
	require.NoError(t, nc.Flush())

	select {
	case <-called:
		t.Fatal("handler should not be called for malformed data")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublisher_MarshalError(t *testing.T) {
	nc := startTestNATS(t)
	pub := events.NewPublisher(nc, zap.NewNop())

	err := pub.Publish(context.Background(), "test.err", make(chan int))
	assert.Error(t, err)
}
