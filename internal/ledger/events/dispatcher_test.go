package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tipjar/internal/ledger/models"
	id "tipjar/pkg/domain"
)

type recordingSink struct {
	name string
	err  error

	mu     sync.Mutex
	events []*models.Event
	block  chan struct{}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, event *models.Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) seqs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uint64, len(s.events))
	for i, e := range s.events {
		out[i] = e.Seq
	}
	return out
}

func tip(seq uint64) *models.Event {
	e := models.NewTipEvent(id.Identity{0x0a}, id.NewAmount(seq), "", time.Now())
	e.Seq = seq
	return e
}

func TestDispatcher_Sync(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	failing := &recordingSink{name: "kafka", err: errors.New("broker down")}
	d := NewDispatcher([]Sink{ok, failing})

	err := d.Publish(context.Background(), tip(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka: broker down")
	assert.Equal(t, []uint64{1}, ok.seqs(), "healthy sinks still receive the event")
	assert.Equal(t, []uint64{1}, failing.seqs())

	assert.NoError(t, d.Run(context.Background()), "run is a no-op without a buffer")
	assert.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_AsyncPreservesOrderAndDrainsOnClose(t *testing.T) {
	sink := &recordingSink{name: "hub"}
	d := NewDispatcher([]Sink{sink}, WithBuffer(16))

	ctx := context.Background()
	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	for seq := uint64(1); seq <= 10; seq++ {
		require.NoError(t, d.Publish(ctx, tip(seq)))
	}
	require.NoError(t, d.Close(ctx))
	require.NoError(t, <-runErr)

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, sink.seqs())
	assert.ErrorIs(t, d.Publish(ctx, tip(11)), ErrClosed)
}

func TestDispatcher_FullBufferDrops(t *testing.T) {
	sink := &recordingSink{name: "slow", block: make(chan struct{})}
	d := NewDispatcher([]Sink{sink}, WithBuffer(1))
	ctx := context.Background()

	go func() { _ = d.Run(ctx) }()

	require.NoError(t, d.Publish(ctx, tip(1)))
	// wait until the worker picked up the first event and is blocked in the sink
	require.Eventually(t, func() bool { return len(d.inbox) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Publish(ctx, tip(2)))

	assert.ErrorIs(t, d.Publish(ctx, tip(3)), ErrBufferFull)
	assert.Equal(t, int64(1), d.Dropped())

	close(sink.block)
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, []uint64{1, 2}, sink.seqs())
}

func TestDispatcher_ContextCancelDrains(t *testing.T) {
	sink := &recordingSink{name: "hub"}
	d := NewDispatcher([]Sink{sink}, WithBuffer(8))
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, d.Publish(context.Background(), tip(seq)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
	assert.Len(t, sink.seqs(), 3)
}
