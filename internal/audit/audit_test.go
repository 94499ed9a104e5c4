package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStampsTimestamp(t *testing.T) {
	sink := NewMemorySink()
	p := NewPublisher(sink)

	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionIssued}))

	events := sink.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisherKeepsExplicitTimestamp(t *testing.T) {
	sink := NewMemorySink()
	p := NewPublisher(sink)

	stamp := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, p.Emit(context.Background(), Event{Action: ActionIssued, Timestamp: stamp}))

	assert.Equal(t, stamp, sink.Events()[0].Timestamp)
}

func TestWorkerForwardsToSink(t *testing.T) {
	terminal := NewMemorySink()
	channel := NewChannelSink(8)
	worker := NewWorker(terminal, channel.Inbox())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	p := NewPublisher(channel)
	require.NoError(t, p.Emit(ctx, Event{Action: ActionIssued, CertificateNumber: "LRMS-2026-000001"}))

	require.Eventually(t, func() bool {
		return len(terminal.Events()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	events := terminal.Events()
	assert.Equal(t, ActionIssued, events[0].Action)
	assert.Equal(t, "LRMS-2026-000001", events[0].CertificateNumber)
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	channel := NewChannelSink(1)

	require.NoError(t, channel.Append(context.Background(), Event{Action: ActionIssued}))
	assert.Error(t, channel.Append(context.Background(), Event{Action: ActionIssued}))
}
