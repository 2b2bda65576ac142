package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	feed := NewFeed()
	defer feed.Close()

	a, cancelA := feed.Subscribe()
	defer cancelA()
	b, cancelB := feed.Subscribe()
	defer cancelB()

	feed.Publish(Event{Type: TypeRunStarted, RunID: "r1"})

	for _, sub := range []<-chan Event{a, b} {
		select {
		case ev := <-sub:
			assert.Equal(t, TypeRunStarted, ev.Type)
			assert.Equal(t, "r1", ev.RunID)
			assert.False(t, ev.Timestamp.IsZero(), "publish must stamp the event")
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	feed := NewFeed()
	defer feed.Close()

	sub, cancel := feed.Subscribe()
	cancel()

	_, open := <-sub
	assert.False(t, open, "channel must be closed after cancel")

	// Publishing after cancel must not panic or block.
	feed.Publish(Event{Type: TypeLog})

	// Double cancel is fine.
	cancel()
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	feed := NewFeed()
	defer feed.Close()

	sub, cancelSlow := feed.Subscribe()
	defer cancelSlow()
	_ = sub // never read

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			feed.Publish(Event{Type: TypeLog})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestCloseShutsDownSubscribers(t *testing.T) {
	feed := NewFeed()
	sub, cancel := feed.Subscribe()
	defer cancel()

	feed.Close()

	_, open := <-sub
	assert.False(t, open)

	// Operations after close are no-ops.
	feed.Publish(Event{Type: TypeLog})
	feed.Close()

	late, lateCancel := feed.Subscribe()
	defer lateCancel()
	_, open = <-late
	require.False(t, open, "subscribing to a closed feed yields a closed channel")
}
