package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/garyjia/reimbursement-bot/internal/domain/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcher_Dispatch_InOrder(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	defer d.Close()

	var order []string
	d.Subscribe(event.TypeMessageReceived, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(event.TypeMessageReceived, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})

	evt := event.NewEvent(event.TypeMessageReceived, "ou_abc", nil)
	require.NoError(t, d.Dispatch(context.Background(), evt))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcher_Dispatch_StopsOnError(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	defer d.Close()

	boom := errors.New("boom")
	reached := false
	d.Subscribe(event.TypeMessageReceived, "failing", func(ctx context.Context, evt *event.Event) error {
		return boom
	})
	d.Subscribe(event.TypeMessageReceived, "after", func(ctx context.Context, evt *event.Event) error {
		reached = true
		return nil
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeMessageReceived, "ou_abc", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, reached, "handlers after a failure should not run")
}

func TestDispatcher_Dispatch_RecoverPanic(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	defer d.Close()

	d.Subscribe(event.TypeMessageReceived, "panicking", func(ctx context.Context, evt *event.Event) error {
		panic("kaboom")
	})

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeMessageReceived, "ou_abc", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestDispatcher_Dispatch_NoHandlers(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	defer d.Close()

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeRequestCompleted, "ou_abc", nil))
	assert.NoError(t, err)
}

func TestDispatcher_DispatchAsync(t *testing.T) {
	d := NewDispatcher(zap.NewNop())

	var mu sync.Mutex
	calls := 0
	d.Subscribe(event.TypeRequestCompleted, "recorder", func(ctx context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	})

	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeRequestCompleted, "ou_abc", nil))
	d.DispatchAsync(context.Background(), event.NewEvent(event.TypeRequestCompleted, "ou_abc", nil))

	// Close waits for in-flight async handlers
	require.NoError(t, d.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestDispatcher_ClosedRejectsDispatch(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	require.NoError(t, d.Close())

	err := d.Dispatch(context.Background(), event.NewEvent(event.TypeMessageReceived, "ou_abc", nil))
	assert.Error(t, err)

	assert.Error(t, d.Close(), "double close should error")
}
