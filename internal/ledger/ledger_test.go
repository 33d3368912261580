package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runLedgerSuite checks behaviour every backend must share.
func runLedgerSuite(t *testing.T, newLedger func(t *testing.T) Ledger) {
	t.Run("get unknown", func(t *testing.T) {
		l := newLedger(t)
		_, err := l.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("begin then complete", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		rec, err := l.Begin(ctx, "tx-1")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, rec.Status)
		assert.NotEmpty(t, rec.Claim)

		require.NoError(t, l.Complete(ctx, "tx-1", "42"))

		got, err := l.Get(ctx, "tx-1")
		require.NoError(t, err)
		assert.True(t, got.IsCompleted())
		assert.Equal(t, "42", got.OrderID)
	})

	t.Run("second begin while pending", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		_, err := l.Begin(ctx, "tx-2")
		require.NoError(t, err)

		rec, err := l.Begin(ctx, "tx-2")
		assert.ErrorIs(t, err, ErrInProgress)
		require.NotNil(t, rec)
		assert.Equal(t, StatusPending, rec.Status)
	})

	t.Run("begin after complete", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		_, err := l.Begin(ctx, "tx-3")
		require.NoError(t, err)
		require.NoError(t, l.Complete(ctx, "tx-3", "7"))

		rec, err := l.Begin(ctx, "tx-3")
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
		require.NotNil(t, rec)
		assert.Equal(t, "7", rec.OrderID)
	})

	t.Run("abandon releases pending", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		rec, err := l.Begin(ctx, "tx-4")
		require.NoError(t, err)
		require.NoError(t, l.Abandon(ctx, "tx-4", rec.Claim))

		_, err = l.Get(ctx, "tx-4")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = l.Begin(ctx, "tx-4")
		assert.NoError(t, err)
	})

	t.Run("abandon keeps completed", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		require.NoError(t, l.Complete(ctx, "tx-5", "9"))
		require.NoError(t, l.Abandon(ctx, "tx-5", ""))

		rec, err := l.Get(ctx, "tx-5")
		require.NoError(t, err)
		assert.True(t, rec.IsCompleted())
	})

	t.Run("abandon with a foreign claim keeps pending", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		rec, err := l.Begin(ctx, "tx-6")
		require.NoError(t, err)
		require.NoError(t, l.Abandon(ctx, "tx-6", "not-the-owner"))

		_, err = l.Begin(ctx, "tx-6")
		assert.ErrorIs(t, err, ErrInProgress)

		require.NoError(t, l.Abandon(ctx, "tx-6", rec.Claim))
		_, err = l.Begin(ctx, "tx-6")
		assert.NoError(t, err)
	})

	t.Run("concurrent begin has one winner", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := l.Begin(ctx, "tx-race"); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})
}
