package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithDelay(t *testing.T) {
	locks := NewKeyed()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan bool)
	go func() {
		ok, _ := locks.WithDelay(ctx, "sweep", 0, func() error {
			close(started)
			<-release
			return nil
		})
		done <- ok
	}()
	<-started
	require.True(t, locks.IsLocked("sweep"))

	ok, err := locks.WithDelay(ctx, "sweep", 0, func() error {
		t.Fatal("выполнено под чужой блокировкой")
		return nil
	})
	require.NoError(t, err)
	require.False(t, ok)

	// другой ключ не блокируется
	ok, err = locks.WithDelay(ctx, "other", 0, func() error { return nil })
	require.NoError(t, err)
	require.True(t, ok)

	close(release)
	require.True(t, <-done)
	require.False(t, locks.IsLocked("sweep"))

	ok, err = locks.WithDelay(ctx, "sweep", time.Second, func() error { return nil })
	require.NoError(t, err)
	require.True(t, ok)
}
