package helpers

import (
	"context"
	"time"
)

func IsContextDone(ctx context.Context) bool {
	if ctx == nil {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
	}
	return false
}

func Ptr[T any](v T) *T {
	return &v
}

// Clock источник текущего времени, в тестах подменяется
type Clock func() time.Time

func UTCNow() time.Time {
	return time.Now().UTC()
}
