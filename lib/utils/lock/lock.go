package lock

import (
	"context"
	"sync"
	"time"
)

// Keyed блокировка по ключу в пределах одного процесса
type Keyed struct {
	lockMap sync.Map
}

func NewKeyed() *Keyed {
	return &Keyed{}
}

// WithDelay ждет освобождения ключа не дольше wait и выполняет safeCode под блокировкой.
// success=false означает, что блокировку получить не удалось и safeCode не вызывался.
func (k *Keyed) WithDelay(ctx context.Context, key string, wait time.Duration, safeCode func() error) (success bool, err error) {
	isTimeout := time.After(wait)
	for {
		if _, loaded := k.lockMap.LoadOrStore(key, true); !loaded {
			break
		}
		select {
		case <-isTimeout:
			return false, nil
		case <-ctx.Done():
			return false, nil
		case <-time.After(50 * time.Millisecond):
		}
	}
	defer k.lockMap.Delete(key)
	return true, safeCode()
}

func (k *Keyed) IsLocked(key string) bool {
	_, ok := k.lockMap.Load(key)
	return ok
}
