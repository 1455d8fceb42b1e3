package engine

import (
	"context"
	"fmt"
	"sync"
)

// QuotaBackend caps the total bytes held by an inner backend, the way browser
// storage refuses writes once its quota is used up.
type QuotaBackend struct {
	inner Backend
	limit int

	mu    sync.Mutex
	sizes map[string]int
}

// NewQuotaBackend wraps inner with a limit in bytes. A limit <= 0 disables the check.
func NewQuotaBackend(inner Backend, limit int) *QuotaBackend {
	return &QuotaBackend{inner: inner, limit: limit, sizes: make(map[string]int)}
}

func (q *QuotaBackend) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := q.inner.Read(ctx, key)
	if err == nil {
		q.mu.Lock()
		q.sizes[key] = len(data)
		q.mu.Unlock()
	}
	return data, err
}

func (q *QuotaBackend) Write(ctx context.Context, key string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.limit > 0 {
		used := len(data)
		for k, n := range q.sizes {
			if k != key {
				used += n
			}
		}
		if used > q.limit {
			return fmt.Errorf("%w: writing %q needs %d of %d bytes", ErrQuotaExceeded, key, used, q.limit)
		}
	}

	if err := q.inner.Write(ctx, key, data); err != nil {
		return err
	}
	q.sizes[key] = len(data)
	return nil
}

func (q *QuotaBackend) Delete(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.inner.Delete(ctx, key); err != nil {
		return err
	}
	delete(q.sizes, key)
	return nil
}
