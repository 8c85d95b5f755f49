package storage

import (
	"context"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryBackend is a non-durable Backend for tests and ephemeral runs.
// Failures can be injected with FailWith.
type MemoryBackend struct {
	data   *xsync.MapOf[string, []byte]
	fail   atomic.Pointer[error]
	closed atomic.Bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: xsync.NewMapOf[string, []byte]()}
}

// FailWith makes every subsequent operation return err. A nil err clears
// the injected failure.
func (b *MemoryBackend) FailWith(err error) {
	if err == nil {
		b.fail.Store(nil)
		return
	}
	b.fail.Store(&err)
}

func (b *MemoryBackend) check() error {
	if b.closed.Load() {
		return ErrClosed
	}
	if p := b.fail.Load(); p != nil {
		return *p
	}
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := b.check(); err != nil {
		return nil, false, err
	}
	v, ok := b.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	if err := b.check(); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	b.data.Store(key, v)
	return nil
}

func (b *MemoryBackend) Remove(_ context.Context, key string) error {
	if err := b.check(); err != nil {
		return err
	}
	b.data.Delete(key)
	return nil
}

func (b *MemoryBackend) Close() error {
	b.closed.Store(true)
	return nil
}
