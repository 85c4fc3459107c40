package mq

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

const memoryQueueSize = 64

var (
	errMemoryClosed = errors.New("memory backend closed")
	errMemoryFull   = errors.New("memory queue full")
)

// MemoryBackend delivers messages in-process. Failed messages are redelivered
// unless the handler marks the error permanent; after maxAttempts the message
// is dropped.
type MemoryBackend struct {
	mu          sync.Mutex
	queues      map[string]chan Message
	closed      bool
	lastID      int
	maxAttempts int
}

// NewMemoryBackend returns a backend with buffered per-channel queues.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		queues:      make(map[string]chan Message),
		maxAttempts: 3,
	}
}

func (b *MemoryBackend) queue(channel string) (chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errMemoryClosed
	}
	q, ok := b.queues[channel]
	if !ok {
		q = make(chan Message, memoryQueueSize)
		b.queues[channel] = q
	}
	return q, nil
}

func (b *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", errMemoryClosed
	}
	q, ok := b.queues[channel]
	if !ok {
		q = make(chan Message, memoryQueueSize)
		b.queues[channel] = q
	}

	b.lastID++
	id := strconv.Itoa(b.lastID)
	msg := Message{ID: id, Data: append([]byte(nil), data...), Attributes: attrs}
	select {
	case q <- msg:
		return id, nil
	default:
		return "", errMemoryFull
	}
}

func (b *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	q, err := b.queue(channel)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-q:
			if !ok {
				return errMemoryClosed
			}
			for attempt := 1; attempt <= b.maxAttempts; attempt++ {
				err := handler(ctx, msg)
				if err == nil || IsPermanent(err) {
					break
				}
			}
		}
	}
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, q := range b.queues {
		close(q)
	}
	return nil
}
