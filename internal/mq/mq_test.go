package mq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fintrack/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportRequestedRoundTrip(t *testing.T) {
	in := ExportRequested{ExportID: "e1", UserID: "u1", RequestedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}

	data, attrs, err := in.Encode()
	require.NoError(t, err)
	assert.Equal(t, KindExportRequested, attrs[AttrKind])
	assert.JSONEq(t, `{"exportId":"e1","userId":"u1","requestedAt":"2024-03-01T10:00:00Z"}`, string(data))

	out, err := DecodeExportRequested(Message{Data: data, Attributes: attrs})
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeExportRequestedRejectsBadPayloads(t *testing.T) {
	_, err := DecodeExportRequested(Message{Data: []byte(`{"exportId":"e1"}`)})
	assert.Error(t, err)

	_, err = DecodeExportRequested(Message{Data: []byte(`not json`)})
	assert.Error(t, err)

	_, err = DecodeExportRequested(Message{
		Data:       []byte(`{"exportId":"e1","userId":"u1"}`),
		Attributes: map[string]string{AttrKind: "something.else"},
	})
	assert.Error(t, err)
}

func TestPermanent(t *testing.T) {
	base := errors.New("boom")

	assert.Nil(t, Permanent(nil))
	assert.False(t, IsPermanent(base))

	wrapped := Permanent(base)
	assert.True(t, IsPermanent(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, "boom", wrapped.Error())
}

func TestMemoryBackendRedeliversTransientFailures(t *testing.T) {
	q := New(NewMemoryBackend())
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := q.Publish(ctx, "jobs", []byte("flaky"), nil)
	require.NoError(t, err)
	_, err = q.Publish(ctx, "jobs", []byte("poison"), nil)
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		attempts = map[string]int{}
	)
	done := make(chan struct{})
	go func() {
		_ = q.Subscribe(ctx, "jobs", func(ctx context.Context, msg Message) error {
			mu.Lock()
			defer mu.Unlock()
			body := string(msg.Data)
			attempts[body]++
			switch {
			case body == "flaky" && attempts[body] < 2:
				return errors.New("try again")
			case body == "poison":
				close(done)
				return Permanent(errors.New("bad payload"))
			}
			return nil
		})
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("messages were not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, attempts["flaky"])
	assert.Equal(t, 1, attempts["poison"])
}

func TestMemoryBackendClosed(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Close())
	require.NoError(t, backend.Close())

	_, err := backend.Publish(context.Background(), "jobs", nil, nil)
	assert.Error(t, err)
}

func TestNewFromConfigRejectsDisabledBackend(t *testing.T) {
	_, err := NewFromConfig(context.Background(), config.MQConfig{Backend: config.BackendNone})
	assert.Error(t, err)
}
