package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	err     error
	stopped atomic.Bool
}

func (s *fakeServer) Start(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	s.stopped.Store(true)
	return nil
}

func TestManagerStopsOnCancel(t *testing.T) {
	a, b := &fakeServer{}, &fakeServer{}
	m := NewManager(a, nil, b)
	require.Len(t, m.servers, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
	assert.True(t, a.stopped.Load())
	assert.True(t, b.stopped.Load())
}

func TestManagerFailureCancelsSiblings(t *testing.T) {
	boom := errors.New("bind: address in use")
	peer := &fakeServer{}

	err := NewManager(peer, &fakeServer{err: boom}).Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, peer.stopped.Load())
}
