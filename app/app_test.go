package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakeServer struct {
	startErr error
	stopped  atomic.Bool
}

func (f *fakeServer) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	<-ctx.Done()
	return nil
}

func (f *fakeServer) Stop(context.Context) error {
	f.stopped.Store(true)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunContextStopsServersAndRunsCleanups(t *testing.T) {
	srv := &fakeServer{}
	var order []int
	a := New("test", quietLogger(),
		WithServer(srv),
		WithCleanup(func() { order = append(order, 1) }),
		WithCleanup(func() { order = append(order, 2) }),
		WithShutdownTimeout(time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := a.RunContext(ctx); err != nil {
		t.Fatalf("RunContext: %v", err)
	}
	if !srv.stopped.Load() {
		t.Error("server was not stopped")
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("cleanups should run in reverse order, got %v", order)
	}
}

func TestRunContextReportsStartFailure(t *testing.T) {
	boom := errors.New("address in use")
	a := New("test", quietLogger(), WithServer(&fakeServer{startErr: boom}))

	done := make(chan error, 1)
	go func() { done <- a.RunContext(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("err = %v, want start failure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunContext did not return after a server failed to start")
	}
}
