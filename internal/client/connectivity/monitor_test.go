package connectivity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Psheikomaniac/cashcow-go/internal/logging"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (l nopLogger) With(args ...any) logging.Logger                  { return l }

type scriptedPinger struct {
	errs []error
	i    int
}

func (p *scriptedPinger) Ping(context.Context) error {
	if p.i >= len(p.errs) {
		return nil
	}
	err := p.errs[p.i]
	p.i++
	return err
}

func TestCheck_FiresOnOfflineToOnlineTransition(t *testing.T) {
	down := errors.New("connection refused")
	pinger := &scriptedPinger{errs: []error{down, down, nil, nil, down, nil}}

	var transitions int
	m := NewMonitor(pinger, nopLogger{}, time.Minute, func() { transitions++ })
	ctx := context.Background()

	assert.False(t, m.Check(ctx))
	assert.False(t, m.Check(ctx))
	assert.Zero(t, transitions)
	assert.False(t, m.Online())

	assert.True(t, m.Check(ctx))
	assert.Equal(t, 1, transitions)
	assert.True(t, m.Online())

	// Staying online does not fire again.
	assert.True(t, m.Check(ctx))
	assert.Equal(t, 1, transitions)

	// A drop and recovery fires once more.
	assert.False(t, m.Check(ctx))
	assert.True(t, m.Check(ctx))
	assert.Equal(t, 2, transitions)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	m := NewMonitor(&scriptedPinger{}, nopLogger{}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, m.Online, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
