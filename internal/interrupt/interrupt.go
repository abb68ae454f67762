// Package interrupt turns a user interrupt into a cooperative stop request.
//
// The signal handler only sets a one-shot [Token]. The windowed iterator
// polls the token between batches, so a batch is either processed completely
// or not started.
package interrupt

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// Token is a one-shot cancellation flag. The zero value is ready to use.
type Token struct {
	stopped atomic.Bool
}

// Stop sets the token. Further calls have no effect.
func (t *Token) Stop() {
	t.stopped.Store(true)
}

// Stopped reports whether Stop was called.
func (t *Token) Stopped() bool {
	return t != nil && t.stopped.Load()
}

// Controller routes interrupt signals to a token for the duration of a run.
type Controller struct {
	token   *Token
	signals []os.Signal

	mu   sync.Mutex
	ch   chan os.Signal
	done chan struct{}
}

// NewController creates a controller that sets token when one of signals
// arrives. Without signals it listens for os.Interrupt.
func NewController(token *Token, signals ...os.Signal) *Controller {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt}
	}
	return &Controller{token: token, signals: signals}
}

// Install starts intercepting the signals. Calling Install twice is a no-op.
func (c *Controller) Install() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		return
	}

	c.ch = make(chan os.Signal, 1)
	c.done = make(chan struct{})
	signal.Notify(c.ch, c.signals...)

	go func(ch <-chan os.Signal, done <-chan struct{}) {
		select {
		case <-ch:
			c.token.Stop()
		case <-done:
		}
	}(c.ch, c.done)
}

// Restore stops intercepting and restores the default signal disposition.
func (c *Controller) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil {
		return
	}
	signal.Stop(c.ch)
	close(c.done)
	c.ch = nil
	c.done = nil
}
