package app

import (
	"errors"
	"sync"

	"github.com/bft-labs/tracejack/internal/ports"
)

// Phase is the lifecycle state of a pipeline run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlanning
	PhaseRunning
	PhaseDone
	PhaseInterrupted
	PhaseFailed
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhasePlanning:
		return "Planning"
	case PhaseRunning:
		return "Running"
	case PhaseDone:
		return "Done"
	case PhaseInterrupted:
		return "Interrupted"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no transition leaves the phase.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseInterrupted || p == PhaseFailed
}

var errInvalidTransition = errors.New("invalid phase transition")

// PhaseObserver is called when the run phase changes.
type PhaseObserver interface {
	OnPhaseChange(previous, current Phase, reason string)
}

// lifecycle tracks the phase of a run. A run moves
// Idle -> Planning -> Running -> Done|Interrupted and may fail from
// Planning or Running.
type lifecycle struct {
	mu       sync.RWMutex
	phase    Phase
	logger   ports.Logger
	observer PhaseObserver
}

func newLifecycle(logger ports.Logger, observer PhaseObserver) *lifecycle {
	return &lifecycle{phase: PhaseIdle, logger: logger, observer: observer}
}

func (l *lifecycle) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

func (l *lifecycle) transitionTo(next Phase, reason string) error {
	l.mu.Lock()
	prev := l.phase
	ok := false
	switch prev {
	case PhaseIdle:
		ok = next == PhasePlanning
	case PhasePlanning:
		ok = next == PhaseRunning || next == PhaseFailed
	case PhaseRunning:
		ok = next == PhaseDone || next == PhaseInterrupted || next == PhaseFailed
	}
	if !ok {
		l.mu.Unlock()
		return errInvalidTransition
	}
	l.phase = next
	l.mu.Unlock()

	// Emit event outside of lock
	if l.observer != nil {
		l.observer.OnPhaseChange(prev, next, reason)
	}
	l.logger.Debug("phase transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}
