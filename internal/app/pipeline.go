// Package app drives a run: plan the windows, iterate the archive, and
// resample, rename and write every batch.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/interrupt"
	"github.com/bft-labs/tracejack/internal/metrics"
	"github.com/bft-labs/tracejack/internal/output"
	"github.com/bft-labs/tracejack/internal/plan"
	"github.com/bft-labs/tracejack/internal/ports"
	"github.com/bft-labs/tracejack/internal/rename"
	"github.com/bft-labs/tracejack/internal/window"
)

// Config contains the resolved settings of a run.
type Config struct {
	// Plan holds the time range, increment and snapping choices.
	// Plan.TargetDeltat is the downsampling target, 0 for none.
	Plan plan.Request

	Grouping domain.Grouping
	Rename   rename.Rules
	Template *output.Template

	// SingleTrace is set when the output format holds one trace per file.
	SingleTrace bool
}

// Summary reports what a run did.
type Summary struct {
	Plan    plan.Plan
	Windows int
	Batches int
	Files   int
	Traces  int
	Samples int

	DroppedTooShort int
	DroppedNoData   int
}

// Pipeline runs the window -> resample -> rename -> write chain.
type Pipeline struct {
	config    Config
	archive   ports.Archive
	resampler ports.Resampler
	writer    ports.TraceWriter
	logger    ports.Logger
	metrics   *metrics.Metrics
	lifecycle *lifecycle
}

// NewPipeline creates a pipeline. The resampler may be nil when no
// downsampling is configured; metrics and observer may be nil.
func NewPipeline(
	config Config,
	archive ports.Archive,
	resampler ports.Resampler,
	writer ports.TraceWriter,
	logger ports.Logger,
	m *metrics.Metrics,
	observer PhaseObserver,
) *Pipeline {
	return &Pipeline{
		config:    config,
		archive:   archive,
		resampler: resampler,
		writer:    writer,
		logger:    logger,
		metrics:   m,
		lifecycle: newLifecycle(logger, observer),
	}
}

// Phase returns the current phase of the run.
func (p *Pipeline) Phase() Phase {
	return p.lifecycle.Phase()
}

// Run processes the archive once. It returns domain.ErrInterrupted if the
// token stopped the run; batches finished before that stay written.
func (p *Pipeline) Run(ctx context.Context, token *interrupt.Token) (Summary, error) {
	var s Summary
	if err := p.lifecycle.transitionTo(PhasePlanning, "run started"); err != nil {
		return s, fmt.Errorf("pipeline already used: %w", err)
	}

	pl, err := p.prepare(ctx)
	if err != nil {
		p.fail(err)
		return s, err
	}
	s.Plan = pl
	_ = p.lifecycle.transitionTo(PhaseRunning, "plan resolved")

	it := window.NewIterator(p.archive, pl, p.config.Grouping, token)
	entered := 0
	for it.Next(ctx) {
		entered = p.countWindows(it, entered, &s)

		b := it.Batch()
		start := time.Now()
		if err := p.process(ctx, b, &s); err != nil {
			p.fail(err)
			return s, err
		}
		s.Batches++
		p.metrics.Batch(time.Since(start))
		p.logger.Debug("batch done",
			ports.Int("window", b.Window.Index),
			ports.Stringer("group", b.Key),
			ports.Int("traces", b.Size()),
			ports.Int("samples", b.Samples()),
			ports.Duration("duration", time.Since(start)),
		)
	}
	p.countWindows(it, entered, &s)

	if err := it.Err(); err != nil {
		err = fmt.Errorf("iterate archive: %w", err)
		p.fail(err)
		return s, err
	}
	if it.Stopped() {
		p.metrics.Interrupted()
		_ = p.lifecycle.transitionTo(PhaseInterrupted, "interrupt received")
		return s, domain.ErrInterrupted
	}
	_ = p.lifecycle.transitionTo(PhaseDone, "all windows processed")
	return s, nil
}

func (p *Pipeline) fail(err error) {
	_ = p.lifecycle.transitionTo(PhaseFailed, err.Error())
}

func (p *Pipeline) countWindows(it *window.Iterator, entered int, s *Summary) int {
	n := it.Entered()
	for ; entered < n; entered++ {
		p.metrics.Window()
	}
	s.Windows = n
	return n
}

// prepare resolves the plan and checks that the range holds data.
func (p *Pipeline) prepare(ctx context.Context) (plan.Plan, error) {
	stats, err := p.archive.Stats(ctx)
	if err != nil {
		return plan.Plan{}, fmt.Errorf("archive stats: %w", err)
	}
	if stats.Traces == 0 {
		return plan.Plan{}, fmt.Errorf("archive selection is empty: %w", domain.ErrEmptySelection)
	}
	if p.config.Plan.TargetDeltat > 0 && p.resampler == nil {
		return plan.Plan{}, fmt.Errorf("downsampling requested without resampler: %w", domain.ErrInvalidConfig)
	}

	req := p.config.Plan
	if req.TargetDeltat > 0 {
		req.Padding = p.resampler.Padding(req.TargetDeltat)
	}
	pl, err := plan.Resolve(req, stats)
	if err != nil {
		return plan.Plan{}, err
	}

	n, err := p.archive.Count(ctx, pl.Tmin, pl.Tmax)
	if err != nil {
		return plan.Plan{}, fmt.Errorf("count traces: %w", err)
	}
	if n == 0 {
		return plan.Plan{}, fmt.Errorf("no data in [%s, %s): %w",
			formatTime(pl.Tmin), formatTime(pl.Tmax), domain.ErrEmptySelection)
	}

	fields := []ports.Field{
		ports.Time("tmin", pl.Tmin),
		ports.Time("tmax", pl.Tmax),
		ports.Float64("tinc", pl.Increment),
		ports.Bool("tinc_guessed", pl.Guessed),
		ports.Int("windows", pl.Windows()),
		ports.Int("traces", n),
	}
	if pl.Padding > 0 {
		fields = append(fields, ports.Float64("padding", pl.Padding))
	}
	p.logger.Info("plan", fields...)
	if pl.Guessed {
		p.logger.Info("using guessed window length", ports.Float64("tinc", pl.Increment))
	}
	return pl, nil
}

// process transforms and writes one batch.
func (p *Pipeline) process(ctx context.Context, b domain.Batch, s *Summary) error {
	traces, err := p.resample(b.Traces, s)
	if err != nil {
		return err
	}
	if len(traces) == 0 {
		return nil
	}
	p.rename(traces)
	s.Traces += len(traces)
	return p.write(ctx, traces, s)
}
