package app

import (
	"errors"
	"fmt"

	"github.com/bft-labs/tracejack/internal/domain"
	"github.com/bft-labs/tracejack/internal/metrics"
	"github.com/bft-labs/tracejack/internal/ports"
)

// resample downsamples the padded traces of a batch and trims them back to
// their window. Traces too short for the filter or without data after
// alignment are dropped; any other failure ends the run.
func (p *Pipeline) resample(traces []*domain.Trace, s *Summary) ([]*domain.Trace, error) {
	target := p.config.Plan.TargetDeltat
	if target <= 0 {
		return traces, nil
	}

	out := make([]*domain.Trace, 0, len(traces))
	for _, tr := range traces {
		ds, err := p.resampler.Downsample(tr, target)
		if err == nil {
			ds, err = ds.Chop(tr.Wmin, tr.Wmax)
		}
		switch {
		case err == nil:
			out = append(out, ds)
		case errors.Is(err, domain.ErrTooShort):
			s.DroppedTooShort++
			p.metrics.Dropped(metrics.ReasonTooShort)
			p.logger.Debug("dropping trace, too short to downsample",
				ports.Stringer("codes", tr.Codes), ports.Int("samples", tr.Len()))
		case errors.Is(err, domain.ErrNoData):
			s.DroppedNoData++
			p.metrics.Dropped(metrics.ReasonNoData)
			p.logger.Debug("dropping trace, no data after downsampling",
				ports.Stringer("codes", tr.Codes), ports.Time("wmin", tr.Wmin))
		default:
			return nil, fmt.Errorf("resample %s: %w", tr.Codes, err)
		}
	}
	return out, nil
}
