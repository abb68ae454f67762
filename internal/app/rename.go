package app

import "github.com/bft-labs/tracejack/internal/domain"

// rename rewrites the codes of every trace in place.
func (p *Pipeline) rename(traces []*domain.Trace) {
	if p.config.Rename.Empty() {
		return
	}
	for _, tr := range traces {
		p.config.Rename.ApplyTrace(tr)
	}
}
