package pipeline

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/solvedboard/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithOrganization sets the organization to crawl and the category of its
// peer table. An empty category disables the peer table.
func WithOrganization(name, category string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.orgName = name
		}
		p.category = category
	}
}

// WithWorkers bounds concurrent member fetches.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithClock injects the clock that stamps snapshots.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}
