package engineselect

import (
	"go.uber.org/zap"

	"github.com/epokhe/kvs/core"
)

// options collects the settings common to both engine variants so callers
// configure an Engine without caring which backend ends up serving it.
type options struct {
	fsync               bool
	compactionThreshold int64
	logger              *zap.SugaredLogger
}

type Option func(*options)

// WithFsync only affects the kvs variant; sled always flushes after every
// mutation regardless (spec §4.5 — that's its defining durability contract,
// not a tunable).
func WithFsync(enabled bool) Option {
	return func(o *options) { o.fsync = enabled }
}

// WithCompactionThreshold only affects the kvs variant; sled compacts on
// its own schedule and ignores it.
func WithCompactionThreshold(bytes int64) Option {
	return func(o *options) { o.compactionThreshold = bytes }
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = logger }
}

func collectOptions(opts []Option) *options {
	o := &options{compactionThreshold: core.CompactionThreshold}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) kvsOptions() []core.Option {
	kvsOpts := []core.Option{core.WithFsync(o.fsync), core.WithCompactionThreshold(o.compactionThreshold)}
	if o.logger != nil {
		kvsOpts = append(kvsOpts, core.WithLogger(o.logger))
	}
	return kvsOpts
}
