package veil

import (
	"context"
	"log/slog"
)

// Pipeline rewrites operations for soft-delete semantics and forwards them
// to an executor. Stages are stateless; the only shared state is the skip
// set, which is fixed at construction, so a Pipeline is safe for concurrent
// use by any number of requests.
type Pipeline struct {
	exec   Executor
	config Config
	skip   map[string]struct{}
	logger *slog.Logger
}

// New creates a Pipeline over the given executor.
func New(exec Executor, config Config) *Pipeline {
	config.validate()

	skip := make(map[string]struct{}, len(config.SkipEntities))
	for _, name := range config.SkipEntities {
		skip[name] = struct{}{}
	}

	return &Pipeline{
		exec:   exec,
		config: config,
		skip:   skip,
		logger: slog.Default(),
	}
}

// SetLogger replaces the pipeline's logger. A nil logger restores the
// default.
func (p *Pipeline) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	p.logger = logger
}

// Config returns the pipeline's effective configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Skipped reports whether an entity is exempt from all rewriting.
func (p *Pipeline) Skipped(entity string) bool {
	_, ok := p.skip[entity]
	return ok
}

// Rewrite runs the three rewrite stages over the operation in place, in the
// fixed order lookup, tombstone, inclusion. It performs no I/O and never
// fails: malformed argument shapes are rewritten best-effort.
func (p *Pipeline) Rewrite(op *Operation) {
	p.rewriteLookup(op)
	p.rewriteTombstone(op)
	p.rewriteInclude(op)
}

// Do rewrites the operation and hands it to the executor. The result is
// passed back untouched; rewriting is transparent on the response path.
func (p *Pipeline) Do(ctx context.Context, op *Operation) (*Result, error) {
	before := op.Action
	p.Rewrite(op)

	if op.Action != before {
		p.logger.Debug("operation rewritten",
			"entity", op.Entity,
			"from", before.String(),
			"to", op.Action.String(),
		)
	}

	return p.exec.Exec(ctx, op)
}

// Middleware returns the rewrite chain as a composable middleware, for
// callers that assemble their own handler chains around the executor.
func (p *Pipeline) Middleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, op *Operation) (*Result, error) {
			p.Rewrite(op)
			return next(ctx, op)
		}
	}
}
