// Package mvm is the Michelson virtual machine: a pure interpreter that runs
// a batch of blockchain operations against a global state snapshot and
// returns the resulting snapshot together with the journal of updates that
// produced it.
package mvm

import (
	"github.com/rs/zerolog"
)

// DefaultMaxSteps is the step quota a batch receives unless overridden.
const DefaultMaxSteps uint64 = 100_000

// Context carries the batch-level execution parameters. It is a value: the
// interpreter never mutates the caller's copy.
type Context struct {
	// Now is the timestamp NOW pushes, in seconds since the epoch.
	Now int64
	// MaxSteps is the shared step quota for the whole batch.
	MaxSteps uint64
	// Origination is the next origination counter value; it feeds contract
	// address derivation and advances with every origination.
	Origination uint64
	// Logger receives structured execution events and PRINT output.
	Logger zerolog.Logger
}

// Option configures a Context.
type Option func(*Context)

// NewContext constructs a Context from the defaults and the given options.
func NewContext(opts ...Option) Context {
	ctx := Context{
		MaxSteps: DefaultMaxSteps,
		Logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&ctx)
	}
	return ctx
}

// WithNow sets the batch timestamp.
func WithNow(now int64) Option {
	return func(ctx *Context) { ctx.Now = now }
}

// WithMaxSteps sets the batch step quota.
func WithMaxSteps(maxSteps uint64) Option {
	return func(ctx *Context) { ctx.MaxSteps = maxSteps }
}

// WithOrigination sets the starting origination counter.
func WithOrigination(counter uint64) Option {
	return func(ctx *Context) { ctx.Origination = counter }
}

// WithLogger sets the execution logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(ctx *Context) { ctx.Logger = logger }
}
