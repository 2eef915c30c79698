// Package config holds the process-wide Engine configuration described in
// spec.md §4.7: a small set of knobs read on every graph evaluation (whether
// intermediate node outputs are exposed under $nodes, and how long a
// Function node's external call may run before it's treated as failed).
//
// Reads happen on every node evaluation across however many goroutines are
// walking graphs concurrently, so the active Config is an atomic snapshot
// swapped as a whole rather than a mutex-guarded struct (the same
// snapshot-swap shape ValidationConfig's caller uses, just lock-free).
package config

import (
	"sync/atomic"
	"time"
)

// Config controls behavior shared by every Decision Graph evaluation.
type Config struct {
	// NodesInContext exposes intermediate node outputs under the $nodes key
	// while a graph is evaluating (spec.md §4.7). Default false: most
	// graphs don't reference sibling outputs, and building $nodes costs a
	// clone per node.
	NodesInContext bool

	// FunctionTimeout bounds how long a Function node's external call may
	// run: the Function handler turns it into a deadline (unless the node
	// sets its own TimeoutMillis) and the runtime fails the call once the
	// deadline passes.
	FunctionTimeout time.Duration

	// MaxDepth bounds recursive Decision-node nesting (spec.md §4.7).
	MaxDepth int

	// MaxIterations bounds the walker's worklist loop as a circuit breaker
	// against cyclic or pathological graphs (spec.md §4.7 ITER_MAX).
	MaxIterations int
}

// Default returns the configuration new Engines start with.
func Default() *Config {
	return &Config{
		NodesInContext:  false,
		FunctionTimeout: 5 * time.Second,
		MaxDepth:        5,
		MaxIterations:   1000,
	}
}

// active holds the process-wide Config behind an atomic.Pointer so readers
// never observe a torn struct and never block on a writer.
var active atomic.Pointer[Config]

func init() {
	active.Store(Default())
}

// Current returns the process-wide Config currently in effect.
func Current() *Config { return active.Load() }

// Set installs cfg as the process-wide Config, atomically replacing
// whatever was active before. A nil cfg restores the default.
func Set(cfg *Config) {
	if cfg == nil {
		cfg = Default()
	}
	active.Store(cfg)
}

// With returns a copy of cfg with mutator applied, leaving cfg untouched —
// the pattern callers use to derive a one-off override without racing other
// readers of the process-wide Config.
func (c *Config) With(mutate func(*Config)) *Config {
	copy := *c
	mutate(&copy)
	return &copy
}
