package funcruntime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/ruleforge/engine/pkg/variable"
)

// Pool amortizes Runtime construction across repeated Function node
// invocations within one graph evaluation, grounded on the teacher's
// SessionPool (deterministic key → reused instance, safe for concurrent
// callers). Unlike a connection-backed session, a LocalProcess Runtime has
// no per-invocation state to reuse, so the pool's value here is purely
// avoiding redundant construction when many Function nodes share the same
// Runtime configuration.
type Pool struct {
	mu       sync.Mutex
	runtimes map[string]Runtime
	factory  func() Runtime
}

// NewPool constructs a Pool that lazily builds runtimes with factory (e.g.
// NewLocalProcess) the first time a given key is requested.
func NewPool(factory func() Runtime) *Pool {
	return &Pool{runtimes: map[string]Runtime{}, factory: factory}
}

// Get returns the Runtime registered under key, constructing one via the
// pool's factory on first use.
func (p *Pool) Get(key string) Runtime {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rt, ok := p.runtimes[key]; ok {
		return rt
	}
	rt := p.factory()
	p.runtimes[key] = rt
	return rt
}

// Invoke is a convenience that pools by a fingerprint of code itself, the
// common case where every Function node with identical code can safely
// share one Runtime instance.
func (p *Pool) Invoke(ctx context.Context, code string, input variable.Variable, deadline time.Time) (variable.Variable, error) {
	return p.Get(fingerprint(code)).Invoke(ctx, code, input, deadline)
}

func fingerprint(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
