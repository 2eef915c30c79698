// Package funcruntime implements the Function node's external collaborator
// contract spec.md §6 names: invoke(code, input, deadline) → (Output, Error).
// The core never prescribes a language for code; this package supplies a
// concrete LocalProcess runtime that shells out to run it, grounded on the
// teacher's local-session execution shape (run a command, stream stdin,
// capture stdout, respect a context deadline).
package funcruntime

import (
	"context"
	"time"

	"github.com/ruleforge/engine/pkg/variable"
)

// Runtime is the Function node handler's abstract collaborator (spec.md
// §6). The core ships only LocalProcess; a JavaScript-runtime-backed
// implementation is explicitly out of scope (spec.md §1 Non-goal) but this
// is the seam a caller would implement one against.
type Runtime interface {
	Invoke(ctx context.Context, code string, input variable.Variable, deadline time.Time) (variable.Variable, error)
}
