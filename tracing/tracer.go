// Package tracing collects what happens on the bus: per-tick waveforms for
// the signal lines and per-transaction records for the responder.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/wbsim/sim/hooking"
	"github.com/sarchlab/wbsim/wishbone"
)

// NamedHookable represent something both have a name and can be hooked.
type NamedHookable interface {
	Name() string
	hooking.Hookable
}

// A Tracer is told about every bus transaction.
type Tracer interface {
	StartTransaction(t *wishbone.Transaction)
	EndTransaction(t *wishbone.Transaction)
}

// CollectTrace lets the tracer collect transactions from a domain.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&traceHook{t: tracer})
}

type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	t, ok := ctx.Item.(*wishbone.Transaction)
	if !ok {
		return
	}

	switch ctx.Pos {
	case wishbone.HookPosTransactionStart:
		h.t.StartTransaction(t)
	case wishbone.HookPosTransactionEnd:
		h.t.EndTransaction(t)
	}
}
