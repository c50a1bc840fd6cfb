// Package pass implements the tree-rewriting engine the compiler phases are
// built on. A Pass runs an ordered list of phases over the AST in a single
// depth-first traversal; at every node each phase contributes the handlers
// registered for that node, before (entry stage) and after (exit stage) the
// node's children are visited.
//
// Handlers steer the traversal through their Context: Replace and Restart
// swap the current node, Break stops processing it, Subpass runs a complete
// nested traversal over any subtree, and returning ErrExit or ErrFailed
// unwinds the whole pass.
package pass

import (
	"errors"
	"fmt"

	"pkl/compiler-go/pkg/ast"
	"pkl/compiler-go/pkg/diag"
)

var (
	// ErrExit stops the pass early without signalling an error.
	ErrExit = errors.New("pass: early exit")
	// ErrFailed stops the pass after a compile error has been reported.
	ErrFailed = errors.New("pass: compilation failed")
)

// Pass is an ordered list of phases, each with its payload, executed together.
type Pass struct {
	phases   []*Phase
	payloads []any

	restarts int
}

// New pairs phases with their payloads.
func New(phases []*Phase, payloads []any) (*Pass, error) {
	if len(phases) != len(payloads) {
		return nil, fmt.Errorf("pass: %d phases but %d payloads", len(phases), len(payloads))
	}
	for i, ph := range phases {
		if ph == nil {
			return nil, fmt.Errorf("pass: phase %d is nil", i)
		}
	}
	return &Pass{phases: phases, payloads: payloads}, nil
}

// Run executes phases over root and returns the possibly replaced root.
func Run(root ast.Node, phases []*Phase, payloads []any) (ast.Node, error) {
	p, err := New(phases, payloads)
	if err != nil {
		return root, err
	}
	return p.Run(root)
}

// Run traverses root once. On error the tree may be partially rewritten and
// must be discarded.
func (p *Pass) Run(root ast.Node) (ast.Node, error) {
	if root == nil {
		return nil, nil
	}
	return p.visit(p.full(), root, nil)
}

func (p *Pass) full() window {
	return window{phases: p.phases, payloads: p.payloads}
}

// Restarts returns how many times handlers restarted a node during all the
// runs of p.
func (p *Pass) Restarts() int {
	return p.restarts
}

// window is the slice of the phase list active in a traversal. Restarts
// narrow it to the phases following the one that restarted.
type window struct {
	phases   []*Phase
	payloads []any
}

func (w window) tail(from int) window {
	return window{phases: w.phases[from:], payloads: w.payloads[from:]}
}

// visit processes n and its subtree. An exit-stage restart is handled by
// looping over the replacement with the narrowed window rather than by
// re-entering the dispatcher recursively.
func (p *Pass) visit(w window, n, parent ast.Node) (ast.Node, error) {
	for {
		res, next, err := p.visitOnce(w, n, parent)
		if err != nil {
			return nil, err
		}
		if next == nil || len(next.phases) == 0 {
			return res, nil
		}
		w, n = *next, res
	}
}

func (p *Pass) visitOnce(w window, n, parent ast.Node) (ast.Node, *window, error) {
	from := 0
	for {
		res, restartAt, brk, err := p.dispatch(w, Entry, n, parent, from)
		if err != nil {
			return nil, nil, err
		}
		n = res
		if brk {
			return n, nil, nil
		}
		if restartAt < 0 {
			break
		}
		from = restartAt + 1
	}

	if err := p.walkChildren(w, n); err != nil {
		return nil, nil, err
	}

	res, restartAt, _, err := p.dispatch(w, Exit, n, parent, 0)
	if err != nil {
		return nil, nil, err
	}
	if restartAt >= 0 {
		next := w.tail(restartAt + 1)
		return res, &next, nil
	}
	return res, nil, nil
}

// dispatch runs the handlers of stage for n, phase by phase starting at from.
// It returns the resulting node, the window index of a phase that restarted
// (or -1), and whether a handler broke out of the node.
func (p *Pass) dispatch(w window, stage Stage, n, parent ast.Node, from int) (ast.Node, int, bool, error) {
	ctx := &Context{pass: p, window: w, stage: stage, parent: parent}
	for i := from; i < len(w.phases); i++ {
		for _, h := range w.phases[i].handlers(stage, n) {
			ctx.reset(i, n)
			if err := h(ctx, n); err != nil {
				return nil, -1, false, err
			}
			if ctx.node == nil {
				return nil, -1, false, diag.ICE(n, "phase %s replaced node with nil", w.phases[i].name)
			}
			n = ctx.node
			if ctx.brk {
				return n, -1, true, nil
			}
			if ctx.restart {
				p.restarts++
				return n, i, false, nil
			}
			if ctx.replaced {
				// The remaining handlers of this phase were selected for
				// the old node.
				break
			}
		}
	}
	return n, -1, false, nil
}

// visitSlot visits the child stored in slot and stores the replacement back.
// The replacement must have the static type of the slot.
func visitSlot[T ast.Node](p *Pass, w window, parent ast.Node, slot *T) error {
	var zero T
	if any(*slot) == any(zero) {
		return nil
	}
	res, err := p.visit(w, *slot, parent)
	if err != nil {
		return err
	}
	v, ok := res.(T)
	if !ok {
		return diag.ICE(res, "cannot store %s in a %s child slot of %s", res.NodeType(), (*slot).NodeType(), parent.NodeType())
	}
	*slot = v
	return nil
}

func visitList[T ast.Node](p *Pass, w window, parent ast.Node, list []T) error {
	for i := range list {
		if err := visitSlot(p, w, parent, &list[i]); err != nil {
			return err
		}
	}
	return nil
}
