package pass

import "pkl/compiler-go/pkg/ast"

// Context is handed to every handler invocation. It is only valid for the
// duration of the call.
type Context struct {
	pass   *Pass
	window window
	stage  Stage
	parent ast.Node

	phase    int
	node     ast.Node
	replaced bool
	restart  bool
	brk      bool
}

func (c *Context) reset(phase int, n ast.Node) {
	c.phase = phase
	c.node = n
	c.replaced = false
	c.restart = false
	c.brk = false
}

// Payload returns the payload paired with the running phase.
func (c *Context) Payload() any {
	return c.window.payloads[c.phase]
}

// Phase returns the name of the running phase.
func (c *Context) Phase() string {
	return c.window.phases[c.phase].name
}

func (c *Context) Stage() Stage { return c.stage }

// Parent returns the node whose child slot holds the current node, or nil at
// the root of the traversal.
func (c *Context) Parent() ast.Node { return c.parent }

// Node returns the current node, which reflects any replacement made by the
// running handler.
func (c *Context) Node() ast.Node { return c.node }

// Replace substitutes n for the current node. Later phases process n as if it
// had been there from the start of the stage.
func (c *Context) Replace(n ast.Node) {
	c.node = n
	c.replaced = true
}

// Restart substitutes n for the current node and reprocesses it with the
// phases that follow the running one. From an exit handler, n is traversed
// completely with those phases; from an entry handler, their remaining entry
// handlers run on n before the traversal continues with its children.
func (c *Context) Restart(n ast.Node) {
	c.Replace(n)
	c.restart = true
}

// Break stops processing the current node: no further handlers run on it and,
// from an entry handler, its children and exit stage are skipped.
func (c *Context) Break() {
	c.brk = true
}

// Subpass traverses the subtree rooted at n with every phase of the pass,
// even when called while a restart is reprocessing a node with the later
// phases only, and returns the possibly replaced root.
func (c *Context) Subpass(n ast.Node) (ast.Node, error) {
	if n == nil {
		return nil, nil
	}
	return c.pass.visit(c.pass.full(), n, c.node)
}
