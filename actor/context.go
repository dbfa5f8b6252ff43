package actor

// Context is the per-invocation execution context handed to a
// HandlerFunc. It exposes the actor and system handling the current call
// so a handler can originate its own outbound calls (via System) or
// inspect its own identity (via Self) while answering one. A fresh
// Context is created for each dispatched invocation and must not be
// retained past the handler's return.
type Context struct {
	system *System
	self   *Base
}

func newContext(sys *System, self *Base) *Context {
	return &Context{system: sys, self: self}
}

// Self returns the actor currently handling the invocation.
func (c *Context) Self() *Base { return c.self }

// System returns the actor system, for issuing outbound calls or
// resolving other local actors mid-handler.
func (c *Context) System() *System { return c.system }
