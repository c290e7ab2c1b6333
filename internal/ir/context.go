package ir

import (
	"fmt"
	"slices"
	"sync"
)

// Context holds IR state shared by every operation of a program: the dialects
// that may be loaded and the threading policy. It is safe for concurrent use.
type Context struct {
	mu             sync.RWMutex
	registered     map[string]bool
	loaded         map[string]bool
	allowUnknown   bool
	multithreading bool
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithDialects registers the named dialects.
func WithDialects(names ...string) ContextOption {
	return func(c *Context) {
		for _, n := range names {
			c.registered[n] = true
		}
	}
}

// WithUnregisteredDialects lets LoadDialect accept any dialect name.
func WithUnregisteredDialects() ContextOption {
	return func(c *Context) {
		c.allowUnknown = true
	}
}

// WithMultithreading sets the initial threading policy.
func WithMultithreading(enabled bool) ContextOption {
	return func(c *Context) {
		c.multithreading = enabled
	}
}

// NewContext creates a context. Multithreading is disabled by default.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		registered: make(map[string]bool),
		loaded:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterDialect makes a dialect available for loading.
func (c *Context) RegisterDialect(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered[name] = true
}

// LoadDialect marks a registered dialect as loaded. Loading twice is a no-op.
func (c *Context) LoadDialect(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.registered[name] && !c.allowUnknown {
		return fmt.Errorf("dialect %q is not registered in the context", name)
	}
	c.loaded[name] = true
	return nil
}

// IsLoaded reports whether a dialect has been loaded.
func (c *Context) IsLoaded(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded[name]
}

// LoadedDialects returns the loaded dialect names in sorted order.
func (c *Context) LoadedDialects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.loaded))
	for n := range c.loaded {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// EnableMultithreading toggles whether pass managers may run sibling
// operations on worker goroutines.
func (c *Context) EnableMultithreading(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.multithreading = enabled
}

// IsMultithreadingEnabled reports the threading policy.
func (c *Context) IsMultithreadingEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.multithreading
}
