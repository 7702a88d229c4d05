// Package session carries the authenticated cashier explicitly instead of
// reading it from ambient state.
package session

import (
	"context"
	"sync"
)

type Identity struct {
	CashierID string `json:"cashier_id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

// Provider resolves the identity at call time. ok is false when no cashier is
// signed in on the terminal.
type Provider interface {
	Current() (Identity, bool)
}

// Context is the terminal's mutable auth state. The zero value is signed out.
type Context struct {
	mu       sync.RWMutex
	identity *Identity
}

func NewContext(id *Identity) *Context {
	c := &Context{}
	if id != nil {
		c.SignIn(*id)
	}
	return c
}

func (c *Context) Current() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.identity == nil || c.identity.CashierID == "" {
		return Identity{}, false
	}
	return *c.identity, true
}

func (c *Context) SignIn(id Identity) {
	c.mu.Lock()
	c.identity = &id
	c.mu.Unlock()
}

func (c *Context) SignOut() {
	c.mu.Lock()
	c.identity = nil
	c.mu.Unlock()
}

// ActorID returns the cashier id or nil when signed out.
func ActorID(p Provider) *string {
	if p == nil {
		return nil
	}
	id, ok := p.Current()
	if !ok {
		return nil
	}
	return &id.CashierID
}

type ctxKey struct{}

// WithIdentity stores a request-scoped identity, used by the HTTP layer.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.CashierID != ""
}
