package chatmodel

import (
	"context"
	"sync"

	"github.com/effective-security/x/values"
	"github.com/google/uuid"
)

// CallContext carries the identity of a single tool call
// for log correlation.
type CallContext interface {
	// CallID returns the unique ID of the call
	CallID() string
	// Tool returns the name of the called tool
	Tool() string
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type callContext struct {
	callID   string
	tool     string
	metadata sync.Map
}

func (c *callContext) CallID() string {
	return c.callID
}

func (c *callContext) Tool() string {
	return c.tool
}

func (c *callContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *callContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

// NewCallContext returns a new CallContext,
// if callID is empty, a new ID is generated.
func NewCallContext(callID, tool string) CallContext {
	return &callContext{
		callID: values.StringsCoalesce(callID, NewCallID()),
		tool:   tool,
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithCallContext returns a new context with CallContext value
func WithCallContext(ctx context.Context, callCtx CallContext) context.Context {
	return context.WithValue(ctx, keyContext, callCtx)
}

// GetCallContext retrieves the CallContext from the context
func GetCallContext(ctx context.Context) CallContext {
	if v, ok := ctx.Value(keyContext).(CallContext); ok {
		return v
	}
	return nil
}

// GetCallID retrieves the call ID from the provided context.
// If the context does not contain a CallContext, it returns an empty string.
func GetCallID(ctx context.Context) string {
	if v, ok := ctx.Value(keyContext).(CallContext); ok {
		return v.CallID()
	}
	return ""
}

// NewCallID generates a new random call ID.
func NewCallID() string {
	return uuid.NewString()
}
