// Package mock provides test doubles for prdgen interfaces using function
// fields.
package mock

import (
	"context"

	"github.com/prdlabs/prdgen"
)

// Interface compliance checks.
var (
	_ prdgen.Gateway     = (*Gateway)(nil)
	_ prdgen.ModelLister = (*Gateway)(nil)
)

// Gateway is a test double for prdgen.Gateway.
// Set the function fields for the methods you need; unset methods panic to
// catch missing setup.
type Gateway struct {
	CompleteFn   func(ctx context.Context, req prdgen.Request) (string, error)
	StreamFn     func(ctx context.Context, req prdgen.Request) (prdgen.TokenStream, error)
	ListModelsFn func(ctx context.Context) ([]string, error)
}

// Complete delegates to CompleteFn.
func (g *Gateway) Complete(ctx context.Context, req prdgen.Request) (string, error) {
	return g.CompleteFn(ctx, req)
}

// Stream delegates to StreamFn.
func (g *Gateway) Stream(ctx context.Context, req prdgen.Request) (prdgen.TokenStream, error) {
	return g.StreamFn(ctx, req)
}

// ListModels delegates to ListModelsFn.
func (g *Gateway) ListModels(ctx context.Context) ([]string, error) {
	return g.ListModelsFn(ctx)
}
