package prdgen

import "context"

// Gateway is a strategy pattern interface for local model backends. It is
// the sole boundary to the language-model service and must be satisfiable
// by any backend offering prompt-in/text-out completion, optionally
// token-streamed.
//
// Complete blocks until the full reply or a failure. Stream issues one
// generation request and returns a TokenStream the caller pulls. Both issue
// exactly one logical backend request per call; retry of transient
// connection failures happens inside the gateway, bounded and with backoff.
type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
	Stream(ctx context.Context, req Request) (TokenStream, error)
}

// ModelLister is implemented by gateways that can enumerate the models the
// backend serves. Used for startup connectivity checks and model pickers.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}
