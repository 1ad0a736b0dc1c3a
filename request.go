package prdgen

// Request carries model selection and generation parameters for one backend
// call. The gateway uses its own defaults when fields are zero/nil.
type Request struct {
	Model       string // model name, backend-specific; empty = gateway default
	System      string
	Messages    []Message
	MaxTokens   int      // 0 = backend default
	Temperature *float64 // nil = backend default
}
