package prdgen

// Usage tracks token consumption for one generation call.
//
// Invariant across all gateways:
//
//	PromptTokens = tokens the backend evaluated as input
//	OutputTokens = tokens the backend generated
//
// Gateways normalize their API-specific fields to this pair (Ollama reports
// prompt_eval_count/eval_count, OpenAI-compatible servers report
// prompt_tokens/completion_tokens). Zero values mean the backend did not
// report usage.
type Usage struct {
	PromptTokens int
	OutputTokens int
}

// Add returns the element-wise sum. Documents accumulate usage across their
// section calls with it.
func (u Usage) Add(v Usage) Usage {
	return Usage{
		PromptTokens: u.PromptTokens + v.PromptTokens,
		OutputTokens: u.OutputTokens + v.OutputTokens,
	}
}
