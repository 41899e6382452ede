package llm

import "context"

// ChatOptions tunes a single chat call. Temperature stays near zero for
// reconciliation work; the interpreter depends on near-deterministic replies.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
}

// ChatClient is the AI provider contract the pipeline depends on. The reply is
// plain text that usually, but not always, contains one JSON array.
type ChatClient interface {
	Chat(ctx context.Context, systemPrompt, userPrompt string, opts ChatOptions) (string, error)
}
