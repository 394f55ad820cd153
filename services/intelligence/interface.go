package intelligence

import "context"

// Prompt is one single-turn model call.
type Prompt struct {
	// Model overrides the client default when set.
	Model       string
	System      string
	Task        string
	JSON        bool
	Temperature float32
}

// Generator is implemented by GeminiClient.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}
