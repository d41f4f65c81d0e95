package contract

import "context"

// Completer submits a full conversation plus the tool catalog to the model
// and returns its decision for this invocation.
type Completer interface {
	Complete(ctx context.Context, history []Message, specs []ToolSpec) (*Completion, error)
}

// Embedder turns free text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ProductIndex returns ranked similarity matches for a query vector.
type ProductIndex interface {
	Query(ctx context.Context, vector []float64, topK int) ([]ProductMatch, error)
}

// OrderLog durably appends order records. Implementations never mutate or
// delete existing entries.
type OrderLog interface {
	Append(ctx context.Context, rec OrderRecord) error
}
