package gateway

import (
	"context"
	"errors"

	contractx "github.com/marcovalle/ventia/assistant/contract"
	pineconex "github.com/marcovalle/ventia/pkg/pinecone"
)

// PineconeIndex adapts the Pinecone client to contract.ProductIndex.
type PineconeIndex struct {
	client *pineconex.Client
}

var _ contractx.ProductIndex = (*PineconeIndex)(nil)

func NewPineconeIndex(client *pineconex.Client) (*PineconeIndex, error) {
	if client == nil {
		return nil, errors.New("pinecone client is required")
	}
	return &PineconeIndex{client: client}, nil
}

func (p *PineconeIndex) Query(ctx context.Context, vector []float64, topK int) ([]contractx.ProductMatch, error) {
	matches, err := p.client.Query(ctx, vector, topK)
	if err != nil {
		return nil, err
	}

	out := make([]contractx.ProductMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, contractx.ProductMatch{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return out, nil
}
