package tool

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	contractx "github.com/marcovalle/ventia/assistant/contract"
)

const (
	ToolSearchProducts = "search_products"

	defaultSearchTopK = 5
)

// SearchResult is the search_products payload. Exactly one of Products or
// Message is present: downstream prompting relies on the presence or
// absence of the products_found key.
type SearchResult struct {
	Products []contractx.Product `json:"products_found,omitempty"`
	Message  string              `json:"message,omitempty"`
}

// Search adapts the embedding and similarity-search collaborators into the
// search_products capability. Partial failures never propagate: they become
// a message-only result.
type Search struct {
	embedder contractx.Embedder
	index    contractx.ProductIndex
	topK     int
}

func NewSearch(embedder contractx.Embedder, index contractx.ProductIndex) *Search {
	return &Search{
		embedder: embedder,
		index:    index,
		topK:     defaultSearchTopK,
	}
}

// Spec declares the search_products contract exposed to the model.
func (s *Search) Spec() contractx.ToolSpec {
	return contractx.ToolSpec{
		Name:        ToolSearchProducts,
		Description: "Searches the product catalog for a query and returns a list of matching products.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Text describing what the user is looking for, e.g. 'cola'.",
				},
			},
			"required":             []string{"query"},
			"additionalProperties": false,
		},
	}
}

// Handle implements the capability. A missing or non-string query is
// treated as an empty query.
func (s *Search) Handle(ctx context.Context, args map[string]any) any {
	query, _ := args["query"].(string)

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("embedding failed")
		return SearchResult{Message: "Could not generate an embedding for the search."}
	}

	matches, err := s.index.Query(ctx, vector, s.topK)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("product index query failed")
		return SearchResult{Message: "Product search is temporarily unavailable."}
	}

	products := make([]contractx.Product, 0, len(matches))
	for _, m := range matches {
		products = append(products, productFromMetadata(m.Metadata))
	}

	if len(products) == 0 {
		return SearchResult{Message: "No products matched the search."}
	}
	return SearchResult{Products: products}
}

// productFromMetadata maps one match to a product. Price precedence: the
// price_base metadata field wins; if absent or zero, the nested attributes
// JSON blob is tried; any parse failure falls back to zero.
func productFromMetadata(meta map[string]any) contractx.Product {
	name, ok := meta["name"].(string)
	if !ok || name == "" {
		name = "Unnamed product"
	}
	sku, ok := meta["sku"].(string)
	if !ok || sku == "" {
		sku = "SKU-unavailable"
	}

	price := asFloat(meta["price_base"])
	if price == 0 {
		if raw, ok := meta["attributes"].(string); ok {
			var attrs map[string]any
			if err := json.Unmarshal([]byte(raw), &attrs); err == nil {
				price = asFloat(attrs["price_base"])
			}
		}
	}

	return contractx.Product{Name: name, SKU: sku, Price: price}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}
