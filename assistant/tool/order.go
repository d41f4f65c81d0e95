package tool

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/marcovalle/ventia/assistant/contract"
)

const ToolCreateOrder = "create_order"

// OrderResult is the create_order payload. Persisted distinguishes a
// durably recorded order from one only held in memory after a sink failure.
type OrderResult struct {
	Order     contractx.OrderRecord `json:"order"`
	Persisted bool                  `json:"persisted"`
	Warning   string                `json:"warning,omitempty"`
}

// OrderCreation wraps the order log into the create_order capability.
// From the model's point of view it always succeeds.
type OrderCreation struct {
	log   contractx.OrderLog
	newID func() string
}

func NewOrderCreation(orderLog contractx.OrderLog) *OrderCreation {
	return &OrderCreation{
		log:   orderLog,
		newID: shortID,
	}
}

// shortID is sufficiently unique for human-scale single-tenant volume.
func shortID() string {
	return uuid.NewString()[:8]
}

// Spec declares the create_order contract exposed to the model.
func (o *OrderCreation) Spec() contractx.ToolSpec {
	return contractx.ToolSpec{
		Name:        ToolCreateOrder,
		Description: "Creates an order from the client's details and the chosen products.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"client": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":          map[string]any{"type": "string"},
						"phone":         map[string]any{"type": "string"},
						"address":       map[string]any{"type": "string"},
						"delivery_mode": map[string]any{"type": "string"},
					},
					"required": []string{"name", "phone", "address", "delivery_mode"},
				},
				"items": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":  map[string]any{"type": "string"},
							"sku":   map[string]any{"type": "string"},
							"price": map[string]any{"type": "number"},
						},
						"required": []string{"name", "sku", "price"},
					},
				},
			},
			"required":             []string{"client", "items"},
			"additionalProperties": false,
		},
	}
}

// Handle creates the record, appends it to the log, and returns it wrapped
// with the persistence outcome. Missing or malformed fields decode to their
// zero values.
func (o *OrderCreation) Handle(ctx context.Context, args map[string]any) any {
	var client contractx.Client
	decodeInto(args["client"], &client)

	items := []contractx.Product{}
	decodeInto(args["items"], &items)

	rec := contractx.OrderRecord{
		Action: contractx.OrderAction,
		ID:     o.newID(),
		Client: client,
		Items:  items,
	}

	result := OrderResult{Order: rec, Persisted: true}
	if err := o.log.Append(ctx, rec); err != nil {
		log.Warn().Err(err).Str("order_id", rec.ID).Msg("order not persisted")
		result.Persisted = false
		result.Warning = "order recorded in memory but not persisted"
	} else {
		log.Info().Str("order_id", rec.ID).Int("items", len(rec.Items)).Msg("order appended")
	}
	return result
}

// decodeInto re-marshals a loosely-typed argument value into dst. Decode
// failures leave dst at its zero value.
func decodeInto(v any, dst any) {
	if v == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = json.Unmarshal(b, dst)
}
