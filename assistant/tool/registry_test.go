package tool

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/marcovalle/ventia/assistant/contract"
)

func testSpec(name string) contractx.ToolSpec {
	return contractx.ToolSpec{
		Name:        name,
		Description: "test tool",
		Parameters:  map[string]any{"type": "object"},
	}
}

func TestRegistryDispatch(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.MustRegister(testSpec("echo"), func(ctx context.Context, args map[string]any) any {
		return map[string]any{"got": args["value"]}
	})

	out := registry.Dispatch(context.Background(), "echo", map[string]any{"value": "x"})
	payload, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload type: %T", out)
	}
	if payload["got"] != "x" {
		t.Fatalf("payload = %#v, want got=x", payload)
	}
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	out := registry.Dispatch(context.Background(), "missing_tool", nil)

	payload, ok := out.(ErrorPayload)
	if !ok {
		t.Fatalf("unexpected payload type: %T", out)
	}
	if payload.Error == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestRegistrySpecsOrder(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	noop := func(ctx context.Context, args map[string]any) any { return nil }
	registry.MustRegister(testSpec("first"), noop)
	registry.MustRegister(testSpec("second"), noop)

	specs := registry.Specs()
	if len(specs) != 2 {
		t.Fatalf("len(specs) = %d, want 2", len(specs))
	}
	if specs[0].Name != "first" || specs[1].Name != "second" {
		t.Fatalf("specs out of registration order: %q, %q", specs[0].Name, specs[1].Name)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	noop := func(ctx context.Context, args map[string]any) any { return nil }
	if err := registry.Register(testSpec("dup"), noop); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	err := registry.Register(testSpec("dup"), noop)
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("duplicate Register() error = %v, want ErrValidation", err)
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	err := registry.Register(contractx.ToolSpec{}, func(ctx context.Context, args map[string]any) any { return nil })
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Register() error = %v, want ErrValidation", err)
	}
}
