package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	contractx "github.com/marcovalle/ventia/assistant/contract"
	sessionx "github.com/marcovalle/ventia/assistant/session"
	toolx "github.com/marcovalle/ventia/assistant/tool"
)

const testPrompt = "You are a sales assistant."

// scriptedCompleter replays canned completions and records every history
// snapshot it was called with.
type scriptedCompleter struct {
	responses []*contractx.Completion
	err       error
	calls     [][]contractx.Message
	specs     []contractx.ToolSpec
}

func (f *scriptedCompleter) Complete(ctx context.Context, history []contractx.Message, specs []contractx.ToolSpec) (*contractx.Completion, error) {
	cp := make([]contractx.Message, len(history))
	copy(cp, history)
	f.calls = append(f.calls, cp)
	f.specs = specs

	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &contractx.Completion{Content: "default"}, nil
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return next, nil
}

func reply(content string) *contractx.Completion {
	return &contractx.Completion{Content: content}
}

func toolCall(name, args string) *contractx.Completion {
	return &contractx.Completion{ToolCall: &contractx.ToolCall{ID: "call_1", Name: name, Arguments: args}}
}

func newTestOrchestrator(t *testing.T, completer contractx.Completer, registry *toolx.Registry) (*Orchestrator, *sessionx.Store) {
	t.Helper()
	if registry == nil {
		registry = toolx.NewRegistry()
	}
	sessions := sessionx.NewStore(testPrompt)
	orc, err := New(sessions, completer, registry, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return orc, sessions
}

func TestHandleTurnPlainReply(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{responses: []*contractx.Completion{reply("Hello!")}}
	orc, sessions := newTestOrchestrator(t, completer, nil)

	result, err := orc.HandleTurn(context.Background(), "s1", "hi")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if result.Reply != "Hello!" {
		t.Fatalf("Reply = %q, want Hello!", result.Reply)
	}

	sess, release := sessions.Acquire("s1")
	defer release()
	history := sess.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[2].Role != contractx.RoleAssistant || history[2].Content != "Hello!" {
		t.Fatalf("final message = %#v, want assistant reply", history[2])
	}
}

func TestHandleTurnToolCycle(t *testing.T) {
	t.Parallel()

	registry := toolx.NewRegistry()
	var gotArgs map[string]any
	registry.MustRegister(contractx.ToolSpec{Name: "search_products"}, func(ctx context.Context, args map[string]any) any {
		gotArgs = args
		return map[string]any{
			"products_found": []map[string]any{
				{"name": "Cola 500ml", "sku": "SKU1", "price": 4.5},
			},
		}
	})

	completer := &scriptedCompleter{responses: []*contractx.Completion{
		toolCall("search_products", `{"query":"cola"}`),
		reply("We have Cola 500ml for 4.50."),
	}}
	orc, sessions := newTestOrchestrator(t, completer, registry)

	result, err := orc.HandleTurn(context.Background(), "s1", "do you have any cola?")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !strings.Contains(result.Reply, "4.50") {
		t.Fatalf("Reply = %q, want mention of the price", result.Reply)
	}
	if gotArgs["query"] != "cola" {
		t.Fatalf("handler args = %#v, want query=cola", gotArgs)
	}
	if len(completer.calls) != 2 {
		t.Fatalf("model invocations = %d, want 2", len(completer.calls))
	}

	sess, release := sessions.Acquire("s1")
	defer release()
	history := sess.History()
	// system, user, assistant tool call, function result, assistant reply
	wantRoles := []contractx.Role{
		contractx.RoleSystem,
		contractx.RoleUser,
		contractx.RoleAssistant,
		contractx.RoleFunction,
		contractx.RoleAssistant,
	}
	if len(history) != len(wantRoles) {
		t.Fatalf("history length = %d, want %d", len(history), len(wantRoles))
	}
	for i, role := range wantRoles {
		if history[i].Role != role {
			t.Fatalf("history[%d].Role = %s, want %s", i, history[i].Role, role)
		}
	}
	if history[2].ToolCall == nil || history[2].ToolCall.Name != "search_products" {
		t.Fatalf("history[2] = %#v, want the tool call message", history[2])
	}
	if history[3].Tool != "search_products" {
		t.Fatalf("function message tool = %q", history[3].Tool)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(history[3].Content), &payload); err != nil {
		t.Fatalf("function payload is not JSON: %v", err)
	}
	if _, ok := payload["products_found"]; !ok {
		t.Fatalf("function payload = %v, want products_found", payload)
	}
}

func TestHandleTurnMalformedArgsBecomeEmpty(t *testing.T) {
	t.Parallel()

	registry := toolx.NewRegistry()
	var gotArgs map[string]any
	registry.MustRegister(contractx.ToolSpec{Name: "search_products"}, func(ctx context.Context, args map[string]any) any {
		gotArgs = args
		return map[string]any{"message": "ok"}
	})

	completer := &scriptedCompleter{responses: []*contractx.Completion{
		toolCall("search_products", `{not json`),
		reply("done"),
	}}
	orc, _ := newTestOrchestrator(t, completer, registry)

	if _, err := orc.HandleTurn(context.Background(), "s1", "search"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if gotArgs == nil {
		t.Fatal("handler was not invoked")
	}
	if len(gotArgs) != 0 {
		t.Fatalf("handler args = %#v, want empty set", gotArgs)
	}
}

func TestHandleTurnUnknownToolFedBackToModel(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{responses: []*contractx.Completion{
		toolCall("no_such_tool", `{}`),
		reply("sorry, let me try again"),
	}}
	orc, sessions := newTestOrchestrator(t, completer, nil)

	result, err := orc.HandleTurn(context.Background(), "s1", "hello")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if result.Reply == "" {
		t.Fatal("expected the model's follow-up reply")
	}

	sess, release := sessions.Acquire("s1")
	defer release()
	history := sess.History()
	var payload map[string]any
	if err := json.Unmarshal([]byte(history[3].Content), &payload); err != nil {
		t.Fatalf("function payload is not JSON: %v", err)
	}
	if msg, _ := payload["error"].(string); msg == "" {
		t.Fatalf("payload = %v, want error-shaped result", payload)
	}
}

func TestHandleTurnDepthExceeded(t *testing.T) {
	t.Parallel()

	registry := toolx.NewRegistry()
	dispatches := 0
	registry.MustRegister(contractx.ToolSpec{Name: "search_products"}, func(ctx context.Context, args map[string]any) any {
		dispatches++
		return map[string]any{"message": "again"}
	})

	completer := &scriptedCompleter{responses: []*contractx.Completion{
		toolCall("search_products", `{"query":"a"}`),
		toolCall("search_products", `{"query":"b"}`),
		toolCall("search_products", `{"query":"c"}`),
		toolCall("search_products", `{"query":"d"}`),
	}}
	orc, _ := newTestOrchestrator(t, completer, registry)

	_, err := orc.HandleTurn(context.Background(), "s1", "loop forever")
	if !errors.Is(err, contractx.ErrDepthExceeded) {
		t.Fatalf("HandleTurn() error = %v, want ErrDepthExceeded", err)
	}
	if len(completer.calls) != DefaultMaxDepth {
		t.Fatalf("model invocations = %d, want %d", len(completer.calls), DefaultMaxDepth)
	}
	// The final tool request is not dispatched: the bound caps side
	// effects as well as model calls.
	if dispatches != DefaultMaxDepth-1 {
		t.Fatalf("dispatches = %d, want %d", dispatches, DefaultMaxDepth-1)
	}
}

func TestHandleTurnConfiguredDepth(t *testing.T) {
	t.Parallel()

	sessions := sessionx.NewStore(testPrompt)
	registry := toolx.NewRegistry()
	registry.MustRegister(contractx.ToolSpec{Name: "t"}, func(ctx context.Context, args map[string]any) any {
		return map[string]any{}
	})
	completer := &scriptedCompleter{responses: []*contractx.Completion{
		toolCall("t", `{}`),
		toolCall("t", `{}`),
		toolCall("t", `{}`),
		toolCall("t", `{}`),
		toolCall("t", `{}`),
	}}
	orc, err := New(sessions, completer, registry, Config{MaxDepth: 5})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = orc.HandleTurn(context.Background(), "s1", "go")
	if !errors.Is(err, contractx.ErrDepthExceeded) {
		t.Fatalf("HandleTurn() error = %v, want ErrDepthExceeded", err)
	}
	if len(completer.calls) != 5 {
		t.Fatalf("model invocations = %d, want 5", len(completer.calls))
	}
}

func TestHandleTurnModelFailureIsFatal(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{err: fmt.Errorf("%w: 401 unauthorized", contractx.ErrModelInvoke)}
	orc, sessions := newTestOrchestrator(t, completer, nil)

	_, err := orc.HandleTurn(context.Background(), "s1", "hi")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("HandleTurn() error = %v, want ErrModelInvoke", err)
	}
	if len(completer.calls) != 1 {
		t.Fatalf("model invocations = %d, want 1 (no retry)", len(completer.calls))
	}

	sess, release := sessions.Acquire("s1")
	defer release()
	// The user message stays appended; no assistant message follows.
	history := sess.History()
	if len(history) != 2 || history[1].Role != contractx.RoleUser {
		t.Fatalf("history = %#v", history)
	}
}

func TestHandleTurnWrapsForeignCompleterErrors(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{err: errors.New("connection reset")}
	orc, _ := newTestOrchestrator(t, completer, nil)

	_, err := orc.HandleTurn(context.Background(), "s1", "hi")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("HandleTurn() error = %v, want ErrModelInvoke", err)
	}
}

func TestHandleTurnEmptyContentIsExplicit(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{responses: []*contractx.Completion{reply("")}}
	orc, sessions := newTestOrchestrator(t, completer, nil)

	result, err := orc.HandleTurn(context.Background(), "s1", "hi")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !result.Empty {
		t.Fatal("Empty = false, want true")
	}

	sess, release := sessions.Acquire("s1")
	defer release()
	if sess.Len() != 2 {
		t.Fatalf("history length = %d, want 2 (no empty assistant message)", sess.Len())
	}
}

func TestHandleTurnExitDeletesSession(t *testing.T) {
	t.Parallel()

	completer := &scriptedCompleter{responses: []*contractx.Completion{reply("hello"), reply("fresh")}}
	orc, _ := newTestOrchestrator(t, completer, nil)

	if _, err := orc.HandleTurn(context.Background(), "s1", "hi"); err != nil {
		t.Fatalf("first turn error = %v", err)
	}

	for _, word := range []string{"exit", "SALIR"} {
		result, err := orc.HandleTurn(context.Background(), "s1", word)
		if err != nil {
			t.Fatalf("exit turn error = %v", err)
		}
		if !result.Ended {
			t.Fatalf("Ended = false for %q", word)
		}
	}
	// Exit never reaches the model.
	if len(completer.calls) != 1 {
		t.Fatalf("model invocations = %d, want 1", len(completer.calls))
	}

	// A new turn on the same id starts from the system message again.
	if _, err := orc.HandleTurn(context.Background(), "s1", "hello again"); err != nil {
		t.Fatalf("turn after exit error = %v", err)
	}
	last := completer.calls[len(completer.calls)-1]
	if len(last) != 2 {
		t.Fatalf("history after exit = %d messages, want 2", len(last))
	}
	if last[0].Role != contractx.RoleSystem {
		t.Fatal("history after exit must begin with the system message")
	}
}

func TestHandleTurnValidation(t *testing.T) {
	t.Parallel()

	orc, _ := newTestOrchestrator(t, &scriptedCompleter{}, nil)

	if _, err := orc.HandleTurn(context.Background(), "", "hi"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("empty session error = %v, want ErrValidation", err)
	}
	if _, err := orc.HandleTurn(context.Background(), "s1", "   "); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("empty message error = %v, want ErrValidation", err)
	}
}

func TestHandleTurnSendsToolSpecs(t *testing.T) {
	t.Parallel()

	registry := toolx.NewRegistry()
	registry.MustRegister(contractx.ToolSpec{Name: "search_products"}, func(ctx context.Context, args map[string]any) any { return nil })
	registry.MustRegister(contractx.ToolSpec{Name: "create_order"}, func(ctx context.Context, args map[string]any) any { return nil })

	completer := &scriptedCompleter{responses: []*contractx.Completion{reply("ok")}}
	orc, _ := newTestOrchestrator(t, completer, registry)

	if _, err := orc.HandleTurn(context.Background(), "s1", "hi"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if len(completer.specs) != 2 {
		t.Fatalf("specs = %d, want the complete catalog", len(completer.specs))
	}
}
