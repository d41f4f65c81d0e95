package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/marcovalle/ventia/assistant/contract"
	sessionx "github.com/marcovalle/ventia/assistant/session"
	toolx "github.com/marcovalle/ventia/assistant/tool"
)

// DefaultMaxDepth is the number of model invocations allowed per user turn.
const DefaultMaxDepth = 3

// FarewellReply is returned when the reserved exit utterance closes a
// session.
const FarewellReply = "Goodbye! The conversation has been closed."

// Config tunes the orchestrator.
type Config struct {
	// MaxDepth bounds the model/tool cycle. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Result is the terminal outcome of one successful turn.
type Result struct {
	// Reply is the final assistant text appended to the history.
	Reply string
	// Ended reports that the reserved exit utterance deleted the session.
	Ended bool
	// Empty reports that the model produced no text. This is a terminal
	// reply outcome, not an error.
	Empty bool
}

// Orchestrator drives the bounded model/tool cycle for each user turn.
//
// Per turn: append the user message, then call the model with the full
// history and tool catalog; a plain reply terminates the turn, a tool call
// is dispatched and its result appended as a function message before the
// model is consulted again. The cycle is bounded: exhausting MaxDepth is an
// explicit ErrDepthExceeded failure, never a silent default reply.
type Orchestrator struct {
	sessions  *sessionx.Store
	completer contractx.Completer
	tools     *toolx.Registry
	maxDepth  int
}

func New(sessions *sessionx.Store, completer contractx.Completer, tools *toolx.Registry, cfg Config) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}

	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	return &Orchestrator{
		sessions:  sessions,
		completer: completer,
		tools:     tools,
		maxDepth:  maxDepth,
	}, nil
}

// HandleTurn processes one user utterance and returns the turn's terminal
// outcome. The session lock is held for the entire cycle.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, text string) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Result{}, fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, fmt.Errorf("%w: user message is empty", contractx.ErrValidation)
	}

	if isExitWord(text) {
		o.sessions.End(sessionID)
		log.Info().Str("session_id", sessionID).Msg("session ended by user")
		return Result{Reply: FarewellReply, Ended: true}, nil
	}

	sess, release := o.sessions.Acquire(sessionID)
	defer release()

	sess.Append(contractx.NewUserMessage(text))
	specs := o.tools.Specs()

	for depth := 1; depth <= o.maxDepth; depth++ {
		comp, err := o.completer.Complete(ctx, sess.History(), specs)
		if err != nil {
			if !errors.Is(err, contractx.ErrModelInvoke) {
				err = fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
			}
			return Result{}, err
		}
		if comp == nil {
			return Result{}, fmt.Errorf("%w: completer returned no response", contractx.ErrModelInvoke)
		}

		if comp.ToolCall == nil {
			content := strings.TrimSpace(comp.Content)
			if content == "" {
				log.Debug().Str("session_id", sessionID).Msg("model returned no text")
				return Result{Empty: true}, nil
			}
			sess.Append(contractx.NewAssistantMessage(content))
			return Result{Reply: content}, nil
		}

		// The model wants another tool on the final allowed invocation:
		// fail the turn without dispatching, so the bound also caps side
		// effects.
		if depth == o.maxDepth {
			break
		}

		call := *comp.ToolCall
		args := decodeArgs(call.Arguments)

		log.Debug().
			Str("session_id", sessionID).
			Str("tool", call.Name).
			Str("arguments", call.Arguments).
			Msg("dispatching tool call")

		sess.Append(contractx.NewToolCallMessage(call))
		payload := o.tools.Dispatch(ctx, call.Name, args)
		sess.Append(contractx.NewFunctionMessage(call, encodePayload(payload)))
	}

	return Result{}, fmt.Errorf("%w: turn exceeded %d model invocations", contractx.ErrDepthExceeded, o.maxDepth)
}

func isExitWord(text string) bool {
	switch strings.ToLower(text) {
	case "exit", "salir":
		return true
	}
	return false
}

// decodeArgs decodes the model's raw argument string. Decode failure is
// recovered locally by substituting an empty argument set.
func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		log.Warn().Err(err).Msg("tool arguments are not valid JSON, using empty args")
		return map[string]any{}
	}
	return args
}

func encodePayload(payload any) string {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Msg("tool payload not serializable")
		return `{"error":"tool result could not be serialized"}`
	}
	return string(b)
}
