// Package gateway shapes requests and responses between the assistant and
// external services: OpenAI completions and embeddings, and the Pinecone
// product index.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/marcovalle/ventia/assistant/contract"
)

const defaultCallTimeout = 30 * time.Second

// OpenAI implements contract.Completer and contract.Embedder over the
// OpenAI SDK. Transport and auth failures are wrapped as ErrModelInvoke;
// they are fatal for the turn and never retried here.
type OpenAI struct {
	client     *openaisdk.Client
	model      string
	embedModel string
	timeout    time.Duration
}

var (
	_ contractx.Completer = (*OpenAI)(nil)
	_ contractx.Embedder  = (*OpenAI)(nil)
)

func NewOpenAI(client *openaisdk.Client, model, embedModel string, timeout time.Duration) (*OpenAI, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	if model == "" {
		return nil, errors.New("completion model is required")
	}
	if embedModel == "" {
		return nil, errors.New("embedding model is required")
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &OpenAI{
		client:     client,
		model:      model,
		embedModel: embedModel,
		timeout:    timeout,
	}, nil
}

// Complete submits the history plus tool catalog and returns the model's
// decision. Exactly one of content or tool call is surfaced; when the model
// emits both, the tool call wins.
func (g *OpenAI) Complete(ctx context.Context, history []contractx.Message, specs []contractx.ToolSpec) (*contractx.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(g.model),
		Messages: toMessageParams(history),
	}
	if tools := toToolParams(specs); len(tools) > 0 {
		params.Tools = tools
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: chat completion returned no choices", contractx.ErrModelInvoke)
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		return &contractx.Completion{
			ToolCall: &contractx.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}, nil
	}

	return &contractx.Completion{Content: msg.Content}, nil
}

// Embed returns the embedding vector for text.
func (g *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(g.embedModel),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: openaisdk.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: embedding returned no data", contractx.ErrModelInvoke)
	}

	return resp.Data[0].Embedding, nil
}

func toMessageParams(history []contractx.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case contractx.RoleSystem:
			out = append(out, openaisdk.SystemMessage(m.Content))
		case contractx.RoleUser:
			out = append(out, openaisdk.UserMessage(m.Content))
		case contractx.RoleAssistant:
			if m.ToolCall != nil {
				out = append(out, assistantToolCallParam(*m.ToolCall))
				continue
			}
			out = append(out, openaisdk.AssistantMessage(m.Content))
		case contractx.RoleFunction:
			out = append(out, openaisdk.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func assistantToolCallParam(call contractx.ToolCall) openaisdk.ChatCompletionMessageParamUnion {
	return openaisdk.ChatCompletionMessageParamUnion{
		OfAssistant: &openaisdk.ChatCompletionAssistantMessageParam{
			ToolCalls: []openaisdk.ChatCompletionMessageToolCallParam{
				{
					ID: call.ID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				},
			},
		},
	}
}

func toToolParams(specs []contractx.ToolSpec) []openaisdk.ChatCompletionToolParam {
	tools := make([]openaisdk.ChatCompletionToolParam, 0, len(specs))
	for _, s := range specs {
		tools = append(tools, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        s.Name,
				Description: openaisdk.String(s.Description),
				Parameters:  openaisdk.FunctionParameters(s.Parameters),
			},
		})
	}
	return tools
}
