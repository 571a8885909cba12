package llmprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"relaycore.dev/agentcore/internal/model"
)

// Config configures an OpenAI-backed Provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type openaiProvider struct {
	client openai.Client
	model  string
}

// NewOpenAI returns a Provider backed by the OpenAI chat completions API.
func NewOpenAI(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llmprovider: API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	m := cfg.Model
	if m == "" {
		m = "gpt-4o"
	}

	return &openaiProvider{client: openai.NewClient(opts...), model: m}, nil
}

func (p *openaiProvider) ID() string { return "openai:" + p.model }

func (p *openaiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	params := p.buildParams(req)

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, classify(fmt.Errorf("llmprovider: empty choices"))
	}

	slog.DebugContext(ctx, "llmprovider chat completed",
		"model", p.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason)

	return toChatResponse(resp), nil
}

func (p *openaiProvider) ChatStream(ctx context.Context, req ChatRequest, ch chan<- ChatChunk) error {
	defer close(ch)

	params := p.buildParams(req)
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 {
			delta := chunk.Choices[0].Delta.Content
			if delta != "" {
				select {
				case ch <- ChatChunk{ContentDelta: delta}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return classify(err)
	}

	final := toChatResponse(&acc.ChatCompletion)
	select {
	case ch <- ChatChunk{Done: true, Final: final}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (p *openaiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModelTextEmbedding3Small,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Data) == 0 {
		return nil, classify(fmt.Errorf("llmprovider: empty embedding response"))
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (p *openaiProvider) Models(ctx context.Context) ([]ModelInfo, error) {
	// The static table mirrors what the Cost Tracker's pricing table already
	// knows; a live /v1/models round trip doesn't report context windows.
	return []ModelInfo{
		{ID: "gpt-4o", ContextWindow: 128_000, SupportsTools: true},
		{ID: "gpt-4o-mini", ContextWindow: 128_000, SupportsTools: true},
		{ID: "gpt-5-codex", ContextWindow: 272_000, SupportsTools: true},
		{ID: "o3-mini", ContextWindow: 200_000, SupportsTools: true},
	}, nil
}

func (p *openaiProvider) buildParams(req ChatRequest) openai.ChatCompletionNewParams {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	params := openai.ChatCompletionNewParams{
		Model:               p.model,
		Messages:            convertMessages(req.Messages),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if tools := convertTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	return params
}

func toChatResponse(resp *openai.ChatCompletion) *ChatResponse {
	choice := resp.Choices[0]
	out := &ChatResponse{
		Content:    choice.Message.Content,
		StopReason: toStopReason(string(choice.FinishReason)),
		Usage: model.TokenUsage{
			Input:  resp.Usage.PromptTokens,
			Output: resp.Usage.CompletionTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

func toStopReason(finish string) StopReason {
	switch finish {
	case "stop":
		return model.StopReasonEndTurn
	case "length":
		return model.StopReasonMaxTokens
	case "tool_calls":
		return model.StopReasonToolUse
	case "stop_sequence":
		return model.StopReasonStopSequence
	default:
		return model.StopReasonUnknown
	}
}

func convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case "system":
			result = append(result, openai.SystemMessage(msg.Content))
		case "user":
			if msg.Name != "" {
				result = append(result, openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Name:    openai.String(msg.Name),
						Content: openai.ChatCompletionUserMessageParamContentUnion{OfString: openai.String(msg.Content)},
					},
				})
			} else {
				result = append(result, openai.UserMessage(msg.Content))
			}
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				toolCalls := make([]openai.ChatCompletionMessageToolCallParam, len(msg.ToolCalls))
				for i, tc := range msg.ToolCalls {
					toolCalls[i] = openai.ChatCompletionMessageToolCallParam{
						ID:   tc.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					}
				}
				result = append(result, openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content:   openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(msg.Content)},
						ToolCalls: toolCalls,
					},
				})
			} else {
				result = append(result, openai.AssistantMessage(msg.Content))
			}
		case "tool":
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return result
}

func convertTools(tools []model.ToolSpec) []openai.ChatCompletionToolParam {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		var params shared.FunctionParameters
		if t.Parameters != nil {
			data, _ := json.Marshal(t.Parameters)
			_ = json.Unmarshal(data, &params)
		}
		result[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  params,
			},
		}
	}
	return result
}

// GenerateToolSchema reflects a Go struct into the JSON schema a ToolSpec's
// Parameters field expects, the same reflector the teacher's llm package
// uses for structured responses.
func GenerateToolSchema(v any) any {
	reflector := jsonschema.Reflector{AllowAdditionalProperties: false, DoNotReference: true}
	return reflector.Reflect(v)
}
