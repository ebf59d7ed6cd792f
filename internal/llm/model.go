package llm

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/clarkhq/clark/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Turn is one prior exchange in a conversation transcript.
type Turn struct {
	Role    string
	Content string
}

// Model wraps langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel creates an LLM model for the given provider and model name. The
// model name is a parameter rather than read from config because the
// contextualizer and answer generator may use different models.
func NewModel(ctx context.Context, cfg config.Config, modelName string) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(modelName),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.BedrockRegion))
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		model, err = bedrock.New(
			bedrock.WithClient(client),
			bedrock.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: modelName,
	}, nil
}

// Generate generates text based on a prompt.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", ClassifyError(fmt.Errorf("generate: %w", err))
	}
	return response, nil
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", ClassifyError(fmt.Errorf("generate with system: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return response.Choices[0].Content, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// ContextualizeChunk explains where a chunk sits within its document. The
// document context passed in is already truncated by the caller.
func (m *Model) ContextualizeChunk(ctx context.Context, docContext, chunkContent string) (string, error) {
	prompt := fmt.Sprintf(`<document>
%s
</document>
Here is a chunk of text:
<chunk>
%s
</chunk>
Briefly explain the context of this chunk within the document.`, docContext, chunkContent)

	return m.Generate(ctx, prompt)
}

// RewriteQuery turns a follow-up question into a standalone search query
// using the prior conversation turns. Empty history returns the question
// unchanged without a model call.
func (m *Model) RewriteQuery(ctx context.Context, history []Turn, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	systemPrompt := `Given a conversation history and a follow-up question, rewrite the follow-up into a standalone question that can be understood without the history.
Keep the user's intent and terminology. Output only the rewritten question, nothing else.`

	userPrompt := fmt.Sprintf(`Conversation:
%s

Follow-up question: %s

Standalone question:`, FormatTranscript(history), question)

	rewritten, err := m.GenerateWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question, nil
	}
	return rewritten, nil
}

// answerSystemPrompt mirrors the tutor persona: grounded in context, allowed
// to elaborate, explicit about which parts are context-derived.
const answerSystemPrompt = `You are Clark, an expert Engineering Professor and Tutor. Your goal is to help students deeply understand complex concepts based on the provided course material.

INSTRUCTIONS:
1. **Core Accuracy**: Base your factual answer primarily on the provided CONTEXT below. Do not contradict the context.
2. **Elaboration & Depth**: Do not just summarize. Expand on the concepts mentioned in the context. Explain the 'Why' and 'How' behind the theories. If the context is brief, use your internal knowledge to provide the theoretical background.
3. **Examples**: Provide concrete, real-world examples or analogies to illustrate the points, even if they are not explicitly in the context.
4. **Structure**: Use clear formatting, bullet points, and bold text to make the answer easy to read.
5. **Citation**: Explicitly mention what part of the answer comes from the context and what part is your own elaboration.

CONTEXT:
%s`

// GenerateAnswer produces a grounded answer from retrieved context, the
// prior transcript, and the new question.
func (m *Model) GenerateAnswer(ctx context.Context, contextText string, history []Turn, question string) (string, error) {
	messages := answerMessages(contextText, history, question)

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", ClassifyError(fmt.Errorf("generate answer: %w", err))
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}

// GenerateAnswerStream behaves like GenerateAnswer but delivers the answer
// incrementally through onChunk. The full answer is also returned.
func (m *Model) GenerateAnswerStream(ctx context.Context, contextText string, history []Turn, question string, onChunk func(string)) (string, error) {
	messages := answerMessages(contextText, history, question)

	var full strings.Builder
	response, err := m.llm.GenerateContent(ctx, messages,
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			full.Write(chunk)
			onChunk(string(chunk))
			return nil
		}),
	)
	if err != nil {
		return "", ClassifyError(fmt.Errorf("generate answer stream: %w", err))
	}

	if full.Len() > 0 {
		return full.String(), nil
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}

func answerMessages(contextText string, history []Turn, question string) []llms.MessageContent {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(answerSystemPrompt, contextText)),
	}
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, question))
	return messages
}

// FormatTranscript renders conversation turns as a plain transcript for
// prompt embedding.
func FormatTranscript(history []Turn) string {
	var sb strings.Builder
	for i, turn := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
	}
	return sb.String()
}
