package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tagtalk/tagtalk/internal/validation"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultOpenAITimeout bounds a single classification call
	DefaultOpenAITimeout = 15 * time.Second
)

const classifierSystemPrompt = `You classify task-management chat commands. ` +
	`Respond with valid JSON only: {"intent": one of ` +
	`["list","create","add_tag","remove_tag","list_tags","complete","delete","unknown"], ` +
	`"tags": [lowercase tag strings], "title": task title for create intents or "", ` +
	`"remove_all": true when every tag should be removed, ` +
	`"confidence": number between 0 and 1}. ` +
	`Tags contain only lowercase letters, numbers, and hyphens.`

// OpenAIClassifier classifies utterances with an OpenAI chat model. It falls
// back to the deterministic pattern classifier when the API is unreachable or
// returns garbage, so the orchestrator always gets a usable result.
type OpenAIClassifier struct {
	client   openai.Client
	model    string
	timeout  time.Duration
	fallback *PatternClassifier
	logger   *zap.Logger
}

// NewOpenAIClassifier creates an OpenAI-backed classifier
func NewOpenAIClassifier(apiKey, baseURL, model string, logger *zap.Logger) *OpenAIClassifier {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{Timeout: DefaultOpenAITimeout}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIClassifier{
		client:   client,
		model:    model,
		timeout:  DefaultOpenAITimeout,
		fallback: NewPatternClassifier(),
		logger:   logger,
	}
}

// Classify satisfies the Classifier interface. Errors degrade to the pattern
// classifier rather than surfacing, keeping the orchestrator contract simple.
func (c *OpenAIClassifier) Classify(text string) ExtractionResult {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	result, err := c.ClassifyContext(ctx, text)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("openai_classification_failed_falling_back",
				zap.Error(err),
			)
		}
		return c.fallback.Classify(text)
	}
	return result
}

// ClassifyContext classifies with an explicit context and surfaces errors
func (c *OpenAIClassifier) ClassifyContext(ctx context.Context, text string) (ExtractionResult, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(classifierSystemPrompt),
		openai.UserMessage(text),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("classification request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ExtractionResult{}, fmt.Errorf("no choices in response")
	}

	return c.parseResponse(text, resp.Choices[0].Message.Content)
}

func (c *OpenAIClassifier) parseResponse(text, content string) (ExtractionResult, error) {
	var parsed struct {
		Intent     string   `json:"intent"`
		Tags       []string `json:"tags"`
		Title      string   `json:"title"`
		RemoveAll  bool     `json:"remove_all"`
		Confidence float64  `json:"confidence"`
	}

	raw := content
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Some models wrap JSON in prose despite the response format hint
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return ExtractionResult{}, fmt.Errorf("failed to parse classification response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
			return ExtractionResult{}, fmt.Errorf("failed to parse classification response: %w", err)
		}
	}

	intent := Intent(parsed.Intent)
	switch intent {
	case IntentList, IntentCreate, IntentAddTag, IntentRemoveTag,
		IntentListTags, IntentComplete, IntentDelete, IntentUnknown:
	default:
		intent = IntentUnknown
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	valid, invalid := validation.ValidateTags(parsed.Tags)

	return ExtractionResult{
		Intent:      intent,
		Tags:        valid,
		InvalidTags: invalid,
		Title:       strings.TrimSpace(parsed.Title),
		RemoveAll:   parsed.RemoveAll,
		Confidence:  confidence,
		Source:      SourceImplicit,
		RawText:     text,
	}, nil
}
