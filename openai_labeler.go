package topictree

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	labelSystemPrompt = "You generate concise topic labels. Return JSON only."
	defaultRationale  = "Label generated from representative snippets."
)

// OpenAILabeler asks a chat completion model for a label. Every failure is
// absorbed into the placeholder label and counted in Degraded.
type OpenAILabeler struct {
	client   openai.Client
	model    string
	schema   *jsonschema.Schema
	degraded atomic.Int64
}

func NewOpenAILabeler(cfg LabelerConfig) *OpenAILabeler {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	return &OpenAILabeler{
		client: openai.NewClient(opts...),
		model:  model,
		schema: reflector.Reflect(&TopicLabel{}),
	}
}

func (l *OpenAILabeler) Name() string {
	return "openai:" + l.model
}

// Degraded returns how many labels fell back to the placeholder
func (l *OpenAILabeler) Degraded() int64 {
	return l.degraded.Load()
}

type labelRequirements struct {
	OutputJSON map[string]string  `json:"output_json"`
	JSONOnly   bool               `json:"json_only"`
	Schema     *jsonschema.Schema `json:"schema,omitempty"`
}

type labelPrompt struct {
	Task         string            `json:"task"`
	Requirements labelRequirements `json:"requirements"`
	Snippets     []string          `json:"snippets"`
}

func (l *OpenAILabeler) Label(ctx context.Context, snippets []string) TopicLabel {
	if snippets == nil {
		snippets = []string{}
	}

	prompt, err := json.Marshal(labelPrompt{
		Task: "Label a text cluster.",
		Requirements: labelRequirements{
			OutputJSON: map[string]string{
				"label":     "2-6 words",
				"rationale": "1 sentence",
			},
			JSONOnly: true,
			Schema:   l.schema,
		},
		Snippets: snippets,
	})
	if err != nil {
		log.Printf("⚠️  Failed to marshal label prompt: %v", err)
		return l.fallback()
	}

	chatCompletion, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(labelSystemPrompt),
			openai.UserMessage(string(prompt)),
		},
		Model:       openai.ChatModel(l.model),
		Temperature: openai.Float(0.2),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		log.Printf("⚠️  Failed to call OpenAI API for labeling: %v", err)
		return l.fallback()
	}

	if len(chatCompletion.Choices) == 0 {
		log.Printf("⚠️  No choices in label response")
		return l.fallback()
	}

	payload, err := parseLabelPayload(chatCompletion.Choices[0].Message.Content)
	if err != nil {
		log.Printf("⚠️  Failed to parse label response: %v", err)
		return l.fallback()
	}

	label := payloadField(payload, "label")
	if label == "" {
		l.degraded.Add(1)
		label = DefaultTopicLabel
	}
	rationale := payloadField(payload, "rationale")
	if rationale == "" {
		rationale = defaultRationale
	}

	return TopicLabel{
		Label:     truncateString(label, maxOpenAILabelLength),
		Rationale: rationale,
	}
}

func (l *OpenAILabeler) fallback() TopicLabel {
	l.degraded.Add(1)
	return TopicLabel{Label: DefaultTopicLabel, Rationale: defaultRationale}
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseLabelPayload decodes the model output as a JSON object. When the
// content carries extra prose, the outermost braces are tried instead.
func parseLabelPayload(content string) (map[string]any, error) {
	var payload map[string]any
	err := json.Unmarshal([]byte(content), &payload)
	if err == nil && payload != nil {
		return payload, nil
	}

	match := jsonObjectPattern.FindString(content)
	if match == "" {
		return nil, fmt.Errorf("no JSON object in response: %q", truncateString(content, 80))
	}
	payload = nil
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode label JSON: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("label JSON is null")
	}
	return payload, nil
}

// payloadField returns the trimmed string form of a payload value. Absent
// and null values come back empty.
func payloadField(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
