package explain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// ErrEmptyCompletion модель вернула пустой ответ
var ErrEmptyCompletion = errors.New("explain: empty completion")

const (
	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 512
	defaultTemperature = 0.7
)

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a senior scientist at Hawkins National Laboratory in 1983. You have seen what comes through from the Upside Down, and you read every lab sensor alarm as a possible interdimensional breach.

Write one in-character warning for the sensor anomaly below:
- 2-3 sentences, 40-80 words, urgent and paranoid but professional
- mention the sensor type, the location and the reading
- tie the reading to Stranger Things lore (the Upside Down, the Gate, Demogorgons, the Mind Flayer, Eleven)
- output only the warning text, no prefixes and no markdown

Sensor ID: {{.SourceID}}
Sensor Type: {{.Channel}}
Location: {{.Location}}
Current Reading: {{.Reading}}
Normal Operating Range: {{.Min}} to {{.Max}} {{.Unit}}
Severity Level: {{.Severity}}
Detection Timestamp: {{.Timestamp}}
`))

type promptData struct {
	SourceID  string
	Channel   string
	Location  string
	Reading   string
	Min       string
	Max       string
	Unit      string
	Severity  string
	Timestamp string
}

// BuildPrompt подставляет данные аномалии в шаблон запроса
func BuildPrompt(a Anomaly) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, promptData{
		SourceID:  a.SourceID,
		Channel:   a.Channel,
		Location:  a.Location,
		Reading:   formatValue(a.Value) + " " + a.Unit,
		Min:       formatValue(a.ThresholdMin),
		Max:       formatValue(a.ThresholdMax),
		Unit:      a.Unit,
		Severity:  a.Severity,
		Timestamp: a.Timestamp.Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// OpenAIClient генерирует объяснения через chat completions
type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      zerolog.Logger
}

// NewOpenAIClient создает клиента; пустой baseURL означает api.openai.com
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		logger:      log.With().Str("component", "openai_explainer").Logger(),
	}
}

// Explain отправляет запрос модели и возвращает текст предупреждения
func (c *OpenAIClient) Explain(ctx context.Context, a Anomaly) (string, error) {
	prompt, err := BuildPrompt(a)
	if err != nil {
		return "", err
	}

	c.logger.Debug().Str("channel", a.Channel).Str("model", c.model).Msg("Requesting explanation")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
