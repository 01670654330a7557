// Package oracle получает толкование гадания от модели OpenAI.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"falplatform/internal/domain"

	"github.com/sashabaranov/go-openai"
	"github.com/sethvargo/go-retry"
)

var ErrEmptyAnswer = errors.New("oracle returned no answer")

// Request - входные данные для толкования
type Request struct {
	Type     domain.FortuneType
	Question string
	ImageURL string
	Cards    []string
}

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string // пусто - официальный API
	MaxTokens  int
	MaxRetries int
}

type GPTOracle struct {
	client     *openai.Client
	model      string
	maxTokens  int
	maxRetries int
	backoff    time.Duration
}

func NewGPTOracle(cfg Config) *GPTOracle {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	return &GPTOracle{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		maxTokens:  maxTokens,
		maxRetries: retries,
		backoff:    500 * time.Millisecond,
	}
}

var systemPrompts = map[domain.FortuneType]string{
	domain.FortuneHand: "You are an experienced palm reader. Read the lines of the hand in the photo " +
		"(life, heart, head and fate lines) and give a warm, concrete reading.",
	domain.FortuneFace: "You are a face reader. Describe what the features in the photo say about " +
		"character and near future. Never comment on attractiveness.",
	domain.FortuneCoffee: "You are a Turkish coffee fortune teller. Interpret the shapes left by the grounds " +
		"in the cup photo, from the rim (near future) to the bottom (distant future).",
	domain.FortuneTarot: "You are a tarot reader. Interpret the drawn cards in order as past, present and future, " +
		"then give an overall message.",
	domain.FortuneAIChat: "You are a friendly spiritual guide on a fortune-telling platform. " +
		"Answer briefly and kindly.",
}

const languageHint = " Answer in the language of the user's question. Keep it under 250 words."

func buildMessages(req Request) []openai.ChatCompletionMessage {
	system := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompts[req.Type] + languageHint,
	}

	var text strings.Builder
	if req.Question != "" {
		text.WriteString(req.Question)
	}
	if len(req.Cards) > 0 {
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString("Cards: " + strings.Join(req.Cards, ", "))
	}
	if text.Len() == 0 {
		text.WriteString("Please read my fortune.")
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.ImageURL != "" {
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: text.String()},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    req.ImageURL,
				Detail: openai.ImageURLDetailAuto,
			}},
		}
	} else {
		user.Content = text.String()
	}

	return []openai.ChatCompletionMessage{system, user}
}

// Interpret возвращает толкование. Ошибки API повторяются с экспоненциальной
// паузой, всего не больше maxRetries попыток.
func (o *GPTOracle) Interpret(ctx context.Context, req Request) (string, error) {
	policy := retry.WithMaxRetries(uint64(o.maxRetries-1), retry.NewExponential(o.backoff))

	var answer string
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       o.model,
			Messages:    buildMessages(req),
			MaxTokens:   o.maxTokens,
			Temperature: 0.8,
		})
		if err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return retry.RetryableError(ErrEmptyAnswer)
		}
		answer = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("interpret %s: %w", req.Type, err)
	}
	return answer, nil
}

// 4xx кроме 429 повторять бессмысленно
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
