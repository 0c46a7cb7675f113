// Package llm provides the client for the hosted Groq model API
package llm

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	apperrors "github.com/Dedeep007/SAGE/internal/errors"
	"github.com/Dedeep007/SAGE/internal/resilience"
	"github.com/Dedeep007/SAGE/internal/trace"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Config holds model API settings.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	TranscribeModel string
	Temperature     float64
	MaxTokens       int
}

// Client wraps the chat and transcription endpoints with retry and
// circuit breaker protection.
type Client struct {
	api     openai.Client
	cfg     Config
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// New creates a model API client. SDK-level retries are disabled so the
// resilience wrapper owns the single backoff policy.
func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:     openai.NewClient(opts...),
		cfg:     cfg,
		breaker: resilience.New(resilience.DefaultConfig()),
		retry:   resilience.LLMRetryConfig(),
	}
}

// Complete sends the conversation and returns the full reply.
func (c *Client) Complete(ctx context.Context, msgs []Message) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.complete")
	defer span.End()
	span.SetAttr("model", c.cfg.Model)

	var text string
	err := resilience.Retry(ctx, c.retry, func() error {
		return c.execute(func() error {
			resp, err := c.api.Chat.Completions.New(ctx, c.params(msgs))
			if err != nil {
				return classify(err)
			}
			if len(resp.Choices) == 0 {
				return apperrors.New(apperrors.CodeLLMFailed, "no choices in response")
			}
			text = resp.Choices[0].Message.Content
			return nil
		})
	})
	return text, err
}

// StreamChat sends the conversation and delivers reply chunks to onChunk
// as they arrive. Not retried: chunks already delivered cannot be taken
// back, so a failed stream surfaces to the caller instead.
func (c *Client) StreamChat(ctx context.Context, msgs []Message, onChunk func(string)) error {
	ctx, span := trace.StartSpan(ctx, "llm.stream_chat")
	defer span.End()
	span.SetAttr("model", c.cfg.Model)

	return c.execute(func() error {
		stream := c.api.Chat.Completions.NewStreaming(ctx, c.params(msgs))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				onChunk(delta)
			}
		}
		return classify(stream.Err())
	})
}

// Transcribe sends WAV audio for speech-to-text and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.transcribe")
	defer span.End()
	span.SetAttr("model", c.cfg.TranscribeModel)

	var text string
	err := resilience.Retry(ctx, c.retry, func() error {
		return c.execute(func() error {
			resp, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
				File:  openai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
				Model: openai.AudioModel(c.cfg.TranscribeModel),
			})
			if err != nil {
				return classify(err)
			}
			text = resp.Text
			return nil
		})
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeTranscriptionFailed, "transcription failed")
	}
	return text, nil
}

// execute runs fn behind the circuit breaker, mapping a rejected call
// onto a coded error so retry and HTTP layers can classify it.
func (c *Client) execute(fn func() error) error {
	if c.cfg.APIKey == "" {
		return apperrors.New(apperrors.CodeLLMNotConfigured, "model api key not configured")
	}
	if err := c.breaker.Allow(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "model api circuit open")
	}
	if err := fn(); err != nil {
		c.breaker.Failure()
		return err
	}
	c.breaker.Success()
	return nil
}

func (c *Client) params(msgs []Message) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}

	return openai.ChatCompletionNewParams{
		Messages:    converted,
		Model:       openai.ChatModel(c.cfg.Model),
		Temperature: openai.Float(c.cfg.Temperature),
		MaxTokens:   openai.Int(int64(c.cfg.MaxTokens)),
	}
}

// classify maps transport errors onto app error codes.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return apperrors.Wrap(err, apperrors.CodeCancelled, "model call cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeTimeout, "model call timed out")
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			return apperrors.Wrap(err, apperrors.CodeRateLimited, "model api rate limited")
		case apierr.StatusCode >= http.StatusInternalServerError:
			return apperrors.Wrap(err, apperrors.CodeUnavailable, "model api unavailable")
		default:
			return apperrors.Wrap(err, apperrors.CodeLLMFailed, "model api request failed")
		}
	}

	// No HTTP status at all: connection-level failure
	return apperrors.Wrap(err, apperrors.CodeUnavailable, "model api unreachable")
}
