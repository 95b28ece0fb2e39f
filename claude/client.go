/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claude

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/issueforge/action"
	"chainguard.dev/issueforge/orchestrator"
	"chainguard.dev/issueforge/retry"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

const (
	defaultModel       = "claude-sonnet-4-5"
	defaultMaxTokens   = 16384
	defaultTemperature = 0.1
)

// Client produces actions from a Claude model. It implements
// orchestrator.Requester.
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	retryConfig retry.Config
}

// Option configures a Client.
type Option func(*Client) error

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *Client) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		c.model = model
		return nil
	}
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(n int64) Option {
	return func(c *Client) error {
		if n <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", n)
		}
		c.maxTokens = n
		return nil
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) error {
		if t < 0 || t > 1 {
			return fmt.Errorf("temperature must be in [0, 1], got %f", t)
		}
		c.temperature = t
		return nil
	}
}

// WithRetryConfig overrides the retry budget for transient API errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.retryConfig = cfg
		return nil
	}
}

// New constructs a Client around an Anthropic SDK client.
func New(client anthropic.Client, opts ...Option) (*Client, error) {
	c := &Client{
		client:      client,
		model:       defaultModel,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		retryConfig: retry.DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return c, nil
}

// RequestAction renders the request into a prompt, sends it, and parses the
// response into an action payload. Rate limits and transient server errors
// are retried; a response that is not a valid action surfaces as a
// MalformedError.
func (c *Client) RequestAction(ctx context.Context, req *orchestrator.Request) (action.Payload, error) {
	log := clog.FromContext(ctx)

	prompt, err := buildPrompt(req)
	if err != nil {
		return action.Payload{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemInstructions}},
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(prompt),
			},
		}},
	}
	params.Temperature = anthropic.Float(c.temperature)

	log.With("model", c.model).
		With("prompt_length", len(prompt)).
		Info("Requesting action from Claude")

	message, err := retry.Do(ctx, c.retryConfig, "claude_message", isRetryableError, func() (*anthropic.Message, error) {
		return c.client.Messages.New(ctx, params)
	})
	if err != nil {
		return action.Payload{}, fmt.Errorf("requesting completion: %w", err)
	}

	text := textFromMessage(message)
	if text == "" {
		return action.Payload{}, &action.MalformedError{Reason: "response contained no text"}
	}

	payload, err := action.Parse(text)
	if err != nil {
		log.With("response", text).With("error", err).
			Warn("Failed to parse Claude response")
		return action.Payload{}, err
	}

	log.With("action", payload.String()).Info("Parsed action")
	return payload, nil
}

// textFromMessage concatenates the text blocks of a response.
func textFromMessage(message *anthropic.Message) string {
	var text string
	for _, content := range message.Content {
		if content.Type == "text" {
			text += content.Text
		}
	}
	return text
}
