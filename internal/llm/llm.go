// Package llm talks to an OpenAI-compatible chat completions API.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/starford/secondbrain/internal/apperr"
)

// Image is an inline image attached to a request.
type Image struct {
	MediaType string
	Data      []byte
}

// DataURL encodes the image as a base64 data URL.
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MediaType, base64.StdEncoding.EncodeToString(i.Data))
}

// Request is a single-turn completion request.
type Request struct {
	System    string
	User      string
	Image     *Image
	MaxTokens int
}

// Completer produces a text completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Configurable is implemented by completers that know before a call whether
// they have credentials.
type Configurable interface {
	Configured() bool
}

// Ready reports whether m can be called. Completers that do not implement
// Configurable are assumed ready.
func Ready(m Completer) bool {
	c, ok := m.(Configurable)
	return !ok || c.Configured()
}

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client is a Completer backed by go-openai.
type Client struct {
	api   *openai.Client
	model string
	ready bool
}

// NewClient creates a Client. An empty API key is accepted here and reported
// as apperr.ErrNotConfigured on every call.
func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Client{
		api:   openai.NewClientWithConfig(oc),
		model: cfg.Model,
		ready: strings.TrimSpace(cfg.APIKey) != "",
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.ready
}

// Complete sends the request and returns the text of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if !c.ready {
		return "", apperr.ErrNotConfigured
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.Image != nil {
		user.MultiContent = []openai.ChatMessagePart{
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: req.Image.DataURL(), Detail: openai.ImageURLDetailAuto},
			},
			{Type: openai.ChatMessagePartTypeText, Text: req.User},
		}
	} else {
		user.Content = req.User
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, user)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  msgs,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("llm: api error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
