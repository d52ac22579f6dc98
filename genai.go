package googleai

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google-ai-go/googleai/schema"
)

// GenerativeModel binds a client to one model name plus per-model settings.
// Configure it before the first request; it is not safe to mutate while
// requests are in flight.
type GenerativeModel struct {
	c    *Client
	name string

	SystemInstruction *Content
	GenerationConfig  GenerationConfig
	SafetySettings    []SafetySetting
}

// GenerativeModel returns a handle for the named model. A bare name like
// "gemini-pro" is qualified to "models/gemini-pro".
func (c *Client) GenerativeModel(name string) *GenerativeModel {
	if !strings.Contains(name, "/") {
		name = "models/" + name
	}
	return &GenerativeModel{c: c, name: name}
}

// Name returns the fully qualified model name.
func (m *GenerativeModel) Name() string { return m.name }

// WithSystemInstruction sets the system prompt and returns m.
func (m *GenerativeModel) WithSystemInstruction(text string) *GenerativeModel {
	m.SystemInstruction = &Content{Parts: []Part{Text(text)}}
	return m
}

// WithResponseSchema constrains the model's output to the given schema and
// switches the response MIME type to JSON, which the service requires for
// schema-constrained output.
func (m *GenerativeModel) WithResponseSchema(s *schema.Schema) *GenerativeModel {
	m.GenerationConfig.ResponseSchema = s
	m.GenerationConfig.ResponseMIMEType = "application/json"
	return m
}

// WithResponseSchemaOf constrains the output to the derived schema of d.
func (m *GenerativeModel) WithResponseSchemaOf(d schema.Definer) *GenerativeModel {
	return m.WithResponseSchema(d.Schema())
}

func (m *GenerativeModel) buildRequest(contents []*Content) *GenerateContentRequest {
	req := &GenerateContentRequest{
		Contents:          contents,
		SystemInstruction: m.SystemInstruction,
		SafetySettings:    m.SafetySettings,
	}
	if !m.GenerationConfig.isZero() {
		cfg := m.GenerationConfig
		req.GenerationConfig = &cfg
	}
	return req
}

// GenerateContent sends one user message and returns the response.
func (m *GenerativeModel) GenerateContent(ctx context.Context, parts ...Part) (*GenerateContentResponse, error) {
	return m.generate(ctx, []*Content{{Role: "user", Parts: parts}})
}

func (m *GenerativeModel) generate(ctx context.Context, contents []*Content) (*GenerateContentResponse, error) {
	var resp GenerateContentResponse
	path := m.name + ":generateContent"
	if err := m.c.do(ctx, "POST", path, m.buildRequest(contents), &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("googleai: response contains no candidates")
	}
	return &resp, nil
}

// StreamGenerateContent sends one user message and streams the response
// chunk by chunk. Iterate with Stream.Next and close the stream when done.
func (m *GenerativeModel) StreamGenerateContent(ctx context.Context, parts ...Part) (*Stream, error) {
	return m.streamGenerate(ctx, []*Content{{Role: "user", Parts: parts}})
}

func (m *GenerativeModel) streamGenerate(ctx context.Context, contents []*Content) (*Stream, error) {
	path := m.name + ":streamGenerateContent?alt=sse"
	resp, err := m.c.stream(ctx, path, m.buildRequest(contents))
	if err != nil {
		return nil, err
	}
	return newStream(resp.Body), nil
}

// CountTokens reports how many tokens the given message consumes.
func (m *GenerativeModel) CountTokens(ctx context.Context, parts ...Part) (*CountTokensResponse, error) {
	req := &CountTokensRequest{Contents: []*Content{{Role: "user", Parts: parts}}}
	var resp CountTokensResponse
	if err := m.c.do(ctx, "POST", m.name+":countTokens", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Info fetches the model's metadata.
func (m *GenerativeModel) Info(ctx context.Context) (*Model, error) {
	var out Model
	if err := m.c.do(ctx, "GET", m.name, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListModels returns every available model, following pagination to the end.
func (c *Client) ListModels(ctx context.Context) ([]*Model, error) {
	var out []*Model
	pageToken := ""
	for {
		path := "models?pageSize=50"
		if pageToken != "" {
			path += "&pageToken=" + url.QueryEscape(pageToken)
		}
		var page listModelsResponse
		if err := c.do(ctx, "GET", path, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Models...)
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}
