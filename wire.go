package googleai

import (
	"github.com/google-ai-go/googleai/schema"
)

// Content is a multi-part message attributed to a role ("user" or "model").
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is one piece of a message. Exactly one field is set.
type Part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *Blob             `json:"inlineData,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// Text returns a text part.
func Text(s string) Part { return Part{Text: s} }

// isText reports whether the part carries text and nothing else. Streamed
// chunks split text at arbitrary points, so adjacent text parts are merged
// back together when accumulating history.
func (p Part) isText() bool {
	return p.InlineData == nil && p.FunctionCall == nil && p.FunctionResponse == nil
}

// Blob is inline binary data. Data is base64-encoded on the wire.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// FunctionCall is a model-requested function invocation.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries a function result back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

// GenerationConfig controls decoding and output shape. Pointer fields
// distinguish "unset" from an explicit zero.
type GenerationConfig struct {
	StopSequences   []string `json:"stopSequences,omitempty"`
	CandidateCount  *int32   `json:"candidateCount,omitempty"`
	MaxOutputTokens *int32   `json:"maxOutputTokens,omitempty"`
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	TopK            *int32   `json:"topK,omitempty"`

	// ResponseMIMEType and ResponseSchema constrain the model's output.
	// Setting a schema requires "application/json".
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   *schema.Schema `json:"responseSchema,omitempty"`
}

// isZero reports whether no generation setting was touched, so the config
// can be omitted from the request entirely.
func (g *GenerationConfig) isZero() bool {
	return g.StopSequences == nil && g.CandidateCount == nil && g.MaxOutputTokens == nil &&
		g.Temperature == nil && g.TopP == nil && g.TopK == nil &&
		g.ResponseMIMEType == "" && g.ResponseSchema == nil
}

// SafetySetting adjusts one harm category's blocking threshold.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// SafetyRating is the service's harm assessment for one category.
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
	Blocked     bool   `json:"blocked,omitempty"`
}

// CitationSource attributes a span of the output to source material.
type CitationSource struct {
	StartIndex int32  `json:"startIndex,omitempty"`
	EndIndex   int32  `json:"endIndex,omitempty"`
	URI        string `json:"uri,omitempty"`
	License    string `json:"license,omitempty"`
}

// CitationMetadata collects the citation sources of one candidate.
type CitationMetadata struct {
	CitationSources []CitationSource `json:"citationSources,omitempty"`
}

// Candidate is one generated response alternative.
type Candidate struct {
	Index            int32             `json:"index"`
	Content          *Content          `json:"content,omitempty"`
	FinishReason     string            `json:"finishReason,omitempty"`
	SafetyRatings    []SafetyRating    `json:"safetyRatings,omitempty"`
	CitationMetadata *CitationMetadata `json:"citationMetadata,omitempty"`
	TokenCount       int32             `json:"tokenCount,omitempty"`
}

// PromptFeedback reports prompt-level blocking.
type PromptFeedback struct {
	BlockReason   string         `json:"blockReason,omitempty"`
	SafetyRatings []SafetyRating `json:"safetyRatings,omitempty"`
}

// UsageMetadata is the token accounting for one request.
type UsageMetadata struct {
	PromptTokenCount     int32 `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int32 `json:"totalTokenCount,omitempty"`
}

// GenerateContentRequest is the request body of generateContent and
// streamGenerateContent.
type GenerateContentRequest struct {
	Contents          []*Content        `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	SafetySettings    []SafetySetting   `json:"safetySettings,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// GenerateContentResponse is one response, or one streamed chunk.
type GenerateContentResponse struct {
	Candidates     []*Candidate    `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// Text concatenates the text parts of the first candidate. It returns ""
// when the response has no candidates or no text.
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// Model describes one available model.
type Model struct {
	Name                       string   `json:"name"`
	BaseModelID                string   `json:"baseModelId,omitempty"`
	Version                    string   `json:"version,omitempty"`
	DisplayName                string   `json:"displayName,omitempty"`
	Description                string   `json:"description,omitempty"`
	InputTokenLimit            int32    `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit           int32    `json:"outputTokenLimit,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods,omitempty"`
	Temperature                *float32 `json:"temperature,omitempty"`
	TopP                       *float32 `json:"topP,omitempty"`
	TopK                       *int32   `json:"topK,omitempty"`
}

type listModelsResponse struct {
	Models        []*Model `json:"models"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

// CountTokensRequest is the request body of countTokens.
type CountTokensRequest struct {
	Contents []*Content `json:"contents"`
}

// CountTokensResponse reports the token count of a prompt.
type CountTokensResponse struct {
	TotalTokens int32 `json:"totalTokens"`
}
