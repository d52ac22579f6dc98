package googleai

import (
	"context"

	"github.com/google/uuid"
)

// ChatSession carries a conversation's history across turns. Every request
// replays the full history, so the session is the unit of context.
type ChatSession struct {
	// ID correlates the session's requests in logs.
	ID string

	// History holds the accumulated turns, alternating user and model.
	History []*Content

	m *GenerativeModel
}

// StartChat opens a session, optionally seeded with prior history.
func (m *GenerativeModel) StartChat(history ...*Content) *ChatSession {
	return &ChatSession{
		ID:      uuid.NewString(),
		History: history,
		m:       m,
	}
}

// SendMessage sends one user turn and records both it and the model's reply
// in the history. The history is left untouched when the request fails.
func (cs *ChatSession) SendMessage(ctx context.Context, parts ...Part) (*GenerateContentResponse, error) {
	user := &Content{Role: "user", Parts: parts}
	resp, err := cs.m.generate(ctx, append(cs.History[:len(cs.History):len(cs.History)], user))
	if err != nil {
		return nil, err
	}
	cs.m.c.log.DebugContext(ctx, "chat turn", "session", cs.ID, "candidates", len(resp.Candidates))
	cs.record(user, resp)
	return resp, nil
}

// SendMessageStream sends one user turn and streams the reply. The turn is
// recorded in the history once the stream is read to io.EOF; an abandoned or
// failed stream records nothing.
func (cs *ChatSession) SendMessageStream(ctx context.Context, parts ...Part) (*Stream, error) {
	user := &Content{Role: "user", Parts: parts}
	stream, err := cs.m.streamGenerate(ctx, append(cs.History[:len(cs.History):len(cs.History)], user))
	if err != nil {
		return nil, err
	}
	stream.onDone = func(merged *GenerateContentResponse) {
		cs.m.c.log.DebugContext(ctx, "chat stream turn", "session", cs.ID)
		cs.record(user, merged)
	}
	return stream, nil
}

func (cs *ChatSession) record(user *Content, resp *GenerateContentResponse) {
	cs.History = append(cs.History, user)
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return
	}
	reply := resp.Candidates[0].Content
	if reply.Role == "" {
		reply.Role = "model"
	}
	cs.History = append(cs.History, reply)
}

// mergeResponse folds a streamed chunk into the accumulated response.
// Candidates match by index; text keeps flowing into the same part, and the
// latest chunk wins for scalar metadata.
func mergeResponse(dst, chunk *GenerateContentResponse) {
	for _, c := range chunk.Candidates {
		if existing := candidateByIndex(dst.Candidates, c.Index); existing != nil {
			mergeCandidate(existing, c)
			continue
		}
		copied := *c
		if c.Content != nil {
			content := *c.Content
			content.Parts = appendParts(nil, c.Content.Parts...)
			copied.Content = &content
		}
		dst.Candidates = append(dst.Candidates, &copied)
	}
	if chunk.PromptFeedback != nil {
		dst.PromptFeedback = chunk.PromptFeedback
	}
	if chunk.UsageMetadata != nil {
		dst.UsageMetadata = chunk.UsageMetadata
	}
}

func candidateByIndex(candidates []*Candidate, index int32) *Candidate {
	for _, c := range candidates {
		if c.Index == index {
			return c
		}
	}
	return nil
}

func mergeCandidate(dst, src *Candidate) {
	if src.Content != nil {
		if dst.Content == nil {
			dst.Content = &Content{Role: src.Content.Role}
		}
		if dst.Content.Role == "" {
			dst.Content.Role = src.Content.Role
		}
		dst.Content.Parts = appendParts(dst.Content.Parts, src.Content.Parts...)
	}
	if src.FinishReason != "" {
		dst.FinishReason = src.FinishReason
	}
	if len(src.SafetyRatings) > 0 {
		dst.SafetyRatings = src.SafetyRatings
	}
	if src.CitationMetadata != nil {
		if dst.CitationMetadata == nil {
			dst.CitationMetadata = &CitationMetadata{}
		}
		dst.CitationMetadata.CitationSources = append(
			dst.CitationMetadata.CitationSources, src.CitationMetadata.CitationSources...)
	}
	if src.TokenCount != 0 {
		dst.TokenCount = src.TokenCount
	}
}

// appendParts appends parts, coalescing a text part into a preceding text
// part so a streamed sentence ends up as one part instead of one per chunk.
func appendParts(dst []Part, parts ...Part) []Part {
	for _, p := range parts {
		if p.isText() && len(dst) > 0 && dst[len(dst)-1].isText() {
			dst[len(dst)-1].Text += p.Text
			continue
		}
		dst = append(dst, p)
	}
	return dst
}
