// Package agent implements the email processing pipeline: thread
// context compression, multi-label classification and reply
// generation, sequenced by the Agent orchestrator.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mailagent/llm"
	"mailagent/models"
	"mailagent/utils"
)

// ContextCompressor reduces an email thread into a structured digest.
// Digests are memoized per (thread id, message count): recompression
// happens only when the thread grows, not when an existing message's
// content could change.
type ContextCompressor struct {
	client llm.Client
	cache  *utils.MemoryCache
	ttl    time.Duration
}

// NewContextCompressor creates a compressor backed by the given client.
func NewContextCompressor(client llm.Client, ttl time.Duration) *ContextCompressor {
	return &ContextCompressor{
		client: client,
		cache:  utils.NewMemoryCache(),
		ttl:    ttl,
	}
}

// EmptyContext is the fixed digest for a thread with no messages.
func EmptyContext() *models.CompressedContext {
	return &models.CompressedContext{
		Summary:      "Empty thread",
		KeyPoints:    []string{},
		Decisions:    []string{},
		ActionItems:  []models.ActionItem{},
		Participants: []string{},
		Sentiment:    "neutral",
		UrgencyScore: 0,
	}
}

// Compress returns the digest for a thread, reusing a cached digest for
// the same thread size unless forceRefresh is set. An empty thread
// yields the fixed empty digest without a model call. A gateway failure
// yields a locally computed fallback digest, which is cached like any
// other result.
func (c *ContextCompressor) Compress(ctx context.Context, thread *models.EmailThread, forceRefresh bool) *models.CompressedContext {
	cacheKey := fmt.Sprintf("%s_%d", thread.ID, thread.MessageCount())

	if !forceRefresh {
		if cached, ok := c.cache.Get(cacheKey); ok {
			if digest, ok := cached.(*models.CompressedContext); ok {
				return digest
			}
		}
	}

	if thread.MessageCount() == 0 {
		return EmptyContext()
	}

	prompt := c.buildPrompt(thread)

	result, err := c.client.Complete(ctx, prompt)
	if err != nil {
		utils.Log.WithField("thread", thread.ID).Warn("Compression failed, using fallback: %v", err)
		fallback := c.fallbackContext(thread, err)
		c.cache.Set(cacheKey, fallback, c.ttl)
		return fallback
	}

	digest := &models.CompressedContext{
		Summary:      stringField(result, "summary", ""),
		KeyPoints:    stringListField(result, "key_points"),
		Decisions:    stringListField(result, "decisions"),
		ActionItems:  actionItemsField(result, "action_items"),
		Participants: stringListField(result, "participants"),
		Sentiment:    stringField(result, "sentiment", "neutral"),
		UrgencyScore: floatField(result, "urgency_score", 0),
	}

	c.cache.Set(cacheKey, digest, c.ttl)
	return digest
}

// buildPrompt renders every message into a per-message block in thread
// order, followed by the extraction instruction.
func (c *ContextCompressor) buildPrompt(thread *models.EmailThread) string {
	var content strings.Builder
	for i, email := range thread.Messages {
		fmt.Fprintf(&content, "--- Email %d ---\n", i+1)
		fmt.Fprintf(&content, "From: %s\n", email.Sender)
		fmt.Fprintf(&content, "Subject: %s\n", email.Subject)
		fmt.Fprintf(&content, "Date: %s\n", email.Timestamp.Format("2006-01-02 15:04"))
		fmt.Fprintf(&content, "Body: %s\n\n", email.Body)
	}

	return fmt.Sprintf(`Analyze this email thread and extract structured information.

THREAD CONTENT:
%s
Respond in this exact JSON format:
{
    "summary": "2-3 sentence overview of the entire conversation",
    "key_points": ["point 1", "point 2", "point 3"],
    "decisions": ["decision 1", "decision 2"],
    "action_items": [
        {"action": "what needs to be done", "owner": "who should do it", "deadline": "when or null"}
    ],
    "participants": ["person1", "person2"],
    "sentiment": "positive|negative|neutral|urgent",
    "urgency_score": 0.0-1.0
}`, content.String())
}

// fallbackContext is the locally computed digest used when the model is
// unavailable. Participants are the distinct senders in the thread.
func (c *ContextCompressor) fallbackContext(thread *models.EmailThread, err error) *models.CompressedContext {
	return &models.CompressedContext{
		Summary:      fmt.Sprintf("Thread with %d emails. Error in compression: %v", thread.MessageCount(), err),
		KeyPoints:    []string{},
		Decisions:    []string{},
		ActionItems:  []models.ActionItem{},
		Participants: thread.Senders(),
		Sentiment:    "unknown",
		UrgencyScore: 0.5,
	}
}
