package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mailagent/llm"
	"mailagent/models"
	"mailagent/utils"
)

// DefaultTone is used when no tone (or an unknown tone) is requested.
const DefaultTone = "professional"

// tones maps each selectable tone to the style description injected
// into the generation request.
var tones = map[string]string{
	"professional": "Formal, respectful, clear",
	"friendly":     "Warm, approachable, conversational",
	"concise":      "Brief, to-the-point, efficient",
	"detailed":     "Comprehensive, thorough, explanatory",
}

// ReplyGenerator drafts tone-conditioned replies grounded in the thread
// digest and the classification.
type ReplyGenerator struct {
	client llm.Client
}

// NewReplyGenerator creates a reply generator backed by the given
// client.
func NewReplyGenerator(client llm.Client) *ReplyGenerator {
	return &ReplyGenerator{client: client}
}

// Tones returns the selectable tone names.
func Tones() []string {
	names := make([]string, 0, len(tones))
	for name := range tones {
		names = append(names, name)
	}
	return names
}

// GenerateReply drafts a reply to an email. The returned tone may
// differ from the requested one if the model reinterprets it. A
// gateway failure yields a fixed templated draft flagged for manual
// review; a raw dependency error is never surfaced as the draft.
func (g *ReplyGenerator) GenerateReply(ctx context.Context, email *models.Email, digest *models.CompressedContext, classification *models.ClassificationResult, tone string) *models.ReplySuggestion {
	toneDescription, ok := tones[tone]
	if !ok {
		tone = DefaultTone
		toneDescription = tones[DefaultTone]
	}

	result, err := g.client.Complete(ctx, g.buildPrompt(email, digest, classification, toneDescription))
	if err != nil {
		utils.Log.WithField("email", email.ID).Warn("Reply generation failed, using fallback: %v", err)
		return g.fallbackReply(email)
	}

	return &models.ReplySuggestion{
		Content:               stringField(result, "content", ""),
		Tone:                  stringField(result, "tone", tone),
		EstimatedResponseTime: stringField(result, "estimated_response_time", "5-10 minutes"),
		RequiredActions:       stringListField(result, "required_actions"),
		SuggestedAttachments:  stringListField(result, "suggested_attachments"),
	}
}

// FollowUpReminder renders the digest's action items as a bulleted
// reminder, or an empty string when there are none. It has no external
// dependency and cannot fail.
func (g *ReplyGenerator) FollowUpReminder(digest *models.CompressedContext) string {
	if len(digest.ActionItems) == 0 {
		return ""
	}

	var lines []string
	for _, item := range digest.ActionItems {
		action := item.Action
		if action == "" {
			action = "Unknown action"
		}
		lines = append(lines, "- "+action)
	}

	return "Follow-up required:\n" + strings.Join(lines, "\n")
}

func (g *ReplyGenerator) buildPrompt(email *models.Email, digest *models.CompressedContext, classification *models.ClassificationResult, toneDescription string) string {
	actionItems, _ := json.Marshal(digest.ActionItems)

	return fmt.Sprintf(`Generate a professional email reply based on context.

ORIGINAL EMAIL:
Subject: %s
From: %s
Body: %s

THREAD CONTEXT:
Summary: %s
Key Points: %s
Decisions: %s
Action Items: %s
Sentiment: %s

CLASSIFICATION:
Category: %s
Priority: %s
Reasoning: %s

TONE: %s

Generate a reply that:
1. Acknowledges the email appropriately
2. Addresses key points and action items
3. Matches the requested tone
4. Is concise but complete
5. Includes clear next steps if needed

Respond in this exact JSON format:
{
    "content": "the reply text",
    "tone": "detected tone",
    "estimated_response_time": "how long to respond",
    "required_actions": ["action1", "action2"],
    "suggested_attachments": ["attachment1", "attachment2"]
}`,
		email.Subject, email.Sender, email.Body,
		digest.Summary,
		strings.Join(digest.KeyPoints, ", "),
		strings.Join(digest.Decisions, ", "),
		string(actionItems),
		digest.Sentiment,
		classification.PrimaryCategory, classification.Priority, classification.Reasoning,
		toneDescription)
}

// fallbackReply is the fixed draft returned when the model is
// unavailable.
func (g *ReplyGenerator) fallbackReply(email *models.Email) *models.ReplySuggestion {
	return &models.ReplySuggestion{
		Content:               fmt.Sprintf("Thank you for your email regarding '%s'. I will review and respond shortly.", email.Subject),
		Tone:                  DefaultTone,
		EstimatedResponseTime: "unknown",
		RequiredActions:       []string{"manual review required"},
		SuggestedAttachments:  []string{},
	}
}
