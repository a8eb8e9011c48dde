package agent

import (
	"context"
	"fmt"
	"strings"

	"mailagent/llm"
	"mailagent/models"
	"mailagent/utils"
)

// urgentKeywords each add 0.2 to the deterministic urgency score when
// found in the lowercased subject+body.
var urgentKeywords = []string{
	"urgent", "asap", "immediately", "deadline", "emergency",
	"critical", "action required", "please respond", "by eod",
	"by end of day", "by tomorrow", "expired", "overdue",
}

// subjectKeywords are the narrower high-signal terms checked against
// the subject alone.
var subjectKeywords = []string{"urgent", "important", "action required"}

// SmartClassifier blends a model-derived categorical judgment with a
// deterministic keyword urgency scan into a final category and
// priority.
type SmartClassifier struct {
	client llm.Client
}

// NewSmartClassifier creates a classifier backed by the given client.
func NewSmartClassifier(client llm.Client) *SmartClassifier {
	return &SmartClassifier{client: client}
}

// Classify categorizes an email against its thread digest. The final
// priority score is the mean of the model's priority score and the
// deterministic urgency score; the reasoning string keeps both halves
// auditable. A gateway failure yields a rule-only classification.
func (s *SmartClassifier) Classify(ctx context.Context, email *models.Email, digest *models.CompressedContext) *models.ClassificationResult {
	urgencyScore, signals := s.detectUrgencySignals(email, digest)

	result, err := s.client.Complete(ctx, s.buildPrompt(email, digest))
	if err != nil {
		utils.Log.WithField("email", email.ID).Warn("Classification failed, using fallback: %v", err)
		return s.fallbackClassification(email, digest, err)
	}

	primary := models.ParseCategory(stringField(result, "primary_category", "Other"))

	secondary := []models.Category{}
	for _, name := range stringListField(result, "secondary_categories") {
		c := models.ParseCategory(name)
		if c != primary {
			secondary = append(secondary, c)
		}
	}

	modelScore := floatField(result, "priority_score", 0.5)
	blended := (modelScore + urgencyScore) / 2

	return &models.ClassificationResult{
		PrimaryCategory:     primary,
		SecondaryCategories: secondary,
		Priority:            models.PriorityFromScore(blended),
		PriorityScore:       blended,
		Confidence:          floatField(result, "confidence", 0.8),
		Reasoning:           fmt.Sprintf("%s. Urgency signals: %s", stringField(result, "reasoning", ""), strings.Join(signals, ", ")),
	}
}

// detectUrgencySignals runs the deterministic urgency scan and returns
// the score together with the names of the matched signals.
func (s *SmartClassifier) detectUrgencySignals(email *models.Email, digest *models.CompressedContext) (float64, []string) {
	text := strings.ToLower(email.Subject + " " + email.Body)
	score := 0.0
	signals := []string{}

	for _, keyword := range urgentKeywords {
		if strings.Contains(text, keyword) {
			score += 0.2
			signals = append(signals, keyword)
		}
	}

	// Thread-level urgency bleeds into message-level urgency.
	if digest.UrgencyScore > 0.7 {
		score += 0.3
		signals = append(signals, "high_thread_urgency")
	}

	subject := strings.ToLower(email.Subject)
	for _, keyword := range subjectKeywords {
		if strings.Contains(subject, keyword) {
			score += 0.25
			signals = append(signals, "urgent_subject")
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, signals
}

func (s *SmartClassifier) buildPrompt(email *models.Email, digest *models.CompressedContext) string {
	return fmt.Sprintf(`Classify this email into categories and determine priority.

EMAIL:
Subject: %s
From: %s
Body: %s

THREAD CONTEXT:
Summary: %s
Sentiment: %s

Categories: Work, Personal, Finance, Promotions, Support, Urgent, Meeting, Follow-up, Other

Respond in this exact JSON format:
{
    "primary_category": "category name",
    "secondary_categories": ["category1", "category2"],
    "priority": "critical|high|medium|low",
    "priority_score": 0.0-1.0,
    "confidence": 0.0-1.0,
    "reasoning": "brief explanation"
}`, email.Subject, email.Sender, utils.Truncate(email.Body, 1000), digest.Summary, digest.Sentiment)
}

// fallbackClassification is the rule-only result used when the model is
// unavailable: High when an urgency keyword matched or the thread is
// urgent, otherwise Medium, and always category Other.
func (s *SmartClassifier) fallbackClassification(email *models.Email, digest *models.CompressedContext, err error) *models.ClassificationResult {
	text := strings.ToLower(email.Subject + " " + email.Body)

	priority := models.PriorityMedium
	if digest.UrgencyScore > 0.6 {
		priority = models.PriorityHigh
	}
	for _, keyword := range urgentKeywords {
		if strings.Contains(text, keyword) {
			priority = models.PriorityHigh
			break
		}
	}

	return &models.ClassificationResult{
		PrimaryCategory:     models.CategoryOther,
		SecondaryCategories: []models.Category{},
		Priority:            priority,
		PriorityScore:       0.5,
		Confidence:          0.5,
		Reasoning:           fmt.Sprintf("Fallback classification due to error: %v", err),
	}
}
