package models

import (
	"strings"
	"time"
)

// Priority is the closed set of priority levels.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// PriorityFromScore converts a blended priority score to a level.
// Boundary values resolve to the higher tier.
func PriorityFromScore(score float64) Priority {
	switch {
	case score >= 0.8:
		return PriorityCritical
	case score >= 0.6:
		return PriorityHigh
	case score >= 0.3:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Category is the closed set of email categories.
type Category string

const (
	CategoryWork       Category = "Work"
	CategoryPersonal   Category = "Personal"
	CategoryFinance    Category = "Finance"
	CategoryPromotions Category = "Promotions"
	CategorySupport    Category = "Support"
	CategoryUrgent     Category = "Urgent"
	CategoryMeeting    Category = "Meeting"
	CategoryFollowUp   Category = "Follow-up"
	CategoryOther      Category = "Other"
)

var categoryNames = map[string]Category{
	"work":       CategoryWork,
	"personal":   CategoryPersonal,
	"finance":    CategoryFinance,
	"promotions": CategoryPromotions,
	"support":    CategorySupport,
	"urgent":     CategoryUrgent,
	"meeting":    CategoryMeeting,
	"follow_up":  CategoryFollowUp,
	"other":      CategoryOther,
}

// ParseCategory maps an arbitrary category string onto the closed set.
// Matching is case-insensitive and treats spaces and hyphens as
// interchangeable separators. Anything unrecognized maps to Other.
func ParseCategory(name string) Category {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}
	if c, ok := categoryNames[key]; ok {
		return c
	}
	return CategoryOther
}

// ActionItem is a single item of follow-up work extracted from a thread.
type ActionItem struct {
	Action   string `json:"action"`
	Owner    string `json:"owner"`
	Deadline string `json:"deadline,omitempty"`
}

// CompressedContext is the structured digest of an email thread.
type CompressedContext struct {
	Summary      string       `json:"summary"`
	KeyPoints    []string     `json:"key_points"`
	Decisions    []string     `json:"decisions"`
	ActionItems  []ActionItem `json:"action_items"`
	Participants []string     `json:"participants"`
	Sentiment    string       `json:"sentiment"`
	UrgencyScore float64      `json:"urgency_score"`
}

// ClassificationResult is a multi-label classification with priority.
type ClassificationResult struct {
	PrimaryCategory     Category   `json:"primary_category"`
	SecondaryCategories []Category `json:"secondary_categories"`
	Priority            Priority   `json:"priority"`
	PriorityScore       float64    `json:"priority_score"`
	Confidence          float64    `json:"confidence"`
	Reasoning           string     `json:"reasoning"`
}

// ReplySuggestion is a generated reply draft with metadata.
type ReplySuggestion struct {
	Content               string   `json:"content"`
	Tone                  string   `json:"tone"`
	EstimatedResponseTime string   `json:"estimated_response_time"`
	RequiredActions       []string `json:"required_actions"`
	SuggestedAttachments  []string `json:"suggested_attachments"`
}

// ProcessMetadata is bookkeeping attached to a pipeline result.
type ProcessMetadata struct {
	EmailsInThread int       `json:"emails_in_thread"`
	ThreadSubject  string    `json:"thread_subject"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// ProcessResult bundles the output of the full processing pipeline for
// one email.
type ProcessResult struct {
	EmailID          string                `json:"email_id"`
	ThreadID         string                `json:"thread_id"`
	Context          *CompressedContext    `json:"context"`
	Classification   *ClassificationResult `json:"classification"`
	Reply            *ReplySuggestion      `json:"reply"`
	FollowUpReminder string                `json:"follow_up_reminder"`
	Metadata         ProcessMetadata       `json:"processing_metadata"`
}

// BatchResult is the outcome of processing one email within a batch.
// Exactly one of Result and Error is set.
type BatchResult struct {
	EmailID string         `json:"email_id"`
	Result  *ProcessResult `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ThreadSummary is the compact projection of a thread returned to the
// request layer.
type ThreadSummary struct {
	ThreadID     string       `json:"thread_id"`
	Subject      string       `json:"subject"`
	EmailCount   int          `json:"email_count"`
	Participants []string     `json:"participants"`
	Summary      string       `json:"summary"`
	ActionItems  []ActionItem `json:"action_items"`
	LastUpdated  time.Time    `json:"last_updated"`
}
