package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailagent/models"
)

func TestProcessEmailFullPipeline(t *testing.T) {
	client := &fakeClient{responses: []map[string]interface{}{
		// compression
		{
			"summary":       "Timeline discussion for Project Alpha.",
			"key_points":    []interface{}{"launch at risk"},
			"action_items":  []interface{}{map[string]interface{}{"action": "schedule review meeting", "owner": "you"}},
			"sentiment":     "neutral",
			"urgency_score": 0.3,
		},
		// classification
		{
			"primary_category": "Work",
			"priority":         "medium",
			"priority_score":   0.5,
			"confidence":       0.85,
			"reasoning":        "project planning",
		},
		// reply
		{
			"content": "Happy to meet this week.",
			"tone":    "professional",
		},
	}}
	ag := New(client, time.Hour)

	email := &models.Email{
		ID:       "email-001",
		Subject:  "Project Alpha Launch - Timeline Discussion",
		Sender:   "sarah.chen@company.com",
		Body:     "Can we schedule a meeting this week?",
		ThreadID: "thread-001",
	}

	result, err := ag.ProcessEmail(context.Background(), email, "professional")
	require.NoError(t, err)

	assert.Equal(t, "email-001", result.EmailID)
	assert.Equal(t, "thread-001", result.ThreadID)
	assert.Equal(t, "Timeline discussion for Project Alpha.", result.Context.Summary)
	assert.Equal(t, models.CategoryWork, result.Classification.PrimaryCategory)
	assert.Equal(t, "Happy to meet this week.", result.Reply.Content)
	assert.Equal(t, "Follow-up required:\n- schedule review meeting", result.FollowUpReminder)
	assert.Equal(t, 1, result.Metadata.EmailsInThread)
	assert.Equal(t, "Project Alpha Launch - Timeline Discussion", result.Metadata.ThreadSubject)
	assert.False(t, result.Metadata.ProcessedAt.IsZero())
	assert.Equal(t, 3, client.callCount())
}

func TestProcessEmailGatewayDownDegradesGracefully(t *testing.T) {
	client := &fakeClient{err: errors.New("gateway unavailable")}
	ag := New(client, time.Hour)

	email := &models.Email{
		ID:      "email-003",
		Subject: "URGENT: Critical bug in production",
		Sender:  "dev-team@company.com",
		Body:    "This needs immediate attention. Please prioritize this fix ASAP.",
	}

	result, err := ag.ProcessEmail(context.Background(), email, "professional")
	require.NoError(t, err)

	// Every stage degrades to its documented fallback shape
	assert.Contains(t, result.Context.Summary, "Error in compression")
	assert.Equal(t, "unknown", result.Context.Sentiment)

	priority := result.Classification.Priority
	assert.True(t, priority == models.PriorityHigh || priority == models.PriorityCritical,
		"expected high or critical, got %s", priority)
	assert.Equal(t, models.CategoryOther, result.Classification.PrimaryCategory)

	assert.Equal(t, "Thank you for your email regarding 'URGENT: Critical bug in production'. I will review and respond shortly.", result.Reply.Content)
	assert.Equal(t, "", result.FollowUpReminder)
}

func TestProcessEmailUsesOwnIDWhenThreadIDAbsent(t *testing.T) {
	ag := New(&fakeClient{}, time.Hour)

	email := &models.Email{ID: "solo-1", Subject: "Hello", Sender: "a@example.com", Body: "Hi"}
	result, err := ag.ProcessEmail(context.Background(), email, "")
	require.NoError(t, err)

	assert.Equal(t, "solo-1", result.ThreadID)
	_, ok := ag.Thread("solo-1")
	assert.True(t, ok)
}

func TestProcessEmailInputFailures(t *testing.T) {
	ag := New(&fakeClient{}, time.Hour)

	_, err := ag.ProcessEmail(context.Background(), nil, "")
	var perr *ProcessingError
	require.ErrorAs(t, err, &perr)

	_, err = ag.ProcessEmail(context.Background(), &models.Email{Sender: "a@example.com"}, "")
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, models.ErrMissingID)

	_, err = ag.ProcessEmail(context.Background(), &models.Email{ID: "x"}, "")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "x", perr.EmailID)
	assert.ErrorIs(t, err, models.ErrMissingSender)
}

func TestBatchProcessContinuesPastFailures(t *testing.T) {
	ag := New(&fakeClient{err: errors.New("down")}, time.Hour)

	emails := []*models.Email{
		{ID: "ok-1", Subject: "First", Sender: "a@example.com", Body: "one"},
		{ID: "bad-1", Subject: "No sender"},
		{ID: "ok-2", Subject: "Second", Sender: "b@example.com", Body: "two"},
	}

	results := ag.BatchProcess(context.Background(), emails, "professional")
	require.Len(t, results, 3)

	assert.NotNil(t, results[0].Result)
	assert.Empty(t, results[0].Error)

	assert.Nil(t, results[1].Result)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, "bad-1", results[1].EmailID)

	assert.NotNil(t, results[2].Result)
}

func TestThreadSummaryAfterThreeMessages(t *testing.T) {
	ag := New(&fakeClient{err: errors.New("down")}, time.Hour)

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	emails := []*models.Email{
		{ID: "m1", Subject: "Kickoff", Sender: "sarah@company.com", Recipients: []string{"you@company.com"}, Body: "one", ThreadID: "T1", Timestamp: base},
		{ID: "m2", Sender: "you@company.com", Recipients: []string{"sarah@company.com"}, Body: "two", ThreadID: "T1", Timestamp: base.Add(time.Hour)},
		{ID: "m3", Sender: "mark@company.com", Recipients: []string{"you@company.com"}, Body: "three", ThreadID: "T1", Timestamp: base.Add(2 * time.Hour)},
	}
	for _, email := range emails {
		_, err := ag.ProcessEmail(context.Background(), email, "")
		require.NoError(t, err)
	}

	summary, ok := ag.ThreadSummary(context.Background(), "T1")
	require.True(t, ok)

	assert.Equal(t, 3, summary.EmailCount)
	assert.Equal(t, "Kickoff", summary.Subject)
	assert.Equal(t, []string{"sarah@company.com", "you@company.com", "mark@company.com"}, summary.Participants)
	assert.False(t, summary.LastUpdated.IsZero())

	_, ok = ag.ThreadSummary(context.Background(), "missing")
	assert.False(t, ok)
}

func TestGetOrCreateThreadReturnsSameInstance(t *testing.T) {
	ag := New(&fakeClient{}, time.Hour)

	a := ag.GetOrCreateThread("t1", "Subject")
	b := ag.GetOrCreateThread("t1", "Other subject")

	assert.Same(t, a, b)
	assert.Equal(t, "Subject", b.Subject)
}
