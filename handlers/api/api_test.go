package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailagent/agent"
	"mailagent/models"
	"mailagent/storage"
	"mailagent/utils"
)

// stubClient plays back canned model responses; the last one repeats.
// With err set every call fails, exercising the fallback paths.
type stubClient struct {
	mu        sync.Mutex
	calls     int
	responses []map[string]interface{}
	err       error
}

func (s *stubClient) Complete(_ context.Context, _ string) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return map[string]interface{}{}, nil
	}
	response := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return response, nil
}

type testEnv struct {
	app   *fiber.App
	store *storage.Store
	agent *agent.Agent
}

func newTestEnv(t *testing.T, client *stubClient) *testEnv {
	t.Helper()

	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ag := agent.New(client, time.Hour)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if appErr, ok := err.(*utils.AppError); ok {
				code = appErr.Code
			} else if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	notifier := NewNotificationHandler()
	emailHandler := NewEmailHandler(store)
	processHandler := NewProcessHandler(store, ag, notifier)
	threadHandler := NewThreadHandler(ag)
	statsHandler := NewStatsHandler(store)

	routes := app.Group("/api")
	routes.Get("/emails", emailHandler.HandleList)
	routes.Get("/emails/:id", emailHandler.HandleGet)
	routes.Post("/emails/:id/read", emailHandler.HandleMarkRead)
	routes.Post("/process", processHandler.HandleProcess)
	routes.Post("/process/batch", processHandler.HandleBatch)
	routes.Post("/reply", processHandler.HandleReply)
	routes.Post("/reply/send", emailHandler.HandleSendReply)
	routes.Post("/send", emailHandler.HandleSend)
	routes.Get("/threads/:id", threadHandler.HandleThread)
	routes.Get("/threads/:id/summary", threadHandler.HandleSummary)
	routes.Get("/stats", statsHandler.HandleStats)

	return &testEnv{app: app, store: store, agent: ag}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	decoded := map[string]interface{}{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestProcessEndpoint(t *testing.T) {
	client := &stubClient{responses: []map[string]interface{}{
		{
			"summary":       "Bug report on the auth module",
			"key_points":    []interface{}{"logins failing"},
			"decisions":     []interface{}{},
			"action_items":  []interface{}{map[string]interface{}{"action": "fix auth bug", "owner": "you"}},
			"sentiment":     "negative",
			"urgency_score": 0.9,
		},
		{
			"primary_category":     "Work",
			"secondary_categories": []interface{}{"Urgent"},
			"priority_score":       0.9,
			"confidence":           0.95,
			"reasoning":            "Production outage",
		},
		{
			"content":                 "On it, fix incoming.",
			"tone":                    "professional",
			"estimated_response_time": "immediate",
			"required_actions":        []interface{}{"deploy fix"},
			"suggested_attachments":   []interface{}{},
		},
	}}
	env := newTestEnv(t, client)

	resp, body := env.request(t, fiber.MethodPost, "/api/process", map[string]interface{}{
		"email": map[string]interface{}{
			"id":        "e1",
			"subject":   "Auth module broken",
			"sender":    "dev@company.com",
			"body":      "Users cannot log in.",
			"thread_id": "t1",
		},
		"tone": "professional",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, true, body["success"])
	assert.Equal(t, "e1", body["email_id"])
	assert.Equal(t, "t1", body["thread_id"])

	classification := body["classification"].(map[string]interface{})
	assert.Equal(t, "Work", classification["primary_category"])

	reply := body["reply"].(map[string]interface{})
	assert.Equal(t, "On it, fix incoming.", reply["content"])

	assert.Equal(t, "Follow-up required:\n- fix auth bug", body["follow_up_reminder"])

	// Email and analysis are persisted.
	stored, err := env.store.GetEmail("e1")
	require.NoError(t, err)
	assert.Equal(t, "Auth module broken", stored.Subject)

	analysis, err := env.store.GetAnalysis("e1")
	require.NoError(t, err)
	require.NotNil(t, analysis)
	assert.Equal(t, models.CategoryWork, analysis.Classification.PrimaryCategory)
}

func TestProcessEndpointGatewayDown(t *testing.T) {
	client := &stubClient{err: fmt.Errorf("connection refused")}
	env := newTestEnv(t, client)

	resp, body := env.request(t, fiber.MethodPost, "/api/process", map[string]interface{}{
		"email": map[string]interface{}{
			"id":      "e1",
			"subject": "Status update",
			"sender":  "pm@company.com",
			"body":    "How is the release going?",
		},
	})

	// Dependency failure still yields a complete, usable result.
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	classification := body["classification"].(map[string]interface{})
	assert.Equal(t, "Other", classification["primary_category"])

	reply := body["reply"].(map[string]interface{})
	assert.Equal(t, "Thank you for your email regarding 'Status update'. I will review and respond shortly.", reply["content"])
}

func TestProcessEndpointValidation(t *testing.T) {
	env := newTestEnv(t, &stubClient{err: fmt.Errorf("down")})

	// No sender is a permanent input failure.
	resp, body := env.request(t, fiber.MethodPost, "/api/process", map[string]interface{}{
		"email": map[string]interface{}{"subject": "No sender"},
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body["error"], "cannot be processed")

	// Malformed body.
	req := httptest.NewRequest(fiber.MethodPost, "/api/process", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	raw, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, raw.StatusCode)
}

func TestBatchEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubClient{err: fmt.Errorf("down")})

	resp, body := env.request(t, fiber.MethodPost, "/api/process/batch", map[string]interface{}{
		"emails": []map[string]interface{}{
			{"id": "ok-1", "subject": "First", "sender": "a@example.com"},
			{"id": "bad-1", "subject": "No sender"},
			{"id": "ok-2", "subject": "Second", "sender": "b@example.com"},
		},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	results := body["results"].([]interface{})
	require.Len(t, results, 3)

	first := results[0].(map[string]interface{})
	assert.Equal(t, "ok-1", first["email_id"])
	assert.NotNil(t, first["result"])

	second := results[1].(map[string]interface{})
	assert.Equal(t, "bad-1", second["email_id"])
	assert.NotEmpty(t, second["error"])

	third := results[2].(map[string]interface{})
	assert.NotNil(t, third["result"])
}

func TestListEmailsFilter(t *testing.T) {
	env := newTestEnv(t, &stubClient{})

	require.NoError(t, env.store.SaveEmail(&models.Email{
		ID: "e1", Subject: "Unread one", Sender: "a@example.com",
		Timestamp: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, env.store.SaveEmail(&models.Email{
		ID: "e2", Subject: "Read one", Sender: "b@example.com", IsRead: true,
		Timestamp: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, env.store.SaveAnalysis(&models.ProcessResult{
		EmailID: "e2",
		Classification: &models.ClassificationResult{
			PrimaryCategory: models.CategoryWork,
			Priority:        models.PriorityHigh,
		},
	}))

	resp, body := env.request(t, fiber.MethodGet, "/api/emails", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	emails := body["emails"].([]interface{})
	require.Len(t, emails, 2)
	// Newest first.
	assert.Equal(t, "e2", emails[0].(map[string]interface{})["id"])

	_, body = env.request(t, fiber.MethodGet, "/api/emails?filter=unread", nil)
	emails = body["emails"].([]interface{})
	require.Len(t, emails, 1)
	assert.Equal(t, "e1", emails[0].(map[string]interface{})["id"])

	_, body = env.request(t, fiber.MethodGet, "/api/emails?filter=urgent", nil)
	emails = body["emails"].([]interface{})
	require.Len(t, emails, 1)
	assert.Equal(t, "e2", emails[0].(map[string]interface{})["id"])

	_, body = env.request(t, fiber.MethodGet, "/api/emails?filter=work", nil)
	emails = body["emails"].([]interface{})
	require.Len(t, emails, 1)

	_, body = env.request(t, fiber.MethodGet, "/api/emails?filter=finance", nil)
	assert.Empty(t, body["emails"])
}

func TestGetAndMarkRead(t *testing.T) {
	env := newTestEnv(t, &stubClient{})

	require.NoError(t, env.store.SaveEmail(&models.Email{
		ID: "e1", Subject: "Hello", Sender: "a@example.com",
	}))

	resp, body := env.request(t, fiber.MethodGet, "/api/emails/e1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	email := body["email"].(map[string]interface{})
	assert.Equal(t, "Hello", email["subject"])
	assert.Nil(t, body["analysis"])

	resp, _ = env.request(t, fiber.MethodGet, "/api/emails/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, body = env.request(t, fiber.MethodPost, "/api/emails/e1/read", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["is_read"])

	stored, err := env.store.GetEmail("e1")
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
}

func TestReplyEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubClient{err: fmt.Errorf("down")})

	require.NoError(t, env.store.SaveEmail(&models.Email{
		ID: "e1", Subject: "Budget question", Sender: "cfo@company.com", ThreadID: "t1",
	}))

	resp, body := env.request(t, fiber.MethodPost, "/api/reply", map[string]interface{}{
		"email_id": "e1",
		"tone":     "friendly",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Thank you for your email regarding 'Budget question'. I will review and respond shortly.", body["content"])

	// The detour through processing persisted an analysis.
	analysis, err := env.store.GetAnalysis("e1")
	require.NoError(t, err)
	assert.NotNil(t, analysis)

	resp, _ = env.request(t, fiber.MethodPost, "/api/reply", map[string]interface{}{
		"email_id": "missing",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestThreadEndpoints(t *testing.T) {
	env := newTestEnv(t, &stubClient{responses: []map[string]interface{}{
		{"summary": "Release planning", "urgency_score": 0.4},
	}})

	_, _ = env.request(t, fiber.MethodPost, "/api/process", map[string]interface{}{
		"email": map[string]interface{}{
			"id":        "e1",
			"subject":   "Release planning",
			"sender":    "pm@company.com",
			"body":      "Targeting Friday.",
			"thread_id": "t1",
		},
	})

	resp, body := env.request(t, fiber.MethodGet, "/api/threads/t1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "t1", body["thread_id"])
	assert.Equal(t, "Release planning", body["subject"])
	assert.Len(t, body["emails"].([]interface{}), 1)

	resp, body = env.request(t, fiber.MethodGet, "/api/threads/t1/summary", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["email_count"])
	assert.Equal(t, "Release planning", body["summary"])

	resp, _ = env.request(t, fiber.MethodGet, "/api/threads/missing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = env.request(t, fiber.MethodGet, "/api/threads/missing/summary", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubClient{})

	require.NoError(t, env.store.SaveEmail(&models.Email{ID: "e1", Sender: "a@example.com"}))
	require.NoError(t, env.store.SaveEmail(&models.Email{ID: "e2", Sender: "b@example.com", IsRead: true}))
	require.NoError(t, env.store.SaveAnalysis(&models.ProcessResult{
		EmailID: "e1",
		Classification: &models.ClassificationResult{
			PrimaryCategory: models.CategoryUrgent,
			Priority:        models.PriorityCritical,
		},
	}))

	resp, body := env.request(t, fiber.MethodGet, "/api/stats", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, float64(1), body["unread"])
	assert.Equal(t, float64(1), body["urgent"])
	assert.Equal(t, float64(1), body["processed"])
	categories := body["categories"].(map[string]interface{})
	assert.Equal(t, float64(1), categories["Urgent"])
}

func TestSendEndpoints(t *testing.T) {
	env := newTestEnv(t, &stubClient{})

	resp, body := env.request(t, fiber.MethodPost, "/api/send", map[string]interface{}{
		"subject":    "Re: numbers",
		"recipients": []string{"cfo@company.com"},
		"body":       "<p>Sending them over.</p>",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	sent, err := env.store.GetEmail(body["email_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "you@company.com", sent.Sender)
	assert.Equal(t, "Sending them over.", sent.Body)
	assert.True(t, sent.IsRead)

	require.NoError(t, env.store.SaveEmail(&models.Email{
		ID: "orig", Subject: "Original", Sender: "a@example.com",
	}))
	resp, body = env.request(t, fiber.MethodPost, "/api/reply/send", map[string]interface{}{
		"email_id": "orig",
		"content":  "Thanks, received.",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	orig, err := env.store.GetEmail("orig")
	require.NoError(t, err)
	assert.True(t, orig.IsRead)
}
