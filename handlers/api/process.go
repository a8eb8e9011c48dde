package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mailagent/agent"
	"mailagent/models"
	"mailagent/storage"
	"mailagent/utils"
)

// ProcessHandler runs the analysis pipeline on submitted emails.
type ProcessHandler struct {
	store    *storage.Store
	agent    *agent.Agent
	notifier *NotificationHandler
}

// NewProcessHandler creates a new process handler
func NewProcessHandler(store *storage.Store, ag *agent.Agent, notifier *NotificationHandler) *ProcessHandler {
	return &ProcessHandler{store: store, agent: ag, notifier: notifier}
}

// ProcessRequest is the body of the process endpoint.
type ProcessRequest struct {
	Email models.Email `json:"email"`
	Tone  string       `json:"tone"`
}

// HandleProcess runs the full pipeline on one email and persists both
// the email and its analysis.
func (h *ProcessHandler) HandleProcess(c *fiber.Ctx) error {
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	email := req.Email
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	email.Body = utils.SanitizeBody(email.Body)
	email.Normalize()

	if err := h.store.SaveEmail(&email); err != nil {
		return utils.InternalServerError("Failed to save email", err)
	}

	result, err := h.agent.ProcessEmail(c.Context(), &email, req.Tone)
	if err != nil {
		var perr *agent.ProcessingError
		if errors.As(err, &perr) && (errors.Is(perr.Err, models.ErrMissingID) || errors.Is(perr.Err, models.ErrMissingSender)) {
			return utils.UnprocessableError("Email cannot be processed", err)
		}
		return utils.InternalServerError("Processing failed", err)
	}

	h.persistResult(result)

	return c.JSON(fiber.Map{
		"success":             true,
		"email_id":            result.EmailID,
		"thread_id":           result.ThreadID,
		"context":             result.Context,
		"classification":      result.Classification,
		"reply":               result.Reply,
		"follow_up_reminder":  result.FollowUpReminder,
		"processing_metadata": result.Metadata,
	})
}

// BatchRequest is the body of the batch process endpoint.
type BatchRequest struct {
	Emails []models.Email `json:"emails"`
	Tone   string         `json:"tone"`
}

// HandleBatch processes a sequence of emails independently; one
// failure does not abort the rest.
func (h *ProcessHandler) HandleBatch(c *fiber.Ctx) error {
	var req BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	emails := make([]*models.Email, 0, len(req.Emails))
	for i := range req.Emails {
		email := &req.Emails[i]
		if email.ID == "" {
			email.ID = uuid.New().String()
		}
		email.Body = utils.SanitizeBody(email.Body)
		email.Normalize()

		if err := h.store.SaveEmail(email); err != nil {
			return utils.InternalServerError("Failed to save email", err)
		}
		emails = append(emails, email)
	}

	results := h.agent.BatchProcess(c.Context(), emails, req.Tone)
	for _, item := range results {
		if item.Result != nil {
			h.persistResult(item.Result)
		}
	}

	return c.JSON(fiber.Map{"results": results})
}

// ReplyRequest is the body of the reply generation endpoint.
type ReplyRequest struct {
	EmailID string `json:"email_id"`
	Tone    string `json:"tone"`
}

// HandleReply drafts a reply for a stored email in the requested tone,
// running the pipeline first when the email was never analyzed.
func (h *ProcessHandler) HandleReply(c *fiber.Ctx) error {
	var req ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	email, err := h.store.GetEmail(req.EmailID)
	if err != nil {
		return utils.NotFoundError("Email not found", err)
	}

	analysis, err := h.store.GetAnalysis(req.EmailID)
	if err != nil {
		return utils.InternalServerError("Failed to load analysis", err)
	}
	if analysis == nil {
		result, perr := h.agent.ProcessEmail(c.Context(), email, req.Tone)
		if perr != nil {
			return utils.InternalServerError("Processing failed", perr)
		}
		h.persistResult(result)
	}

	reply := h.agent.GenerateReply(c.Context(), email, req.Tone)
	return c.JSON(reply)
}

// persistResult mirrors a pipeline result and its thread to storage and
// notifies subscribers. Persistence failures are logged, not surfaced:
// the caller already has the result.
func (h *ProcessHandler) persistResult(result *models.ProcessResult) {
	if err := h.store.SaveAnalysis(result); err != nil {
		utils.Log.WithField("email", result.EmailID).Error("Failed to save analysis: %v", err)
	}

	if thread, ok := h.agent.Thread(result.ThreadID); ok {
		if err := h.store.SaveThread(thread); err != nil {
			utils.Log.WithField("thread", result.ThreadID).Error("Failed to save thread: %v", err)
		}
	}

	if h.notifier != nil && result.Classification != nil {
		h.notifier.Broadcast(Notification{
			Type:    "email_processed",
			Message: "Email analysis completed",
			Data: map[string]interface{}{
				"email_id": result.EmailID,
				"category": result.Classification.PrimaryCategory,
				"priority": result.Classification.Priority,
			},
		})
	}
}
