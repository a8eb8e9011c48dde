package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mailagent/models"
	"mailagent/storage"
	"mailagent/utils"
)

// EmailHandler serves the stored-email surface: listing, fetching,
// read flags and the mock send endpoints.
type EmailHandler struct {
	store *storage.Store
}

// NewEmailHandler creates a new email handler
func NewEmailHandler(store *storage.Store) *EmailHandler {
	return &EmailHandler{store: store}
}

// emailView is an email merged with its classification, the shape the
// inbox list renders from.
type emailView struct {
	*models.Email
	Category string `json:"category,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// HandleList returns all emails, newest first, with optional
// filtering: ?filter=unread, ?filter=urgent, or a category name.
func (h *EmailHandler) HandleList(c *fiber.Ctx) error {
	emails, err := h.store.ListEmails()
	if err != nil {
		return utils.InternalServerError("Failed to list emails", err)
	}

	analyses, err := h.store.ListAnalyses()
	if err != nil {
		return utils.InternalServerError("Failed to load analyses", err)
	}

	filter := strings.ToLower(c.Query("filter"))
	views := []emailView{}
	for _, email := range emails {
		view := emailView{Email: email}
		if analysis, ok := analyses[email.ID]; ok && analysis.Classification != nil {
			view.Category = string(analysis.Classification.PrimaryCategory)
			view.Priority = string(analysis.Classification.Priority)
		}

		if !matchesFilter(view, filter) {
			continue
		}
		views = append(views, view)
	}

	return c.JSON(fiber.Map{"emails": views})
}

// matchesFilter applies the list filter to one email view.
func matchesFilter(view emailView, filter string) bool {
	switch filter {
	case "":
		return true
	case "unread":
		return !view.IsRead
	case "urgent":
		return view.Priority == string(models.PriorityCritical) || view.Priority == string(models.PriorityHigh)
	default:
		return strings.EqualFold(view.Category, filter)
	}
}

// HandleGet returns one email with its analysis when present.
func (h *EmailHandler) HandleGet(c *fiber.Ctx) error {
	id := c.Params("id")

	email, err := h.store.GetEmail(id)
	if err != nil {
		return utils.NotFoundError("Email not found", err)
	}

	analysis, err := h.store.GetAnalysis(id)
	if err != nil {
		return utils.InternalServerError("Failed to load analysis", err)
	}

	response := fiber.Map{"email": email}
	if analysis != nil {
		response["analysis"] = analysis
	}
	return c.JSON(response)
}

// HandleMarkRead flips the read flag on an email.
func (h *EmailHandler) HandleMarkRead(c *fiber.Ctx) error {
	id := c.Params("id")

	email, err := h.store.GetEmail(id)
	if err != nil {
		return utils.NotFoundError("Email not found", err)
	}

	email.IsRead = true
	if err := h.store.SaveEmail(email); err != nil {
		return utils.InternalServerError("Failed to save email", err)
	}

	return c.JSON(fiber.Map{"success": true, "email_id": id, "is_read": true})
}

// SendRequest is the body of the mock outbound compose endpoint.
type SendRequest struct {
	Subject    string   `json:"subject"`
	Recipients []string `json:"recipients"`
	Body       string   `json:"body"`
	ThreadID   string   `json:"thread_id"`
}

// HandleSend stores an outbound email. Actual delivery belongs to a
// mail transport this service does not integrate.
func (h *EmailHandler) HandleSend(c *fiber.Ctx) error {
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	email := &models.Email{
		ID:         uuid.New().String(),
		Subject:    req.Subject,
		Sender:     "you@company.com",
		SenderName: "You",
		Recipients: req.Recipients,
		Body:       utils.SanitizeBody(req.Body),
		ThreadID:   req.ThreadID,
		Timestamp:  time.Now(),
		IsRead:     true,
	}
	email.Normalize()

	if err := h.store.SaveEmail(email); err != nil {
		return utils.InternalServerError("Failed to save email", err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Email sent successfully",
		"email_id": email.ID,
		"sent_at":  time.Now().Format(time.RFC3339),
	})
}

// SendReplyRequest is the body of the mock reply-send endpoint.
type SendReplyRequest struct {
	EmailID string `json:"email_id"`
	Content string `json:"content"`
}

// HandleSendReply acknowledges a reply send and marks the original
// email as read.
func (h *EmailHandler) HandleSendReply(c *fiber.Ctx) error {
	var req SendReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequestError("Invalid request", err)
	}

	email, err := h.store.GetEmail(req.EmailID)
	if err != nil {
		return utils.NotFoundError("Email not found", err)
	}

	email.IsRead = true
	if err := h.store.SaveEmail(email); err != nil {
		return utils.InternalServerError("Failed to save email", err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Reply sent successfully",
		"email_id": req.EmailID,
		"sent_at":  time.Now().Format(time.RFC3339),
	})
}
