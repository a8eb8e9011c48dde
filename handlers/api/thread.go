package api

import (
	"github.com/gofiber/fiber/v2"

	"mailagent/agent"
	"mailagent/utils"
)

// ThreadHandler serves thread details and summaries.
type ThreadHandler struct {
	agent *agent.Agent
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(ag *agent.Agent) *ThreadHandler {
	return &ThreadHandler{agent: ag}
}

// HandleThread returns the full detail of one thread.
func (h *ThreadHandler) HandleThread(c *fiber.Ctx) error {
	id := c.Params("id")

	thread, ok := h.agent.Thread(id)
	if !ok {
		return utils.NotFoundError("Thread not found", nil)
	}

	return c.JSON(fiber.Map{
		"thread_id":    thread.ID,
		"subject":      thread.Subject,
		"emails":       thread.Messages,
		"participants": thread.Participants,
		"last_updated": thread.LastUpdated,
	})
}

// HandleSummary returns the compact digest-backed projection of one
// thread.
func (h *ThreadHandler) HandleSummary(c *fiber.Ctx) error {
	id := c.Params("id")

	summary, ok := h.agent.ThreadSummary(c.Context(), id)
	if !ok {
		return utils.NotFoundError("Thread not found", nil)
	}

	return c.JSON(summary)
}
