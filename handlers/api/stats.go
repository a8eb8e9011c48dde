package api

import (
	"github.com/gofiber/fiber/v2"

	"mailagent/models"
	"mailagent/storage"
	"mailagent/utils"
)

// StatsHandler serves inbox-level statistics.
type StatsHandler struct {
	store *storage.Store
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(store *storage.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// HandleStats returns totals, the unread and urgent counts, and a
// category histogram over everything processed so far.
func (h *StatsHandler) HandleStats(c *fiber.Ctx) error {
	emails, err := h.store.ListEmails()
	if err != nil {
		return utils.InternalServerError("Failed to list emails", err)
	}

	analyses, err := h.store.ListAnalyses()
	if err != nil {
		return utils.InternalServerError("Failed to load analyses", err)
	}

	unread := 0
	for _, email := range emails {
		if !email.IsRead {
			unread++
		}
	}

	urgent := 0
	categories := make(map[string]int)
	for _, analysis := range analyses {
		if analysis.Classification == nil {
			continue
		}
		switch analysis.Classification.Priority {
		case models.PriorityCritical, models.PriorityHigh:
			urgent++
		}
		categories[string(analysis.Classification.PrimaryCategory)]++
	}

	return c.JSON(fiber.Map{
		"total":      len(emails),
		"unread":     unread,
		"urgent":     urgent,
		"processed":  len(analyses),
		"categories": categories,
	})
}
