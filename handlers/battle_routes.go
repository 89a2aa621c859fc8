// handlers/battle_routes.go
package handlers

import (
	"errors"
	"strconv"

	"habit-battle-system/middleware"
	"habit-battle-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupBattleRoutes(app *fiber.App, battleService *services.BattleService) {
	// 🔐 Secured routes — require user context (user_id, roles)
	// The gateway forwards paths like /api/v1/habit/s/battles -> /s/battles
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/battles/challenges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			OpponentID   string `json:"opponent_id"`
			DurationDays int    `json:"duration_days"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		battle, err := battleService.CreateChallenge(userID, req.OpponentID, req.DurationDays)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(battle)
	})

	// Static paths before /:id so fiber does not swallow them as params.
	secured.Get("/battles/current", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		battle, _, err := battleService.CurrentBattle(userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"battle": battle})
	})

	secured.Get("/battles/invites", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		invites, err := battleService.PendingInvites(userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"invites": invites})
	})

	secured.Get("/battles/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		battles, total, err := battleService.History(userID, page, size)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"battles": battles,
			"total":   total,
			"page":    page,
			"size":    size,
		})
	})

	secured.Post("/battles/challenges/:id/accept", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		battle, err := battleService.AcceptChallenge(c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(battle)
	})

	secured.Post("/battles/challenges/:id/decline", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		battle, err := battleService.DeclineChallenge(c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(battle)
	})

	secured.Get("/battles/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		battle, err := battleService.GetBattle(c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(battle)
	})

	secured.Get("/battles/:id/rounds", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		rounds, err := battleService.Rounds(c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"rounds": rounds})
	})

	secured.Post("/battles/:id/forfeit", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		outcome, err := battleService.Forfeit(c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(outcome)
	})
}

// respondError maps service errors onto HTTP statuses so every route group
// reports them the same way.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not found",
		})
	case errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrNotInvitee):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrInvalidDuration),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrChallengeSelf):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, services.ErrAlreadyInBattle),
		errors.Is(err, services.ErrAlreadyAdventuring),
		errors.Is(err, services.ErrInviteNotPending),
		errors.Is(err, services.ErrMatchNotActive),
		errors.Is(err, services.ErrMatchNotFinished),
		errors.Is(err, services.ErrBreakLimitReached),
		errors.Is(err, services.ErrNotToday),
		errors.Is(err, services.ErrOptionalLimit),
		errors.Is(err, services.ErrTaskImmutable),
		errors.Is(err, services.ErrTemplateLimit):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
			"cause": err.Error(),
		})
	}
}
