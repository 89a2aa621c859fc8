// handlers/adventure_routes.go
package handlers

import (
	"strconv"

	"habit-battle-system/middleware"
	"habit-battle-system/models"
	"habit-battle-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAdventureRoutes(app *fiber.App, adventureService *services.AdventureService) {
	// 🔓 Public routes — *no user context*, but **still require Gateway auth**
	app.Get("/monsters", func(c *fiber.Ctx) error {
		tier, _ := strconv.Atoi(c.Query("tier", "0"))
		monsters, err := adventureService.ListMonsters(tier)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"monsters": monsters})
	})

	app.Get("/monsters/:id", func(c *fiber.Ctx) error {
		var monster models.Monster
		err := adventureService.DB.
			Where("id = ? AND published = ?", c.Params("id"), true).
			First(&monster).Error
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "monster not found",
			})
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(monster)
	})

	// 🔐 Secured routes — require user context (user_id, roles)
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/adventures", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			MonsterID    string `json:"monster_id"`
			DurationDays int    `json:"duration_days"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		adventure, err := adventureService.StartAdventure(userID, req.MonsterID, req.DurationDays)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(adventure)
	})

	secured.Get("/adventures/current", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		adventure, _, err := adventureService.CurrentAdventure(userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"adventure": adventure})
	})

	secured.Get("/adventures/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		adventures, total, err := adventureService.History(userID, page, size)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"adventures": adventures,
			"total":      total,
			"page":       page,
			"size":       size,
		})
	})

	secured.Get("/adventures/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		adventure, err := adventureService.GetAdventure(c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(adventure)
	})

	secured.Get("/adventures/:id/rounds", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		rounds, err := adventureService.Rounds(c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"rounds": rounds})
	})

	secured.Post("/adventures/:id/abandon", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		outcome, err := adventureService.Abandon(c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(outcome)
	})

	secured.Post("/adventures/:id/break", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		result, err := adventureService.ScheduleBreak(c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(result)
	})
}
