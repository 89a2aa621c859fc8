// handlers/task_routes.go
package handlers

import (
	"time"

	"habit-battle-system/middleware"
	"habit-battle-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTaskRoutes(app *fiber.App, taskService *services.TaskService) {
	// 🔐 All task routes are per-user — user context required
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/tasks/today", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		tasks, today, err := taskService.TodayTasks(userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"date":  today.Format("2006-01-02"),
			"tasks": tasks,
		})
	})

	secured.Get("/tasks", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		dateStr := c.Query("date")
		if dateStr == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "date query param required (YYYY-MM-DD)",
			})
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid date, expected YYYY-MM-DD",
			})
		}
		tasks, err := taskService.TasksFor(userID, date)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"date":  dateStr,
			"tasks": tasks,
		})
	})

	secured.Post("/tasks", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Title    string `json:"title"`
			Category string `json:"category"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		task, err := taskService.CreateOptionalTask(userID, req.Title, req.Category)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	secured.Patch("/tasks/:id/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		task, err := taskService.SetTaskCompletion(c.Params("id"), userID, true)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(task)
	})

	secured.Patch("/tasks/:id/uncomplete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		task, err := taskService.SetTaskCompletion(c.Params("id"), userID, false)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(task)
	})

	secured.Delete("/tasks/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := taskService.DeleteOptionalTask(c.Params("id"), userID); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "task deleted"})
	})

	// Template management — the per-user pool daily plans draw from
	secured.Get("/templates", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		templates, err := taskService.ListTemplates(userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"templates": templates})
	})

	secured.Post("/templates", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Title    string `json:"title"`
			Category string `json:"category"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		template, err := taskService.CreateTemplate(userID, req.Title, req.Category)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(template)
	})

	secured.Put("/templates/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Title    *string `json:"title"`
			Category *string `json:"category"`
			Active   *bool   `json:"active"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		template, err := taskService.UpdateTemplate(c.Params("id"), userID, req.Title, req.Category, req.Active)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(template)
	})

	secured.Delete("/templates/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := taskService.DeleteTemplate(c.Params("id"), userID); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"message": "template deleted"})
	})
}
