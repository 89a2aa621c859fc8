// handlers/admin_routes.go
package handlers

import (
	"habit-battle-system/middleware"
	"habit-battle-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, monsterService *services.MonsterService, rewardService *services.RewardService, engine *services.Engine, battleService *services.BattleService) {
	// 🔒 Admin-only — user context plus the admin role from the gateway
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	// Monster catalog management
	admin.Get("/monsters", monsterService.GetAllMonsters)
	admin.Post("/monsters", monsterService.UploadMonster)
	admin.Post("/monsters/import", monsterService.ImportMonsterPack)
	admin.Post("/monsters/import-url", monsterService.ImportMonsterPackFromURL)
	admin.Patch("/monsters/:id/:action", monsterService.SetMonsterPublished)
	admin.Delete("/monsters/:id", monsterService.DeleteMonster)

	// Reward ledger overview
	admin.Get("/rewards", rewardService.GetAllRewards)

	// Manual sweep trigger for support work; the hourly job does the same.
	admin.Post("/sweep", func(c *fiber.Ctx) error {
		closed := engine.SweepOnce(battleService)
		return c.JSON(fiber.Map{
			"message":       "sweep completed",
			"rounds_closed": closed,
		})
	})
}
