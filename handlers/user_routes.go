// handlers/user_routes.go
package handlers

import (
	"habit-battle-system/middleware"
	"habit-battle-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupStreamRoutes must run before the gateway guard is mounted: EventSource
// cannot set an Authorization header, so the stream authenticates itself from
// query params via SSEAuthMiddleware instead.
func SetupStreamRoutes(app *fiber.App, rewardService *services.RewardService, authClient *services.AuthServiceClient) {
	app.Get("/user/rewards/stream", middleware.SSEAuthMiddleware(authClient), rewardService.StreamUserRewardsSSE)
}

func SetupUserRoutes(app *fiber.App, userService *services.UserService, rewardService *services.RewardService) {
	// 🔓 Public routes — no user context needed
	app.Get("/users/search", userService.SearchUsers)
	app.Get("/badges", userService.BadgeCatalog)

	// 🔐 Secured routes — require user context (user_id, roles)
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/user/me", userService.GetMe)
	secured.Patch("/user/timezone", userService.UpdateTimezone)
	secured.Patch("/user/avatar-type", userService.UpdateAvatarType)
	secured.Post("/user/avatar", userService.UploadAvatar)
	secured.Get("/user/discoveries", userService.GetDiscoveries)
	secured.Get("/user/badges", userService.GetBadges)

	// Reward inbox
	secured.Get("/user/rewards", rewardService.GetUserRewards)
	secured.Get("/user/rewards/counts", rewardService.GetUserRewardCounts)
	secured.Patch("/user/rewards/viewed-all", rewardService.MarkAllRewardsAsViewed)
	secured.Patch("/user/rewards/:id/claim", rewardService.ClaimReward)
	secured.Patch("/user/rewards/:id/viewed", rewardService.MarkRewardAsViewed)
}
