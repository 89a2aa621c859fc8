// services/reward_service.go
package services

import (
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"habit-battle-system/models"
)

// RewardService exposes the coin reward ledger the finalizer writes into.
// Rewards are engine-generated only; there is no admin create path.
type RewardService struct {
	DB *gorm.DB
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{DB: db}
}

// GetUserRewards fetches the authenticated user's rewards. Supports limit,
// claimed (true/false, default all) and match_type (battle/adventure) filters.
func (s *RewardService) GetUserRewards(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User ID not found in context"})
	}

	limitStr := c.Query("limit")
	claimedStr := c.Query("claimed")
	matchType := c.Query("match_type")

	var limit *int
	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
		}
		limit = &l
	}

	var claimedFilter *bool
	switch strings.ToLower(claimedStr) {
	case "true":
		claimed := true
		claimedFilter = &claimed
	case "false":
		claimed := false
		claimedFilter = &claimed
		// Default ("all" or not provided) means no filter on claimed status
	}

	query := s.DB.Where("external_user_id = ?", userID)
	if claimedFilter != nil {
		query = query.Where("claimed = ?", *claimedFilter)
	}
	switch matchType {
	case models.MatchTypeBattle, models.MatchTypeAdventure:
		query = query.Where("match_type = ?", matchType)
	case "":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid match_type parameter"})
	}

	var rewards []models.MatchReward
	dbQuery := query.Order("created_at DESC")
	if limit != nil {
		dbQuery = dbQuery.Limit(*limit)
	}

	if err := dbQuery.Find(&rewards).Error; err != nil {
		log.Printf("DB Error fetching user rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rewards"})
	}

	return c.JSON(rewards)
}

// GetUserRewardCounts returns total, unviewed and unclaimed counts for the
// authenticated user. Cheap enough to poll.
func (s *RewardService) GetUserRewardCounts(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	baseQuery := s.DB.Model(&models.MatchReward{}).
		Where("external_user_id = ?", userID)

	var totalCount int64
	if err := baseQuery.Count(&totalCount).Error; err != nil {
		log.Printf("DB Error counting total rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "DB error counting total rewards"})
	}

	var unviewedCount int64
	if err := baseQuery.
		Where("viewed = ?", false).
		Count(&unviewedCount).Error; err != nil {
		log.Printf("DB Error counting unviewed rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "DB error counting unviewed rewards"})
	}

	var unclaimedCount int64
	if err := baseQuery.
		Where("claimed = ?", false).
		Count(&unclaimedCount).Error; err != nil {
		log.Printf("DB Error counting unclaimed rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "DB error counting unclaimed rewards"})
	}

	return c.JSON(fiber.Map{
		"total_count":     totalCount,
		"unviewed_count":  unviewedCount,
		"unclaimed_count": unclaimedCount,
	})
}

// ClaimReward handles the claiming of a reward by the user
func (s *RewardService) ClaimReward(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	rewardID := c.Params("id")

	if _, err := uuid.Parse(rewardID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	var reward models.MatchReward
	if err := s.DB.Where("id = ? AND external_user_id = ?", rewardID, userID).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found or not owned by user"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if reward.Claimed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Reward already claimed"})
	}

	now := time.Now()
	reward.Claimed = true
	reward.ClaimedAt = &now
	if err := s.DB.Save(&reward).Error; err != nil {
		log.Printf("DB Error claiming reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to claim reward"})
	}

	log.Printf("💰 Reward claimed: %s → %.1f coins (%s)", userID, reward.Amount, reward.Title)
	return c.JSON(fiber.Map{"message": "Reward claimed successfully", "reward": reward})
}

// GetAllRewards fetches all rewards (Admin only, potentially paginated in future)
func (s *RewardService) GetAllRewards(c *fiber.Ctx) error {
	var rewards []models.MatchReward
	if err := s.DB.Order("created_at DESC").Limit(500).Find(&rewards).Error; err != nil {
		log.Printf("DB Error fetching all rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rewards"})
	}

	return c.JSON(rewards)
}

// MarkRewardAsViewed marks a single reward as viewed (idempotent)
func (s *RewardService) MarkRewardAsViewed(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	rewardID := c.Params("id")

	if _, err := uuid.Parse(rewardID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	var reward models.MatchReward
	if err := s.DB.Where("id = ? AND external_user_id = ?", rewardID, userID).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found or not owned"})
		}
		log.Printf("DB error fetching reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if !reward.Viewed {
		reward.Viewed = true
		if err := s.DB.Save(&reward).Error; err != nil {
			log.Printf("Failed to update viewed status: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark as viewed"})
		}
	}

	return c.JSON(fiber.Map{"message": "OK", "reward_id": reward.ID, "viewed": true})
}

// MarkAllRewardsAsViewed marks every unviewed reward for the user as viewed.
func (s *RewardService) MarkAllRewardsAsViewed(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	result := s.DB.Model(&models.MatchReward{}).
		Where("external_user_id = ? AND viewed = ?", userID, false).
		Update("viewed", true)

	if result.Error != nil {
		log.Printf("Bulk mark viewed failed: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update rewards"})
	}

	return c.JSON(fiber.Map{
		"message":      "OK",
		"marked_count": result.RowsAffected,
	})
}
