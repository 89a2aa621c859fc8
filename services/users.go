// services/users.go
package services

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"habit-battle-system/models"
	"habit-battle-system/utils"
)

type UserService struct {
	DB     *gorm.DB
	Badges *BadgeService
}

func NewUserService(db *gorm.DB, badges *BadgeService) *UserService {
	return &UserService{DB: db, Badges: badges}
}

// SearchUsers searches the local user mirror for opponents to challenge.
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	var users []models.User
	db := s.DB.Model(&models.User{}).Where("is_banned = ?", false).Limit(limit)

	// Apply search filter if query is provided
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where(
			"LOWER(username) LIKE ? OR LOWER(email) LIKE ?",
			searchTerm, searchTerm,
		)
	}

	if err := db.Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "search failed", "details": err.Error()})
	}

	// Minimal response shape; ExternalUserID is the identifier clients use
	// everywhere else (challenges, stats).
	type UserSummary struct {
		ExternalUserID string  `json:"external_user_id"`
		Username       string  `json:"username"`
		AvatarURL      *string `json:"avatar_url"`
		AvatarType     string  `json:"avatar_type"`
	}

	res := make([]UserSummary, len(users))
	for i, u := range users {
		res[i] = UserSummary{
			ExternalUserID: u.ExternalUserID,
			Username:       u.Username,
			AvatarURL:      u.AvatarURL,
			AvatarType:     u.AvatarType,
		}
	}

	return c.JSON(res)
}

// GetMe returns the caller's profile, aggregates, level progress, wallet
// mirror and badges in one payload.
func (s *UserService) GetMe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var user models.User
	if err := s.DB.Where("external_user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	stats, err := ensureStatsTx(s.DB, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load stats"})
	}

	var wallet models.CoinWalletMirror
	balance := 0.0
	if err := s.DB.Where("user_id = ?", userID).First(&wallet).Error; err == nil {
		balance = wallet.Balance
	}

	badges, err := s.Badges.ListUserBadges(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load badges"})
	}

	return c.JSON(fiber.Map{
		"user":         user,
		"stats":        stats,
		"level":        ProgressForStats(stats),
		"coin_balance": balance,
		"badges":       badges,
	})
}

// UpdateTimezone sets the zone used for the caller's day boundaries. The
// name must resolve against the IANA database.
func (s *UserService) UpdateTimezone(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var input struct {
		Timezone string `json:"timezone"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	input.Timezone = strings.TrimSpace(input.Timezone)
	if input.Timezone == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "timezone is required"})
	}
	if _, err := time.LoadLocation(input.Timezone); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown timezone"})
	}

	res := s.DB.Model(&models.User{}).
		Where("external_user_id = ?", userID).
		Update("timezone", input.Timezone)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update timezone"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}

	return c.JSON(fiber.Map{"timezone": input.Timezone})
}

// UpdateAvatarType picks the actor type the caller battles as.
func (s *UserService) UpdateAvatarType(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var input struct {
		AvatarType string `json:"avatar_type"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !ValidActorType(input.AvatarType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown avatar type"})
	}

	res := s.DB.Model(&models.User{}).
		Where("external_user_id = ?", userID).
		Update("avatar_type", input.AvatarType)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update avatar type"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}

	return c.JSON(fiber.Map{"avatar_type": input.AvatarType})
}

// UploadAvatar replaces the caller's avatar image with an R2-hosted one.
func (s *UserService) UploadAvatar(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	avatarFile, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "avatar is required"})
	}
	if avatarFile.Size > 5*1024*1024 { // 5MB
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file too large (max 5MB)"})
	}

	ext := filepath.Ext(avatarFile.Filename)
	if ext == "" {
		ext = ".png"
	}
	avatarKey := "avatars/" + uuid.NewString() + ext
	avatarURL, err := utils.UploadFileToR2(avatarFile, avatarKey)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload avatar to R2"})
	}

	res := s.DB.Model(&models.User{}).
		Where("external_user_id = ?", userID).
		Update("avatar_url", avatarURL)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save avatar"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
	}

	return c.JSON(fiber.Map{"avatar_url": avatarURL})
}

// GetDiscoveries lists every effectiveness pairing the caller has uncovered.
func (s *UserService) GetDiscoveries(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var discoveries []models.EffectivenessDiscovery
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("created_at ASC").
		Find(&discoveries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch discoveries"})
	}
	return c.JSON(discoveries)
}

// GetBadges lists the caller's earned badges with catalog details.
func (s *UserService) GetBadges(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	badges, err := s.Badges.ListUserBadges(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch badges"})
	}
	return c.JSON(badges)
}

// BadgeCatalog lists every badge the service can award.
func (s *UserService) BadgeCatalog(c *fiber.Ctx) error {
	var types []models.BadgeType
	if err := s.Badges.DB.Order("code ASC").Find(&types).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch badge catalog"})
	}
	return c.JSON(fiber.Map{"badges": types})
}
