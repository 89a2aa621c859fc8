package services

import (
	"archive/zip"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-battle-system/models"
	"habit-battle-system/utils"
)

//go:embed monsters.toml
var defaultCatalogTOML []byte

// monsterPack is the TOML manifest format shared by the embedded catalog and
// admin-uploaded packs.
type monsterPack struct {
	Monsters []monsterEntry `toml:"monsters"`
}

type monsterEntry struct {
	Name        string `toml:"name"`
	Slug        string `toml:"slug"`
	ActorType   string `toml:"actor_type"`
	Tier        int    `toml:"tier"`
	BaseHP      int    `toml:"base_hp"`
	Description string `toml:"description"`
	Art         string `toml:"art"`
}

func (m *monsterEntry) validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("monster name is required")
	}
	if m.Slug == "" {
		m.Slug = slug.Make(m.Name)
	}
	if !ValidActorType(m.ActorType) {
		return fmt.Errorf("unknown actor type %q for %s", m.ActorType, m.Name)
	}
	if m.Tier < 1 || m.Tier > 4 {
		return fmt.Errorf("tier out of range for %s: %d", m.Name, m.Tier)
	}
	if m.BaseHP <= 0 {
		return fmt.Errorf("base_hp must be positive for %s", m.Name)
	}
	return nil
}

type MonsterService struct {
	DB *gorm.DB
}

func NewMonsterService(db *gorm.DB) *MonsterService {
	return &MonsterService{DB: db}
}

// SeedCatalog loads the embedded starter monsters. Fields refresh on every
// boot so catalog tuning ships with deploys; Published is left alone so an
// operator's unpublish sticks.
func (s *MonsterService) SeedCatalog() error {
	var pack monsterPack
	if err := toml.Unmarshal(defaultCatalogTOML, &pack); err != nil {
		return fmt.Errorf("failed to parse embedded monster catalog: %w", err)
	}

	for i := range pack.Monsters {
		entry := &pack.Monsters[i]
		if err := entry.validate(); err != nil {
			return err
		}
		artURL := ""
		if entry.Art != "" {
			artURL = utils.PublicURL(entry.Art)
		}
		if err := s.upsertMonster(entry, artURL); err != nil {
			return err
		}
	}

	log.Printf("🐉 Monster catalog seeded: %d entries", len(pack.Monsters))
	return nil
}

func (s *MonsterService) upsertMonster(entry *monsterEntry, artURL string) error {
	monster := models.Monster{
		ID:          uuid.NewString(),
		Name:        entry.Name,
		Slug:        entry.Slug,
		ActorType:   entry.ActorType,
		Tier:        entry.Tier,
		BaseHP:      entry.BaseHP,
		ArtURL:      artURL,
		Description: entry.Description,
		Published:   true,
	}
	assign := []string{"name", "actor_type", "tier", "base_hp", "description"}
	if artURL != "" {
		assign = append(assign, "art_url")
	}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns(assign),
	}).Create(&monster).Error
	if err != nil {
		return fmt.Errorf("failed to upsert monster %s: %w", entry.Slug, err)
	}
	return nil
}

const maxPackBytes = 100 * 1024 * 1024 // 100MB

// ImportMonsterPack ingests an admin-uploaded zip containing a monsters.toml
// manifest plus art files. Art is pushed to R2; entries upsert by slug.
func (s *MonsterService) ImportMonsterPack(c *fiber.Ctx) error {
	packFile, err := c.FormFile("pack")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "pack is required"})
	}
	if packFile.Size > maxPackBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "pack too large (max 100MB)"})
	}

	tmpDir := filepath.Join(os.TempDir(), "monster-pack-"+uuid.NewString())
	if err := os.MkdirAll(tmpDir, os.ModePerm); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "temp dir creation failed"})
	}
	defer os.RemoveAll(tmpDir)

	tempZipPath := filepath.Join(tmpDir, "pack.zip")
	if err := utils.SaveFile(packFile, tempZipPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save pack"})
	}

	return s.importPackZip(c, tmpDir, tempZipPath)
}

// ImportMonsterPackFromURL ingests the same pack format from a remote URL
// instead of a direct upload.
func (s *MonsterService) ImportMonsterPackFromURL(c *fiber.Ctx) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url is required"})
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url must be http or https"})
	}

	tmpDir := filepath.Join(os.TempDir(), "monster-pack-"+uuid.NewString())
	if err := os.MkdirAll(tmpDir, os.ModePerm); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "temp dir creation failed"})
	}
	defer os.RemoveAll(tmpDir)

	resp, err := utils.HTTPClient.Get(req.URL)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to download pack: " + err.Error()})
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": fmt.Sprintf("pack host returned %d", resp.StatusCode)})
	}

	tempZipPath := filepath.Join(tmpDir, "pack.zip")
	out, err := os.Create(tempZipPath)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save pack"})
	}
	written, err := io.Copy(out, io.LimitReader(resp.Body, maxPackBytes+1))
	out.Close()
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "failed to download pack: " + err.Error()})
	}
	if written > maxPackBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "pack too large (max 100MB)"})
	}

	log.Printf("🐉 Downloaded monster pack from %s (%d bytes)", parsed.Host, written)
	return s.importPackZip(c, tmpDir, tempZipPath)
}

// importPackZip extracts a saved pack zip, validates the manifest, uploads
// art and upserts every entry.
func (s *MonsterService) importPackZip(c *fiber.Ctx, tmpDir, tempZipPath string) error {
	extractDir := filepath.Join(tmpDir, "extracted")
	if err := s.unzip(tempZipPath, extractDir); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unzip failed: " + err.Error()})
	}

	manifest, err := os.ReadFile(filepath.Join(extractDir, "monsters.toml"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "pack has no monsters.toml"})
	}
	var pack monsterPack
	if err := toml.Unmarshal(manifest, &pack); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid monsters.toml: " + err.Error()})
	}

	imported := 0
	for i := range pack.Monsters {
		entry := &pack.Monsters[i]
		if err := entry.validate(); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		artURL := ""
		if entry.Art != "" {
			data, err := os.ReadFile(filepath.Join(extractDir, filepath.FromSlash(entry.Art)))
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": fmt.Sprintf("art file missing for %s: %s", entry.Name, entry.Art),
				})
			}
			ext := filepath.Ext(entry.Art)
			contentType := mime.TypeByExtension(ext)
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			artKey := "monsters/" + entry.Slug + ext
			artURL, err = utils.UploadBytesToR2(data, artKey, contentType)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": fmt.Sprintf("failed to upload art for %s", entry.Name),
				})
			}
		}

		if err := s.upsertMonster(entry, artURL); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		imported++
	}

	log.Printf("🐉 Monster pack imported: %d entries", imported)
	return c.JSON(fiber.Map{"imported": imported})
}

// unzip extracts src zip to dest dir with zip-slip protection
func (s *MonsterService) unzip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		path := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, os.ModePerm); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return err
		}

		outFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			outFile.Close()
			return err
		}

		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// UploadMonster creates a single catalog entry from a multipart form with an
// optional art image.
func (s *MonsterService) UploadMonster(c *fiber.Ctx) error {
	tier, _ := strconv.Atoi(c.FormValue("tier"))
	baseHP, _ := strconv.Atoi(c.FormValue("base_hp"))
	entry := monsterEntry{
		Name:        c.FormValue("name"),
		Slug:        c.FormValue("slug"),
		ActorType:   c.FormValue("actor_type"),
		Tier:        tier,
		BaseHP:      baseHP,
		Description: c.FormValue("description"),
	}
	if err := entry.validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	artURL := ""
	if artFile, err := c.FormFile("art"); err == nil && artFile.Size > 0 {
		ext := filepath.Ext(artFile.Filename)
		if ext == "" {
			ext = ".png"
		}
		artURL, err = utils.UploadFileToR2(artFile, "monsters/"+entry.Slug+ext)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload art to R2"})
		}
	}

	if err := s.upsertMonster(&entry, artURL); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	var monster models.Monster
	if err := s.DB.Where("slug = ?", entry.Slug).First(&monster).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.Status(fiber.StatusCreated).JSON(monster)
}

// GetAllMonsters returns the full catalog including unpublished entries.
func (s *MonsterService) GetAllMonsters(c *fiber.Ctx) error {
	var monsters []models.Monster
	if err := s.DB.Order("tier ASC, name ASC").Find(&monsters).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch monsters"})
	}
	return c.JSON(monsters)
}

// SetMonsterPublished toggles catalog visibility.
func (s *MonsterService) SetMonsterPublished(c *fiber.Ctx) error {
	id := c.Params("id")
	action := c.Params("action") // Expect "publish" or "unpublish"

	var monster models.Monster
	if err := s.DB.First(&monster, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "monster not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	switch action {
	case "publish":
		monster.Published = true
	case "unpublish":
		monster.Published = false
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid action, use 'publish' or 'unpublish'"})
	}

	if err := s.DB.Save(&monster).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update monster"})
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("monster %sed successfully", action),
		"monster": monster,
	})
}

// DeleteMonster removes a catalog entry unless active adventures still
// reference it.
func (s *MonsterService) DeleteMonster(c *fiber.Ctx) error {
	id := c.Params("id")

	var monster models.Monster
	if err := s.DB.First(&monster, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "monster not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var activeCount int64
	s.DB.Model(&models.Adventure{}).
		Where("monster_id = ? AND status = ?", id, models.AdventureStatusActive).
		Count(&activeCount)
	if activeCount > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":        "cannot delete monster: still hunted in active adventures",
			"active_count": activeCount,
		})
	}

	if err := s.DB.Delete(&monster).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete monster"})
	}

	return c.JSON(fiber.Map{
		"message": "monster deleted successfully",
		"id":      id,
	})
}
