// Command seed fills a local database with demo accounts and media so the
// API is explorable without going through real uploads.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/07Akashh/DriveBackend/internal/config"
	"github.com/07Akashh/DriveBackend/internal/database"
	"github.com/07Akashh/DriveBackend/internal/domain"
	"github.com/07Akashh/DriveBackend/internal/repository"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	// Cleanup old data (child tables first)
	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM media_audit_logs")
	db.Exec("DELETE FROM media_shares")
	db.Exec("DELETE FROM media")
	db.Exec("DELETE FROM users")

	// ================== USERS ==================
	log.Println("Creating users...")

	users := repository.NewUserRepository(db)
	demo := make([]*domain.User, 0, 3)
	for i, email := range []string{"alice@example.com", "bob@example.com", "carol@example.com"} {
		hash, _ := bcrypt.GenerateFromPassword([]byte("drive123"), bcrypt.DefaultCost)
		u := &domain.User{
			Email:        email,
			PasswordHash: string(hash),
			Name:         fmt.Sprintf("Demo User %d", i+1),
			StorageLimit: domain.DefaultStorageLimit,
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatal("user create failed:", err)
		}
		demo = append(demo, u)
		log.Printf("User created: %s / drive123", email)
	}

	// ================== MEDIA ==================
	log.Println("Creating media...")

	alice, bob := demo[0], demo[1]
	samples := []struct {
		name   string
		mime   string
		folder string
		size   int64
	}{
		{"sunset.jpg", "image/jpeg", "drive/images", 2 << 20},
		{"roadtrip.mp4", "video/mp4", "drive/videos", 180 << 20},
		{"notes.pdf", "application/pdf", "drive/files", 300 << 10},
	}

	var firstImage *domain.Media
	var used int64
	for _, s := range samples {
		key := fmt.Sprintf("%s/%d-%s-%s", s.folder, time.Now().UnixMilli(), uuid.NewString(), s.name)
		m := &domain.Media{
			ID:             uuid.NewString(),
			Filename:       s.name,
			OriginalName:   s.name,
			MimeType:       s.mime,
			Size:           s.size,
			UploadProvider: "minio",
			FileURL:        cfg.StoragePublicBase + "/" + key,
			FileKey:        key,
			Folder:         s.folder,
			OwnerUserID:    alice.ID,
			OwnerEmail:     alice.Email,
			UploadedAt:     time.Now(),
		}
		if err := db.Create(m).Error; err != nil {
			log.Fatal("media create failed:", err)
		}
		if firstImage == nil {
			firstImage = m
		}
		used += s.size
	}
	if err := users.AddStorageUsed(ctx, alice.ID, used); err != nil {
		log.Fatal("quota update failed:", err)
	}

	// ================== SHARING ==================
	log.Println("Sharing first file with bob...")

	expires := time.Now().Add(7 * 24 * time.Hour)
	grant := domain.ShareGrant{
		MediaID:    firstImage.ID,
		Email:      bob.Email,
		Permission: domain.PermissionDownload,
		SharedAt:   time.Now(),
		ExpiresAt:  &expires,
	}
	if err := db.Create(&grant).Error; err != nil {
		log.Fatal("share create failed:", err)
	}

	log.Println("Seed completed.")
}
