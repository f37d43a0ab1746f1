// Command trash_cleanup permanently removes media that has sat in the
// trash past the retention window. Intended to run as a periodic job.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/07Akashh/DriveBackend/internal/config"
	"github.com/07Akashh/DriveBackend/internal/database"
	"github.com/07Akashh/DriveBackend/internal/domain"
	"github.com/07Akashh/DriveBackend/internal/modules/media"
	"github.com/07Akashh/DriveBackend/internal/storage"
)

func main() {
	retention := flag.Duration("retention", 30*24*time.Hour, "how long trashed files are kept before purging")
	flag.Parse()

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StoragePublicBase,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-*retention)

	var expired []domain.Media
	err = db.WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Find(&expired).Error
	if err != nil {
		log.Fatalf("listing expired trash failed: %v", err)
	}

	repo := media.NewRepository(db)
	purged := 0
	for _, m := range expired {
		// The provider object goes first; a failed provider delete leaves
		// the row for the next run instead of orphaning the object.
		if err := store.Delete(ctx, m.FileKey); err != nil {
			log.Printf("provider delete for %s (%s) failed: %v", m.ID, m.FileKey, err)
			continue
		}
		if err := repo.HardDelete(ctx, m.ID); err != nil {
			log.Printf("db delete for %s failed: %v", m.ID, err)
			continue
		}
		purged++
	}

	log.Printf("trash cleanup completed: expired=%d purged=%d", len(expired), purged)
}
