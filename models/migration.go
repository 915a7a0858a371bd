package models

import (
	"log"

	"github.com/greenloop/catalog_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Product{}, &Source{},
		&ScrapeSnapshot{}, &SyncRun{}, &SyncError{},
	)
	if err != nil {
		log.Printf("auto-migrate failed: %v", err)
	}
}
