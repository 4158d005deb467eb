package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Page{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&SearchIndexEntry{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Signature{}); err != nil {
		return err
	}

	// at most one default signature, whichever process writes
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_signatures_single_default ON signatures (is_default) WHERE is_default`).Error
}
