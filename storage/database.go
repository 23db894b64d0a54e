package storage

import (
	"log"

	"github.com/SoftwareDeveloper2002/iskolardev-node/config"
	"github.com/SoftwareDeveloper2002/iskolardev-node/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func connectToDB(cfg config.Config) *gorm.DB {
	db, dbError := gorm.Open(postgres.Open(cfg.DBConnectionString), &gorm.Config{})
	if dbError != nil {
		log.Panic("error connecting to db: " + dbError.Error())
	}
	return db
}

func performMigrations(db *gorm.DB) {
	db.AutoMigrate(
		&models.User{},
		&models.PaymentIntent{},
		&models.WebhookEvent{},
	)
}

func InitializeDB(cfg config.Config) *gorm.DB {
	db := connectToDB(cfg)
	performMigrations(db)
	return db
}

// Ping runs a cheap probe against the payments table so startup can refuse to
// serve when the database is unreachable or unmigrated.
func Ping(db *gorm.DB) error {
	var count int64
	return db.Model(&models.PaymentIntent{}).Count(&count).Error
}
