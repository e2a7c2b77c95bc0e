package database

import (
	"errors"
	"log"
	"os"

	"gepe/config"
	"gepe/internal/domain"
	"gepe/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
		// Surface duplicate-key violations as gorm.ErrDuplicatedKey so the
		// idempotent order creation can catch them.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.NotificationEmail{},
	)
}

// SeedAdmin ensures an admin account exists when ADMIN_EMAIL and
// ADMIN_PASSWORD are set. Existing accounts are promoted, not recreated.
func SeedAdmin(db *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hashed := string(hash)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{Email: email, HashedPassword: &hashed, Role: domain.RoleAdmin}
		if createErr := db.Create(&user).Error; createErr != nil {
			return createErr
		}
		log.Printf("[DB] seeded admin account %s", email)
		return nil
	}

	user.HashedPassword = &hashed
	user.Role = domain.RoleAdmin
	if saveErr := db.Save(&user).Error; saveErr != nil {
		return saveErr
	}
	log.Printf("[DB] refreshed admin account %s", email)
	return nil
}
