package repository

import (
	"gepe/internal/models"

	"gorm.io/gorm"
)

type NotificationEmailRepository struct {
	db *gorm.DB
}

func NewNotificationEmailRepository(db *gorm.DB) *NotificationEmailRepository {
	return &NotificationEmailRepository{db: db}
}

// ListVerified returns the staff addresses that receive new-sale mail.
func (r *NotificationEmailRepository) ListVerified() ([]string, error) {
	var rows []models.NotificationEmail
	if err := r.db.Where("verified = ?", true).Find(&rows).Error; err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, row.Email)
	}
	return emails, nil
}
