package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/oneboxhq/onebox/interfaces"
	"github.com/oneboxhq/onebox/internal/models"
)

type Repositories struct {
	EmailRepository           interfaces.EmailRepository
	EmailAttachmentRepository interfaces.EmailAttachmentRepository
}

func InitRepositories(db *gorm.DB, attachmentStorage interfaces.StorageService) *Repositories {
	return &Repositories{
		EmailRepository:           NewEmailRepository(db),
		EmailAttachmentRepository: NewEmailAttachmentRepository(db, attachmentStorage),
	}
}

type MigrateSettings struct {
	MaxConn         int
	MaxIdleConn     int
	ConnMaxLifetime int
}

func Migrate(settings MigrateSettings, gormDB *gorm.DB) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)

	err = gormDB.AutoMigrate(
		&models.Email{},
		&models.EmailAttachment{},
	)

	db.SetMaxIdleConns(settings.MaxIdleConn)
	db.SetMaxOpenConns(settings.MaxConn)
	db.SetConnMaxLifetime(time.Duration(settings.ConnMaxLifetime) * time.Minute)

	return err
}
