package otp

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type GormBackend struct {
	db *gorm.DB
}

func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

func (b *GormBackend) Load(ctx context.Context) (*Challenge, error) {
	var challenge Challenge
	err := b.db.WithContext(ctx).Where("id = ?", ChallengeID).First(&challenge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (b *GormBackend) Save(ctx context.Context, challenge *Challenge) error {
	row := *challenge
	row.ID = ChallengeID

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", ChallengeID).Delete(&Challenge{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

func (b *GormBackend) Delete(ctx context.Context) error {
	return b.db.WithContext(ctx).Where("id = ?", ChallengeID).Delete(&Challenge{}).Error
}
