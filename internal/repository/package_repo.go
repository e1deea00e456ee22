package repository

import (
	"context"

	"mentorly/internal/models"

	"gorm.io/gorm"
)

type PackageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) Get(ctx context.Context, id string) (*models.CreditPackage, error) {
	var p models.CreditPackage
	if err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PackageRepository) ListActive(ctx context.Context) ([]models.CreditPackage, error) {
	var list []models.CreditPackage
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("sort_order ASC").Find(&list).Error
	return list, err
}
