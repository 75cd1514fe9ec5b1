package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eighthand/storefront/internal/domain"
)

type CategoryRepo struct{ db *gorm.DB }

func NewCategoryRepo(db *gorm.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) ListNames(ctx context.Context) ([]string, error) {
	names := []string{}
	err := r.db.WithContext(ctx).Model(&domain.Category{}).
		Order("name asc").Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *CategoryRepo) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Category{}).
		Where("name = ?", name).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SeedNames inserta los nombres que falten, ignorando los ya existentes.
func (r *CategoryRepo) SeedNames(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	rows := make([]domain.Category, 0, len(names))
	for _, n := range names {
		rows = append(rows, domain.Category{ID: uuid.New(), Name: n})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error
}
