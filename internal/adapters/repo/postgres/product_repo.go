package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eighthand/storefront/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Omit("Images").Save(p).Error
}

func (r *ProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	var list []domain.Product
	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.InStock != nil {
		q = q.Where("in_stock = ?", *f.InStock)
	}
	if f.Query != "" {
		like := "%" + strings.TrimSpace(f.Query) + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?)", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	offset := (f.Page - 1) * f.PageSize
	err := q.Order("created_at desc").Offset(offset).Limit(f.PageSize).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("display_order asc") }).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&domain.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).
		UpdateColumn("image_url", url).Error
}
