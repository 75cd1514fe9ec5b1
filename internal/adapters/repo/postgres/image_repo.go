package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eighthand/storefront/internal/domain"
)

type ProductImageRepo struct{ db *gorm.DB }

func NewProductImageRepo(db *gorm.DB) *ProductImageRepo { return &ProductImageRepo{db: db} }

func (r *ProductImageRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductImage, error) {
	list := []domain.ProductImage{}
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("display_order asc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductImageRepo) CreateMany(ctx context.Context, productID uuid.UUID, imgs []domain.ProductImage) ([]domain.ProductImage, error) {
	if len(imgs) == 0 {
		return []domain.ProductImage{}, nil
	}
	for i := range imgs {
		if imgs[i].ID == uuid.Nil {
			imgs[i].ID = uuid.New()
		}
		imgs[i].ProductID = productID
		if imgs[i].CreatedAt.IsZero() {
			imgs[i].CreatedAt = time.Now()
		}
	}
	if err := r.db.WithContext(ctx).Create(&imgs).Error; err != nil {
		return nil, err
	}
	return imgs, nil
}

// ReplaceAll borra e inserta en una misma transacción: es el único escritor
// del set de imágenes de un producto.
func (r *ProductImageRepo) ReplaceAll(ctx context.Context, productID uuid.UUID, imgs []domain.ProductImage) ([]domain.ProductImage, error) {
	for i := range imgs {
		if imgs[i].ID == uuid.Nil {
			imgs[i].ID = uuid.New()
		}
		imgs[i].ProductID = productID
		if imgs[i].CreatedAt.IsZero() {
			imgs[i].CreatedAt = time.Now()
		}
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).Delete(&domain.ProductImage{}).Error; err != nil {
			return err
		}
		if len(imgs) == 0 {
			return nil
		}
		return tx.Create(&imgs).Error
	})
	if err != nil {
		return nil, err
	}
	if imgs == nil {
		imgs = []domain.ProductImage{}
	}
	return imgs, nil
}

func (r *ProductImageRepo) DeleteByProduct(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("product_id = ?", productID).Delete(&domain.ProductImage{}).Error
}
