package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"size:180;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	Price         float64   `gorm:"type:decimal(12,2);not null" json:"price"`
	DiscountPrice *float64  `gorm:"type:decimal(12,2)" json:"discount_price"`
	Category      string    `gorm:"size:100;index" json:"category"`
	InStock       bool      `gorm:"default:true" json:"in_stock"`
	IsNew         bool      `gorm:"default:false" json:"is_new"`
	IsFeatured    bool      `gorm:"default:false" json:"is_featured"`
	IsBestseller  bool      `gorm:"default:false" json:"is_bestseller"`

	// Columna legado de imagen única. Refleja siempre la URL de la imagen
	// marcada is_main; el reconciliador la mantiene sincronizada.
	ImageURL string `gorm:"size:500" json:"image_url"`

	Images    []ProductImage `json:"images,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type ProductImage struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID    uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	ImageURL     string    `gorm:"size:500;not null" json:"image_url"`
	IsMain       bool      `gorm:"default:false;index" json:"is_main"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// MainImage devuelve la imagen marcada is_main, o nil si no hay.
func MainImage(imgs []ProductImage) *ProductImage {
	for i := range imgs {
		if imgs[i].IsMain {
			return &imgs[i]
		}
	}
	return nil
}

type ProductFilter struct {
	Category string
	Query    string
	InStock  *bool
	Page     int
	PageSize int
}

type ProductRepo interface {
	Save(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetImageURL(ctx context.Context, id uuid.UUID, url string) error
}

type ProductImageRepo interface {
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]ProductImage, error)
	CreateMany(ctx context.Context, productID uuid.UUID, imgs []ProductImage) ([]ProductImage, error)
	ReplaceAll(ctx context.Context, productID uuid.UUID, imgs []ProductImage) ([]ProductImage, error)
	DeleteByProduct(ctx context.Context, productID uuid.UUID) error
}
