package usecase

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/eighthand/storefront/internal/domain"
)

type ProductUC struct {
	Products   domain.ProductRepo
	Images     domain.ProductImageRepo
	Categories domain.CategoryRepo
}

var schemeRe = regexp.MustCompile(`^https?://`)

// NormalizeImageURL antepone https:// a URLs sin esquema, como hacía el form.
func NormalizeImageURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || schemeRe.MatchString(u) {
		return u
	}
	return "https://" + u
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Products.List(ctx, f)
}

func (uc *ProductUC) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if id == uuid.Nil {
		return nil, domain.ErrNotFound
	}
	return uc.Products.FindByID(ctx, id)
}

func (uc *ProductUC) Create(ctx context.Context, p *domain.Product) error {
	if err := uc.validate(ctx, p); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.ImageURL = NormalizeImageURL(p.ImageURL)
	return uc.Products.Save(ctx, p)
}

func (uc *ProductUC) Update(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		return domain.ErrNotFound
	}
	if err := uc.validate(ctx, p); err != nil {
		return err
	}
	p.ImageURL = NormalizeImageURL(p.ImageURL)
	return uc.Products.Save(ctx, p)
}

// Delete borra el producto con cascada sobre sus imágenes.
func (uc *ProductUC) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.ErrNotFound
	}
	if _, err := uc.Products.FindByID(ctx, id); err != nil {
		return err
	}
	if err := uc.Images.DeleteByProduct(ctx, id); err != nil {
		return err
	}
	return uc.Products.Delete(ctx, id)
}

func (uc *ProductUC) CategoryNames(ctx context.Context) ([]string, error) {
	return uc.Categories.ListNames(ctx)
}

// GroupedCategories arma la taxonomía de dos niveles para el selector,
// filtrada por la tabla categories.
func (uc *ProductUC) GroupedCategories(ctx context.Context) ([]domain.CategoryGroup, error) {
	names, err := uc.Categories.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupedCategories(names), nil
}

func (uc *ProductUC) validate(ctx context.Context, p *domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return &domain.ValidationError{Field: "name", Reason: "product name is required"}
	}
	if strings.TrimSpace(p.Description) == "" {
		return &domain.ValidationError{Field: "description", Reason: "product description is required"}
	}
	if p.Price <= 0 {
		return &domain.ValidationError{Field: "price", Reason: "price must be a positive number"}
	}
	if p.DiscountPrice != nil && *p.DiscountPrice > p.Price {
		return &domain.ValidationError{Field: "discount_price", Reason: "discount price cannot exceed price"}
	}
	if p.Category == "" {
		return &domain.ValidationError{Field: "category", Reason: "product category is required"}
	}
	ok, err := uc.Categories.Exists(ctx, p.Category)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ValidationError{Field: "category", Reason: "unknown category"}
	}
	return nil
}
