package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/eighthand/storefront/internal/domain"
)

// MaxAdditionalImages limita las imágenes secundarias por producto
// (4 en total contando la principal).
const MaxAdditionalImages = 3

// URLResolver es lo que el reconciliador necesita del resolver de subidas.
type URLResolver interface {
	Resolve(ctx context.Context, file domain.UploadFile, folder string) (string, error)
}

// ImageSetUC reconcilia el set de imágenes deseado de un producto contra el
// persistido: conserva las que el admin no sacó, sube las nuevas, garantiza
// una única principal y reasigna display_order denso 0..n-1.
type ImageSetUC struct {
	Resolver URLResolver
	Images   domain.ProductImageRepo
	Products domain.ProductRepo
}

// Reconcile procesa los archivos nuevos en orden de envío. La falla de una
// imagen adicional no aborta el guardado: se saltea y se informa al final con
// PartialImageSetError junto a la lista ya persistida. La falla del store sí
// es fatal.
func (uc *ImageSetUC) Reconcile(ctx context.Context, productID uuid.UUID, newFiles []domain.UploadFile, current []domain.ProductImage, keptURLs []string) ([]domain.ProductImage, error) {
	kept := make(map[string]struct{}, len(keptURLs))
	for _, u := range keptURLs {
		kept[u] = struct{}{}
	}

	// keptURLs manda para todas: una imagen que el admin sacó del set no se
	// conserva aunque fuera la principal. La principal kept va primera.
	retained := []domain.ProductImage{}
	for _, img := range current {
		if !img.IsMain {
			continue
		}
		if _, ok := kept[img.ImageURL]; ok {
			retained = append(retained, img)
		}
	}
	keptAdditional := 0
	for _, img := range current {
		if img.IsMain {
			continue
		}
		if _, ok := kept[img.ImageURL]; ok {
			retained = append(retained, img)
			keptAdditional++
		}
	}

	if got := len(newFiles) + keptAdditional; got > MaxAdditionalImages {
		return nil, &domain.LimitExceededError{Limit: MaxAdditionalImages, Got: got}
	}

	failed := []string{}
	uploaded := []domain.ProductImage{}
	for _, f := range newFiles {
		url, err := uc.Resolver.Resolve(ctx, f, "products")
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("additional image upload failed, skipping")
			failed = append(failed, f.Name)
			continue
		}
		uploaded = append(uploaded, domain.ProductImage{ImageURL: url})
	}

	final := append(retained, uploaded...)
	if len(final) > 0 && domain.MainImage(final) == nil {
		final[0].IsMain = true
	}
	for i := range final {
		final[i].DisplayOrder = i
		final[i].ProductID = productID
	}

	persisted, err := uc.Images.ReplaceAll(ctx, productID, final)
	if err != nil {
		return nil, err
	}

	mainURL := ""
	if m := domain.MainImage(persisted); m != nil {
		mainURL = m.ImageURL
	}
	if err := uc.Products.SetImageURL(ctx, productID, mainURL); err != nil {
		return nil, err
	}

	if len(failed) > 0 {
		return persisted, &domain.PartialImageSetError{Failed: failed}
	}
	return persisted, nil
}

// ReplaceImages persiste un set ya resuelto (PUT del admin con URLs listas),
// aplicando las mismas invariantes de principal única y orden denso.
func (uc *ImageSetUC) ReplaceImages(ctx context.Context, productID uuid.UUID, imgs []domain.ProductImage) ([]domain.ProductImage, error) {
	if len(imgs) > MaxAdditionalImages+1 {
		return nil, &domain.LimitExceededError{Limit: MaxAdditionalImages + 1, Got: len(imgs)}
	}
	seenMain := false
	for i := range imgs {
		if imgs[i].IsMain {
			if seenMain {
				imgs[i].IsMain = false
			}
			seenMain = true
		}
	}
	if len(imgs) > 0 && !seenMain {
		imgs[0].IsMain = true
	}
	for i := range imgs {
		imgs[i].DisplayOrder = i
		imgs[i].ProductID = productID
	}
	persisted, err := uc.Images.ReplaceAll(ctx, productID, imgs)
	if err != nil {
		return nil, err
	}
	mainURL := ""
	if m := domain.MainImage(persisted); m != nil {
		mainURL = m.ImageURL
	}
	if err := uc.Products.SetImageURL(ctx, productID, mainURL); err != nil {
		return nil, err
	}
	return persisted, nil
}

// AppendImages agrega filas sin tocar las existentes (POST del admin),
// normalizando is_main contra el set combinado: a lo sumo una principal, y si
// el set queda sin ninguna se promueve la primera del lote.
func (uc *ImageSetUC) AppendImages(ctx context.Context, productID uuid.UUID, imgs []domain.ProductImage) ([]domain.ProductImage, error) {
	current, err := uc.Images.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if got := len(current) + len(imgs); got > MaxAdditionalImages+1 {
		return nil, &domain.LimitExceededError{Limit: MaxAdditionalImages + 1, Got: got}
	}
	hasMain := domain.MainImage(current) != nil
	next := len(current)
	for i := range imgs {
		imgs[i].DisplayOrder = next + i
		if imgs[i].IsMain {
			if hasMain {
				imgs[i].IsMain = false
			}
			hasMain = true
		}
	}
	if !hasMain && len(imgs) > 0 {
		imgs[0].IsMain = true
	}
	created, err := uc.Images.CreateMany(ctx, productID, imgs)
	if err != nil {
		return nil, err
	}
	// Si el lote aportó la principal, la columna legado tiene que reflejarla.
	if m := domain.MainImage(created); m != nil {
		if err := uc.Products.SetImageURL(ctx, productID, m.ImageURL); err != nil {
			return nil, err
		}
	}
	return created, nil
}

func (uc *ImageSetUC) ListImages(ctx context.Context, productID uuid.UUID) ([]domain.ProductImage, error) {
	return uc.Images.ListByProduct(ctx, productID)
}
