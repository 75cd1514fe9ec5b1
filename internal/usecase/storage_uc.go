package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/eighthand/storefront/internal/domain"
)

// StorageUC es el servicio de subida mediada que está detrás de
// /api/storage/upload y /api/storage/admin-upload. Genera nombres
// {millis}-{token}.{ext} para evitar colisiones entre subidas concurrentes.
type StorageUC struct {
	Restricted domain.ObjectStorage
	Elevated   domain.ObjectStorage // nil si no hay service role key configurada
}

func (uc *StorageUC) Upload(ctx context.Context, file domain.UploadFile, folder string) (*domain.UploadResult, error) {
	return uc.put(ctx, uc.Restricted, file, folder)
}

// AdminUpload usa la credencial elevada que saltea RLS. Falla cerrado si la
// key no está configurada en el ambiente.
func (uc *StorageUC) AdminUpload(ctx context.Context, file domain.UploadFile, folder string) (*domain.UploadResult, error) {
	if uc.Elevated == nil {
		return nil, domain.ErrAdminStorageNotConfigured
	}
	return uc.put(ctx, uc.Elevated, file, folder)
}

func (uc *StorageUC) put(ctx context.Context, store domain.ObjectStorage, file domain.UploadFile, folder string) (*domain.UploadResult, error) {
	if len(file.Data) == 0 {
		return nil, &domain.ValidationError{Field: "file", Reason: "no file provided"}
	}
	if folder == "" {
		folder = "products"
	}
	path := fmt.Sprintf("%s/%d-%s%s", folder, time.Now().UnixMilli(), randToken(3), fileExt(file.Name))
	if err := store.Upload(ctx, path, file.Data, file.ContentType); err != nil {
		return nil, err
	}
	return &domain.UploadResult{Path: path, URL: store.PublicURL(path)}, nil
}

func randToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// AdminUploader expone AdminUpload bajo la interfaz MediatedUploader para
// engancharlo como última estrategia del resolver.
type AdminUploader struct {
	Storage *StorageUC
}

func (a *AdminUploader) Upload(ctx context.Context, file domain.UploadFile, folder string) (*domain.UploadResult, error) {
	return a.Storage.AdminUpload(ctx, file, folder)
}
