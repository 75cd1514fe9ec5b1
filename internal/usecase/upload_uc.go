package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eighthand/storefront/internal/domain"
)

// MaxImageBytes es el tope de 5 MiB por archivo, igual que el formulario.
const MaxImageBytes = 5 << 20

// UploadStrategy es una forma de convertir bytes en una URL pública. Las
// estrategias se prueban en orden y gana la primera que no devuelve error.
type UploadStrategy interface {
	Name() string
	Upload(ctx context.Context, file domain.UploadFile, folder string) (string, error)
}

// UploadUC resuelve la subida de una imagen probando en orden: subida directa
// con credencial restringida, subida mediada, y subida mediada con credencial
// elevada como último recurso. La elevada es terminal: no hay más fallback.
type UploadUC struct {
	Strategies []UploadStrategy
}

func NewUploadUC(restricted domain.ObjectStorage, mediated, admin domain.MediatedUploader) *UploadUC {
	return &UploadUC{Strategies: []UploadStrategy{
		&DirectStrategy{Storage: restricted},
		&MediatedStrategy{Uploader: mediated, StrategyName: "mediated"},
		&MediatedStrategy{Uploader: admin, StrategyName: "mediated-admin"},
	}}
}

// Resolve valida tipo y tamaño antes de tocar la red y después recorre las
// estrategias. Si fallan todas devuelve UploadExhaustedError con el error de
// la última.
func (uc *UploadUC) Resolve(ctx context.Context, file domain.UploadFile, folder string) (string, error) {
	if !strings.HasPrefix(file.ContentType, "image/") {
		return "", &domain.ValidationError{Field: "file", Reason: "must be an image (JPEG, PNG, etc.)"}
	}
	if file.SizeBytes() > MaxImageBytes {
		return "", &domain.ValidationError{Field: "file", Reason: "image is larger than 5MB"}
	}

	var last error
	for _, st := range uc.Strategies {
		url, err := st.Upload(ctx, file, folder)
		if err == nil {
			return url, nil
		}
		last = err
		log.Warn().Err(err).Str("strategy", st.Name()).Str("file", file.Name).Msg("upload strategy failed")
	}
	return "", &domain.UploadExhaustedError{Last: last}
}

// DirectStrategy sube con el cliente restringido usando nombre
// {unixMillis}.{ext} bajo la carpeta pedida.
type DirectStrategy struct {
	Storage domain.ObjectStorage
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Upload(ctx context.Context, file domain.UploadFile, folder string) (string, error) {
	path := fmt.Sprintf("%s/%d%s", folder, time.Now().UnixMilli(), fileExt(file.Name))
	if err := s.Storage.Upload(ctx, path, file.Data, file.ContentType); err != nil {
		return "", err
	}
	return s.Storage.PublicURL(path), nil
}

// MediatedStrategy delega en el servicio de subida, que genera nombre y URL.
type MediatedStrategy struct {
	Uploader     domain.MediatedUploader
	StrategyName string
}

func (s *MediatedStrategy) Name() string { return s.StrategyName }

func (s *MediatedStrategy) Upload(ctx context.Context, file domain.UploadFile, folder string) (string, error) {
	res, err := s.Uploader.Upload(ctx, file, folder)
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

func fileExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ".bin"
	}
	return strings.ToLower(ext)
}
