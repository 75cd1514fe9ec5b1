package domain

import "context"

// ObjectStorage es un handle hacia el bucket de objetos. Existen dos instancias
// equivalentes en capacidad: la restringida (anon key, sujeta a políticas RLS)
// y la elevada (service role, solo desde el lado servidor).
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	PublicURL(path string) string
}

// UploadFile es el archivo crudo que llega del formulario del admin.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f UploadFile) SizeBytes() int64 { return int64(len(f.Data)) }

type UploadResult struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// MediatedUploader es el colaborador de subida mediada: recibe los bytes,
// genera el nombre y resuelve la URL pública por su cuenta.
type MediatedUploader interface {
	Upload(ctx context.Context, file UploadFile, folder string) (*UploadResult, error)
}
