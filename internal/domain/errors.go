package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ErrAdminStorageNotConfigured indica que falta SUPABASE_SERVICE_ROLE_KEY:
// el camino de subida con credencial elevada debe fallar cerrado, nunca crashear.
var ErrAdminStorageNotConfigured = errors.New("admin storage is not configured: service role key is missing")

// ValidationError se corta antes de cualquier llamada de red.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// PolicyViolationError es un rechazo del storage por política de acceso (RLS).
// Dispara el fallback a la siguiente estrategia de subida.
type PolicyViolationError struct {
	Message string
}

func (e *PolicyViolationError) Error() string {
	return "storage policy violation: " + e.Message
}

// UploadExhaustedError: fallaron las tres estrategias. Last es el error de la
// última (la elevada).
type UploadExhaustedError struct {
	Last error
}

func (e *UploadExhaustedError) Error() string {
	return "all upload strategies failed: " + e.Last.Error()
}

func (e *UploadExhaustedError) Unwrap() error { return e.Last }

// LimitExceededError: se intentó persistir más imágenes que el tope permitido.
type LimitExceededError struct {
	Limit int
	Got   int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("image limit exceeded: got %d, limit %d", e.Got, e.Limit)
}

// PartialImageSetError: una o más imágenes adicionales no se pudieron subir.
// El guardado del producto sigue adelante; el caller decide cómo avisarlo.
type PartialImageSetError struct {
	Failed []string
}

func (e *PartialImageSetError) Error() string {
	return fmt.Sprintf("%d additional image(s) failed to upload", len(e.Failed))
}
