package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/eighthand/storefront/internal/domain"
)

// POST /api/storage/upload — subida mediada con credencial restringida.
func (s *Server) apiStorageUpload(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseMultipartForm(25 << 20); err != nil {
		writeJSON(w, 400, map[string]any{"success": false, "message": "invalid multipart form"})
		return
	}
	file, ok := readFormFile(r, "file")
	if !ok {
		writeJSON(w, 400, map[string]any{"success": false, "message": "No file provided"})
		return
	}
	folder := r.FormValue("folder")

	res, err := s.storage.Upload(r.Context(), file, folder)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"success": true,
		"message": "File uploaded successfully",
		"data":    res,
	})
}

// POST /api/storage/admin-upload — credencial elevada, saltea RLS. Solo corre
// del lado servidor y falla cerrado si la service key no está configurada.
func (s *Server) apiStorageAdminUpload(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseMultipartForm(25 << 20); err != nil {
		writeJSON(w, 400, map[string]any{"success": false, "message": "invalid multipart form"})
		return
	}
	file, ok := readFormFile(r, "file")
	if !ok {
		writeJSON(w, 400, map[string]any{"success": false, "message": "No file provided"})
		return
	}
	folder := r.FormValue("folder")

	res, err := s.storage.AdminUpload(r.Context(), file, folder)
	if err != nil {
		log.Error().Err(err).Str("file", file.Name).Msg("admin upload failed")
		s.writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"success": true,
		"message": "File uploaded successfully via admin bypass",
		"data":    res,
	})
}

// POST /api/storage/test-upload — diagnóstico: sube el archivo tal cual con la
// credencial restringida para verificar que las políticas dejan escribir.
func (s *Server) apiStorageTestUpload(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	if err := r.ParseMultipartForm(25 << 20); err != nil {
		writeJSON(w, 400, map[string]any{"success": false, "message": "invalid multipart form"})
		return
	}
	file, ok := readFormFile(r, "file")
	if !ok {
		writeJSON(w, 400, map[string]any{"success": false, "message": "No file provided"})
		return
	}

	path := fmt.Sprintf("test-upload/%d-%s", time.Now().UnixMilli(), file.Name)
	if err := s.storage.Restricted.Upload(r.Context(), path, file.Data, file.ContentType); err != nil {
		var pe *domain.PolicyViolationError
		if errors.As(err, &pe) {
			writeJSON(w, 403, map[string]any{
				"success":                 false,
				"message":                 "Upload failed: Row Level Security (RLS) policy violation",
				"error":                   pe.Message,
				"needs_rls_configuration": true,
				"instructions": []string{
					"To fix this issue, configure RLS policies in the storage dashboard:",
					"1. Go to Storage → Policies",
					"2. Create a policy for the bucket that allows uploads",
					"3. Sample policy: FOR INSERT USING (auth.role() = 'authenticated')",
				},
			})
			return
		}
		writeJSON(w, 500, map[string]any{
			"success": false,
			"message": "Upload failed: " + err.Error(),
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, 200, map[string]any{
		"success": true,
		"message": "Upload successful!",
		"data":    map[string]any{"path": path, "public_url": s.storage.Restricted.PublicURL(path)},
	})
}

// GET /api/storage/configure — chequeo de punta a punta: bucket presente,
// subida de prueba con la credencial restringida y limpieza del archivo.
func (s *Server) apiStorageConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	buckets, err := s.checker.ListBuckets(r.Context())
	if err != nil {
		writeJSON(w, 500, map[string]any{
			"success": false,
			"error":   err.Error(),
			"message": fmt.Sprintf("Failed to list buckets. You may need to create the '%s' bucket manually in the storage dashboard.", s.checker.BucketName()),
		})
		return
	}
	var found *BucketInfo
	for i := range buckets {
		if buckets[i].Name == s.checker.BucketName() {
			found = &buckets[i]
			break
		}
	}
	if found == nil {
		writeJSON(w, 200, map[string]any{
			"success":               false,
			"needs_bucket_creation": true,
			"message":               fmt.Sprintf("The '%s' bucket doesn't exist. Please create it manually in the storage dashboard.", s.checker.BucketName()),
			"instructions": []string{
				"1. Go to the storage dashboard",
				"2. Click 'New Bucket'",
				fmt.Sprintf("3. Enter '%s' as the bucket name", s.checker.BucketName()),
				"4. Check 'Public bucket' so images are publicly accessible",
				"5. Click 'Create bucket'",
			},
		})
		return
	}

	probe := domain.UploadFile{Name: "probe.txt", ContentType: "text/plain", Data: []byte("test")}
	res, err := s.storage.Upload(r.Context(), probe, "test")
	if err != nil {
		var pe *domain.PolicyViolationError
		if errors.As(err, &pe) {
			writeJSON(w, 200, map[string]any{
				"success":                 false,
				"error":                   pe.Message,
				"message":                 "Failed to upload test file: Row Level Security (RLS) policy violation",
				"needs_rls_configuration": true,
				"instructions": []string{
					"1. Go to Storage → Policies in the dashboard",
					"2. Create or edit the policies for the bucket",
					"3. Allow uploads from authenticated users",
					"4. Sample policy: FOR INSERT USING (auth.role() = 'authenticated')",
				},
			})
			return
		}
		writeJSON(w, 500, map[string]any{
			"success": false,
			"error":   err.Error(),
			"message": "Failed to upload test file",
		})
		return
	}
	if err := s.checker.Remove(r.Context(), res.Path); err != nil {
		log.Warn().Err(err).Str("path", res.Path).Msg("no se pudo limpiar el archivo de prueba")
	}

	writeJSON(w, 200, map[string]any{
		"success": true,
		"message": "Storage bucket is properly configured",
		"data": map[string]any{
			"bucket_exists":  true,
			"is_public":      found.Public,
			"upload_working": true,
			"public_url":     res.URL,
		},
	})
}

// GET /api/storage/check — verifica acceso al storage y que el bucket exista.
func (s *Server) apiStorageCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	buckets, err := s.checker.ListBuckets(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("storage access check failed")
		writeJSON(w, 500, map[string]any{
			"success": false,
			"message": "Storage access check failed",
			"error":   err.Error(),
		})
		return
	}
	names := []string{}
	exists := false
	for _, b := range buckets {
		names = append(names, b.Name)
		if b.Name == s.checker.BucketName() {
			exists = true
		}
	}
	writeJSON(w, 200, map[string]any{
		"success": true,
		"message": "Storage access check successful",
		"data":    map[string]any{"buckets": names, "bucket_exists": exists},
	})
}
