package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/eighthand/storefront/internal/domain"
	"github.com/eighthand/storefront/internal/usecase"
)

// BucketChecker es lo que los diagnósticos de storage necesitan del cliente:
// listar buckets para el health check y borrar el archivo de prueba que deja
// el chequeo de configuración.
type BucketChecker interface {
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
	Remove(ctx context.Context, path string) error
	BucketName() string
}

type BucketInfo struct {
	Name   string
	Public bool
}

type Server struct {
	mux      *http.ServeMux
	products *usecase.ProductUC
	images   *usecase.ImageSetUC
	uploads  *usecase.UploadUC
	storage  *usecase.StorageUC
	checker  BucketChecker
	oauthCfg *oauth2.Config

	adminAllowed map[string]struct{}
	adminSecret  []byte
}

func New(p *usecase.ProductUC, img *usecase.ImageSetUC, up *usecase.UploadUC, st *usecase.StorageUC, checker BucketChecker, oauthCfg *oauth2.Config) http.Handler {
	s := &Server{
		mux:      http.NewServeMux(),
		products: p,
		images:   img,
		uploads:  up,
		storage:  st,
		checker:  checker,
		oauthCfg: oauthCfg,
	}

	allowed := map[string]struct{}{}
	if raw := os.Getenv("ADMIN_ALLOWED_EMAILS"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" {
				allowed[e] = struct{}{}
			}
		}
	}
	s.adminAllowed = allowed
	sec := os.Getenv("JWT_ADMIN_SECRET")
	if sec == "" {
		sec = os.Getenv("SECRET_KEY")
	}
	if sec == "" {
		sec = "dev-admin-secret"
	}
	s.adminSecret = []byte(sec)

	s.routes()
	return Chain(s.mux,
		RateLimit(120),
		Gzip,
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/products", s.apiProducts)
	s.mux.HandleFunc("/api/products/", s.apiProductByID)
	s.mux.HandleFunc("/api/products/upload", s.apiProductUpload)

	s.mux.HandleFunc("/api/storage/upload", s.apiStorageUpload)
	s.mux.HandleFunc("/api/storage/admin-upload", s.apiStorageAdminUpload)
	s.mux.HandleFunc("/api/storage/check", s.apiStorageCheck)
	s.mux.HandleFunc("/api/storage/test-upload", s.apiStorageTestUpload)
	s.mux.HandleFunc("/api/storage/configure", s.apiStorageConfigure)

	s.mux.HandleFunc("/api/categories", s.apiCategories)
	s.mux.HandleFunc("/api/categories/groups", s.apiCategoryGroups)

	s.mux.HandleFunc("/admin/export/xlsx", s.handleAdminExportXLSX)

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("/admin/login", s.handleAdminLogin)
	s.mux.HandleFunc("/admin/logout", s.handleAdminLogout)
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		f := domain.ProductFilter{Page: 1, PageSize: 100}
		if c := r.URL.Query().Get("category"); c != "" {
			f.Category = c
		}
		if q := r.URL.Query().Get("q"); q != "" {
			f.Query = q
		}
		if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
			f.Page = p
		}
		list, total, err := s.products.List(r.Context(), f)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": list, "total": total})
		return
	}
	if r.Method == http.MethodPost {
		if !s.requireAdmin(w, r) {
			return
		}
		var req productPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, 400, map[string]any{"success": false, "message": "invalid json body"})
			return
		}
		p := &domain.Product{InStock: true}
		req.apply(p)
		if err := s.products.Create(r.Context(), p); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, 201, map[string]any{"success": true, "data": p})
		return
	}
	http.Error(w, "method", 405)
}

func (s *Server) apiProductByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if idx := strings.Index(rest, "/"); idx >= 0 {
		if rest[idx+1:] == "images" {
			s.apiProductImages(w, r, rest[:idx])
			return
		}
		http.NotFound(w, r)
		return
	}

	id, err := uuid.Parse(rest)
	if err != nil {
		writeJSON(w, 400, map[string]any{"success": false, "message": "invalid product id"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.products.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": p})

	case http.MethodPut:
		if !s.requireAdmin(w, r) {
			return
		}
		p, err := s.products.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		var req productPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, 400, map[string]any{"success": false, "message": "invalid json body"})
			return
		}
		req.apply(p)
		if err := s.products.Update(r.Context(), p); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": p})

	case http.MethodDelete:
		if !s.requireAdmin(w, r) {
			return
		}
		if err := s.products.Delete(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"success": true})

	default:
		http.Error(w, "method", 405)
	}
}

// /api/products/{id}/images
func (s *Server) apiProductImages(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		writeJSON(w, 400, map[string]any{"success": false, "message": "invalid product id"})
		return
	}

	if r.Method == http.MethodGet {
		list, err := s.images.ListImages(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": list})
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		http.Error(w, "method", 405)
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}
	if _, err := s.products.Get(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	var req struct {
		Images []domain.ProductImage `json:"images"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Images == nil {
		writeJSON(w, 400, map[string]any{"success": false, "message": "images array is required"})
		return
	}

	if r.Method == http.MethodPost {
		created, err := s.images.AppendImages(r.Context(), id, req.Images)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"success": true, "data": created})
		return
	}
	final, err := s.images.ReplaceImages(r.Context(), id, req.Images)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "data": final})
}

// apiProductUpload crea o edita un producto completo en un solo POST
// multipart: campos + imagen principal + hasta 3 adicionales. El guardado del
// producto y la reconciliación de imágenes son pasos separables: la falla
// parcial de adicionales no revierte el producto.
func (s *Server) apiProductUpload(w http.ResponseWriter, r *http.Request) {
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

	var p *domain.Product
	current := []domain.ProductImage{}
	kept := []string{}
	if rawID := strings.TrimSpace(r.FormValue("id")); rawID != "" {
		id, err := uuid.Parse(rawID)
		if err != nil {
			writeJSON(w, 400, map[string]any{"success": false, "message": "invalid product id"})
			return
		}
		p, err = s.products.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		current = p.Images
		kept = r.Form["kept_image_urls"]
	} else {
		p = &domain.Product{InStock: true}
	}

	if v := r.FormValue("name"); v != "" || p.ID == uuid.Nil {
		p.Name = strings.TrimSpace(v)
	}
	if v := r.FormValue("description"); v != "" || p.ID == uuid.Nil {
		p.Description = strings.TrimSpace(v)
	}
	if v := r.FormValue("category"); v != "" || p.ID == uuid.Nil {
		p.Category = v
	}
	if v := r.FormValue("price"); v != "" {
		p.Price, _ = strconv.ParseFloat(v, 64)
	}
	if v := r.FormValue("discount_price"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil {
			p.DiscountPrice = &d
		}
	} else if p.ID == uuid.Nil {
		p.DiscountPrice = nil
	}
	p.InStock = formBool(r, "in_stock", p.InStock)
	p.IsNew = formBool(r, "is_new", p.IsNew)
	p.IsFeatured = formBool(r, "is_featured", p.IsFeatured)
	p.IsBestseller = formBool(r, "is_bestseller", p.IsBestseller)

	// Imagen principal: si viene archivo se resuelve con el fallback de tres
	// estrategias; su falla total sí aborta el alta.
	mainFile, hasMain := readFormFile(r, "image")
	mainReplaced := hasMain
	if hasMain {
		url, err := s.uploads.Resolve(r.Context(), mainFile, "products")
		if err != nil {
			s.writeError(w, err)
			return
		}
		p.ImageURL = url
	} else if v := strings.TrimSpace(r.FormValue("image_url")); v != "" {
		p.ImageURL = v
		mainReplaced = true
	}

	isNew := p.ID == uuid.Nil
	var err error
	if isNew {
		err = s.products.Create(r.Context(), p)
	} else {
		err = s.products.Update(r.Context(), p)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	if mainReplaced || isNew {
		// El set actual pasa a tener esta principal aunque todavía no esté
		// persistida en product_images; ReplaceAll la inserta.
		current = withMain(current, p.ImageURL)
	}
	// La principal vigente siempre cuenta como conservada salvo reemplazo.
	if p.ImageURL != "" {
		kept = append(kept, p.ImageURL)
	}

	additional := readFormFiles(r, "images")
	final, recErr := s.images.Reconcile(r.Context(), p.ID, additional, current, kept)

	status := 200
	if isNew {
		status = 201
	}
	resp := map[string]any{"success": true, "data": p, "images": final}
	if recErr != nil {
		var partial *domain.PartialImageSetError
		if errors.As(recErr, &partial) {
			resp["warning"] = partial.Error()
			resp["failed_files"] = partial.Failed
		} else {
			s.writeError(w, recErr)
			return
		}
	}
	writeJSON(w, status, resp)
}

func (s *Server) apiCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	names, err := s.products.CategoryNames(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "data": names})
}

func (s *Server) apiCategoryGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	groups, err := s.products.GroupedCategories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"success": true, "data": groups})
}

// --- helpers ---

type productPayload struct {
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	Price         json.RawMessage `json:"price"`
	DiscountPrice json.RawMessage `json:"discount_price"`
	Category      *string         `json:"category"`
	ImageURL      *string         `json:"image_url"`
	InStock       *bool           `json:"in_stock"`
	IsNew         *bool           `json:"is_new"`
	IsFeatured    *bool           `json:"is_featured"`
	IsBestseller  *bool           `json:"is_bestseller"`
}

func (req *productPayload) apply(p *domain.Product) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if v, ok := coerceFloat(req.Price); ok {
		p.Price = v
	}
	if req.DiscountPrice != nil {
		if string(req.DiscountPrice) == "null" {
			p.DiscountPrice = nil
		} else if v, ok := coerceFloat(req.DiscountPrice); ok {
			p.DiscountPrice = &v
		}
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	if req.InStock != nil {
		p.InStock = *req.InStock
	}
	if req.IsNew != nil {
		p.IsNew = *req.IsNew
	}
	if req.IsFeatured != nil {
		p.IsFeatured = *req.IsFeatured
	}
	if req.IsBestseller != nil {
		p.IsBestseller = *req.IsBestseller
	}
}

// coerceFloat acepta el número como number o string, igual que el form viejo
// que mandaba price como texto.
func coerceFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func formBool(r *http.Request, key string, def bool) bool {
	v := r.FormValue(key)
	if v == "" {
		return def
	}
	return v == "true" || v == "1"
}

func readFormFile(r *http.Request, field string) (domain.UploadFile, bool) {
	if r.MultipartForm == nil {
		return domain.UploadFile{}, false
	}
	fhs := r.MultipartForm.File[field]
	if len(fhs) == 0 {
		return domain.UploadFile{}, false
	}
	f, ok := openFormFile(fhs[0])
	return f, ok
}

func readFormFiles(r *http.Request, field string) []domain.UploadFile {
	files := []domain.UploadFile{}
	if r.MultipartForm == nil {
		return files
	}
	for _, fh := range r.MultipartForm.File[field] {
		if f, ok := openFormFile(fh); ok {
			files = append(files, f)
		}
	}
	return files
}

func openFormFile(fh *multipart.FileHeader) (domain.UploadFile, bool) {
	if fh.Size == 0 {
		return domain.UploadFile{}, false
	}
	f, err := fh.Open()
	if err != nil {
		return domain.UploadFile{}, false
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil || len(data) == 0 {
		return domain.UploadFile{}, false
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return domain.UploadFile{Name: fh.Filename, ContentType: ct, Data: data}, true
}

func withMain(current []domain.ProductImage, mainURL string) []domain.ProductImage {
	out := []domain.ProductImage{}
	for _, img := range current {
		if !img.IsMain {
			out = append(out, img)
		}
	}
	if mainURL != "" {
		out = append([]domain.ProductImage{{ImageURL: mainURL, IsMain: true}}, out...)
	}
	return out
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	var le *domain.LimitExceededError
	var pe *domain.PolicyViolationError
	var ue *domain.UploadExhaustedError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, 400, map[string]any{"success": false, "message": ve.Error()})
	case errors.As(err, &le):
		writeJSON(w, 400, map[string]any{"success": false, "message": le.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, 404, map[string]any{"success": false, "message": "not found"})
	case errors.Is(err, domain.ErrAdminStorageNotConfigured):
		writeJSON(w, 500, map[string]any{
			"success": false,
			"message": "Admin upload is not configured. Please check server environment variables.",
			"error":   "service role key is missing or invalid",
		})
	case errors.As(err, &pe):
		writeJSON(w, 403, map[string]any{
			"success": false,
			"message": "Storage permission denied: Row Level Security (RLS) policy violation",
			"error":   pe.Message,
			"suggestions": []string{
				"1. Configure RLS policies in the storage dashboard",
				"2. Make sure the bucket allows public inserts or use the admin upload endpoint",
				"3. Make sure you're authenticated before uploading",
			},
		})
	case errors.As(err, &ue):
		writeJSON(w, 500, map[string]any{"success": false, "message": "Image upload failed: " + ue.Last.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, 500, map[string]any{"success": false, "message": "Server error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
