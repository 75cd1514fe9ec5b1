package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eighthand/storefront/internal/domain"
	"github.com/eighthand/storefront/internal/usecase"
)

// --- fakes en memoria ---

type memImages struct {
	rows map[uuid.UUID][]domain.ProductImage
}

func (r *memImages) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductImage, error) {
	out := append([]domain.ProductImage{}, r.rows[productID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (r *memImages) CreateMany(ctx context.Context, productID uuid.UUID, imgs []domain.ProductImage) ([]domain.ProductImage, error) {
	for i := range imgs {
		imgs[i].ID = uuid.New()
		imgs[i].ProductID = productID
	}
	r.rows[productID] = append(r.rows[productID], imgs...)
	return imgs, nil
}

func (r *memImages) ReplaceAll(ctx context.Context, productID uuid.UUID, imgs []domain.ProductImage) ([]domain.ProductImage, error) {
	for i := range imgs {
		if imgs[i].ID == uuid.Nil {
			imgs[i].ID = uuid.New()
		}
		imgs[i].ProductID = productID
	}
	r.rows[productID] = append([]domain.ProductImage{}, imgs...)
	return imgs, nil
}

func (r *memImages) DeleteByProduct(ctx context.Context, productID uuid.UUID) error {
	delete(r.rows, productID)
	return nil
}

type memProducts struct {
	rows   map[uuid.UUID]*domain.Product
	images *memImages
}

func (r *memProducts) Save(ctx context.Context, p *domain.Product) error {
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memProducts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	cp.Images, _ = r.images.ListByProduct(ctx, id)
	return &cp, nil
}

func (r *memProducts) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	out := []domain.Product{}
	for _, p := range r.rows {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *memProducts) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memProducts) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	if p, ok := r.rows[id]; ok {
		p.ImageURL = url
	}
	return nil
}

type memCategories struct{ names []string }

func (r *memCategories) ListNames(ctx context.Context) ([]string, error) { return r.names, nil }
func (r *memCategories) Exists(ctx context.Context, name string) (bool, error) {
	for _, n := range r.names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}
func (r *memCategories) SeedNames(ctx context.Context, names []string) error { return nil }

type stubStorage struct {
	base string
	err  error
}

func (s *stubStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	return s.err
}
func (s *stubStorage) PublicURL(path string) string { return s.base + "/" + path }

type stubChecker struct {
	buckets []BucketInfo
	removed []string
}

func (c *stubChecker) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	return c.buckets, nil
}
func (c *stubChecker) Remove(ctx context.Context, path string) error {
	c.removed = append(c.removed, path)
	return nil
}
func (c *stubChecker) BucketName() string { return "eighthand" }

type env struct {
	srv        *Server
	products   *memProducts
	images     *memImages
	restricted *stubStorage
	checker    *stubChecker
}

func newTestEnv() *env {
	images := &memImages{rows: map[uuid.UUID][]domain.ProductImage{}}
	products := &memProducts{rows: map[uuid.UUID]*domain.Product{}, images: images}
	cats := &memCategories{names: []string{"Dining Table", "Bed", "Sofa/Couch/Bean"}}
	restricted := &stubStorage{base: "https://cdn.test"}

	storageUC := &usecase.StorageUC{Restricted: restricted}
	uploadUC := usecase.NewUploadUC(restricted, storageUC, &usecase.AdminUploader{Storage: storageUC})
	imagesUC := &usecase.ImageSetUC{Resolver: uploadUC, Images: images, Products: products}
	productUC := &usecase.ProductUC{Products: products, Images: images, Categories: cats}

	checker := &stubChecker{buckets: []BucketInfo{{Name: "eighthand", Public: true}, {Name: "avatars"}}}
	s := &Server{
		mux:          http.NewServeMux(),
		products:     productUC,
		images:       imagesUC,
		uploads:      uploadUC,
		storage:      storageUC,
		checker:      checker,
		adminAllowed: map[string]struct{}{"admin@test.dev": {}},
		adminSecret:  []byte("test-secret"),
	}
	s.routes()
	return &env{srv: s, products: products, images: images, restricted: restricted, checker: checker}
}

func (e *env) do(t *testing.T, req *http.Request, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	if admin {
		tok, _, err := e.srv.issueAdminToken("admin@test.dev", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.srv.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func jsonReq(method, target string, v any) *http.Request {
	b, _ := json.Marshal(v)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type filePart struct {
	field, name, ct string
	data            []byte
}

func multipartReq(t *testing.T, target string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.ct)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func seedProduct(t *testing.T, e *env, name string) *domain.Product {
	t.Helper()
	p := &domain.Product{ID: uuid.New(), Name: name, Description: "solid wood", Price: 100, Category: "Bed", InStock: true}
	require.NoError(t, e.products.Save(context.Background(), p))
	return p
}

// --- tests ---

func TestAdminAuth(t *testing.T) {
	e := newTestEnv()

	t.Run("MissingTokenIs401", func(t *testing.T) {
		rec := e.do(t, jsonReq(http.MethodPost, "/api/products", map[string]any{}), false)
		assert.Equal(t, 401, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
	})

	t.Run("TamperedTokenIs401", func(t *testing.T) {
		tok, _, err := e.srv.issueAdminToken("admin@test.dev", time.Hour)
		require.NoError(t, err)
		req := jsonReq(http.MethodPost, "/api/products", map[string]any{})
		req.Header.Set("Authorization", "Bearer "+tok+"x")
		rec := httptest.NewRecorder()
		e.srv.mux.ServeHTTP(rec, req)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("EmailOutsideAllowListIsRejected", func(t *testing.T) {
		tok, _, err := e.srv.issueAdminToken("intruso@test.dev", time.Hour)
		require.NoError(t, err)
		_, err = e.srv.verifyAdminToken(tok)
		assert.Error(t, err)
	})

	t.Run("ExpiredTokenIsRejected", func(t *testing.T) {
		tok, _, err := e.srv.issueAdminToken("admin@test.dev", -time.Minute)
		require.NoError(t, err)
		_, err = e.srv.verifyAdminToken(tok)
		assert.Error(t, err)
	})
}

func TestProductsAPI(t *testing.T) {
	t.Run("CreateAndGet", func(t *testing.T) {
		e := newTestEnv()
		rec := e.do(t, jsonReq(http.MethodPost, "/api/products", map[string]any{
			"name": "Oak Dining Table", "description": "seats six", "price": 1299.5,
			"category": "Dining Table",
		}), true)
		require.Equal(t, 201, rec.Code, rec.Body.String())
		body := decode(t, rec)
		data := body["data"].(map[string]any)
		id := data["id"].(string)

		rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil), false)
		require.Equal(t, 200, rec.Code)
		body = decode(t, rec)
		assert.Equal(t, "Oak Dining Table", body["data"].(map[string]any)["name"])
	})

	t.Run("CreateRejectsUnknownCategory", func(t *testing.T) {
		e := newTestEnv()
		rec := e.do(t, jsonReq(http.MethodPost, "/api/products", map[string]any{
			"name": "X", "description": "y", "price": 10, "category": "Spaceship",
		}), true)
		assert.Equal(t, 400, rec.Code)
	})

	t.Run("UpdateCoercesStringPrice", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Bed Frame")
		rec := e.do(t, jsonReq(http.MethodPut, "/api/products/"+p.ID.String(), map[string]any{
			"price": "1499.99",
		}), true)
		require.Equal(t, 200, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, 1499.99, body["data"].(map[string]any)["price"])
	})

	t.Run("UpdateClearsDiscountWithNull", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Bed Frame")
		d := 80.0
		p.DiscountPrice = &d
		require.NoError(t, e.products.Save(context.Background(), p))

		rec := e.do(t, jsonReq(http.MethodPut, "/api/products/"+p.ID.String(), map[string]any{
			"discount_price": nil,
		}), true)
		require.Equal(t, 200, rec.Code)
		body := decode(t, rec)
		assert.Nil(t, body["data"].(map[string]any)["discount_price"])
	})

	t.Run("GetUnknownIs404", func(t *testing.T) {
		e := newTestEnv()
		rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/products/"+uuid.NewString(), nil), false)
		assert.Equal(t, 404, rec.Code)
	})

	t.Run("DeleteCascadesImages", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Shelf")
		_, err := e.images.CreateMany(context.Background(), p.ID, []domain.ProductImage{{ImageURL: "https://cdn.test/products/a.png", IsMain: true}})
		require.NoError(t, err)

		rec := e.do(t, httptest.NewRequest(http.MethodDelete, "/api/products/"+p.ID.String(), nil), true)
		require.Equal(t, 200, rec.Code)
		left, _ := e.images.ListByProduct(context.Background(), p.ID)
		assert.Empty(t, left)
	})

	t.Run("ListFiltersByCategory", func(t *testing.T) {
		e := newTestEnv()
		seedProduct(t, e, "Bed A")
		rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/products?category=Bed", nil), false)
		require.Equal(t, 200, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, float64(1), body["total"])
	})
}

func TestProductImagesAPI(t *testing.T) {
	t.Run("PutRequiresImagesArray", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Sofa")
		rec := e.do(t, jsonReq(http.MethodPut, "/api/products/"+p.ID.String()+"/images", map[string]any{}), true)
		assert.Equal(t, 400, rec.Code)
		assert.Contains(t, rec.Body.String(), "images array is required")
	})

	t.Run("PutReplacesAndGetsBack", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Sofa")
		rec := e.do(t, jsonReq(http.MethodPut, "/api/products/"+p.ID.String()+"/images", map[string]any{
			"images": []map[string]any{
				{"image_url": "https://cdn.test/products/a.png", "is_main": true},
				{"image_url": "https://cdn.test/products/b.png"},
			},
		}), true)
		require.Equal(t, 200, rec.Code, rec.Body.String())

		rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/products/"+p.ID.String()+"/images", nil), false)
		require.Equal(t, 200, rec.Code)
		body := decode(t, rec)
		data := body["data"].([]any)
		require.Len(t, data, 2)
		first := data[0].(map[string]any)
		assert.Equal(t, true, first["is_main"])
		assert.Equal(t, float64(0), first["display_order"])
		assert.Equal(t, "https://cdn.test/products/a.png", e.products.rows[p.ID].ImageURL)
	})

	t.Run("PostAppends", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Sofa")
		_, err := e.images.CreateMany(context.Background(), p.ID, []domain.ProductImage{{ImageURL: "https://cdn.test/products/a.png", IsMain: true, DisplayOrder: 0}})
		require.NoError(t, err)

		rec := e.do(t, jsonReq(http.MethodPost, "/api/products/"+p.ID.String()+"/images", map[string]any{
			"images": []map[string]any{{"image_url": "https://cdn.test/products/b.png"}},
		}), true)
		require.Equal(t, 200, rec.Code, rec.Body.String())
		list, _ := e.images.ListByProduct(context.Background(), p.ID)
		require.Len(t, list, 2)
		assert.Equal(t, 1, list[1].DisplayOrder)
	})

	t.Run("UnsupportedMethodIs405", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Sofa")
		rec := e.do(t, httptest.NewRequest(http.MethodDelete, "/api/products/"+p.ID.String()+"/images", nil), true)
		assert.Equal(t, 405, rec.Code)
	})

	t.Run("PutOverCapIs400", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Sofa")
		imgs := make([]map[string]any, 5)
		for i := range imgs {
			imgs[i] = map[string]any{"image_url": "https://cdn.test/products/x.png"}
		}
		rec := e.do(t, jsonReq(http.MethodPut, "/api/products/"+p.ID.String()+"/images", map[string]any{"images": imgs}), true)
		assert.Equal(t, 400, rec.Code)
	})
}

func TestProductUpload(t *testing.T) {
	png := []byte("\x89PNG fake bytes")

	t.Run("CreatesProductWithImageSet", func(t *testing.T) {
		e := newTestEnv()
		req := multipartReq(t, "/api/products/upload", map[string]string{
			"name": "Walnut Desk", "description": "with drawers", "price": "850",
			"category": "Dining Table", "is_featured": "true",
		},
			filePart{field: "image", name: "main.png", ct: "image/png", data: png},
			filePart{field: "images", name: "side.png", ct: "image/png", data: png},
		)
		rec := e.do(t, req, true)
		require.Equal(t, 201, rec.Code, rec.Body.String())
		body := decode(t, rec)
		data := body["data"].(map[string]any)
		assert.Equal(t, true, data["is_featured"])
		assert.NotEmpty(t, data["image_url"])

		images := body["images"].([]any)
		require.Len(t, images, 2)
		main := images[0].(map[string]any)
		assert.Equal(t, true, main["is_main"])
		assert.Equal(t, data["image_url"], main["image_url"])
		_, hasWarning := body["warning"]
		assert.False(t, hasWarning)
	})

	t.Run("EditKeepsOnlyListedURLs", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Sofa")
		p.ImageURL = "https://cdn.test/products/main.png"
		require.NoError(t, e.products.Save(context.Background(), p))
		_, err := e.images.ReplaceAll(context.Background(), p.ID, []domain.ProductImage{
			{ImageURL: "https://cdn.test/products/main.png", IsMain: true, DisplayOrder: 0},
			{ImageURL: "https://cdn.test/products/keep.png", DisplayOrder: 1},
			{ImageURL: "https://cdn.test/products/drop.png", DisplayOrder: 2},
		})
		require.NoError(t, err)

		req := multipartReq(t, "/api/products/upload", map[string]string{
			"id": p.ID.String(), "kept_image_urls": "https://cdn.test/products/keep.png",
		})
		rec := e.do(t, req, true)
		require.Equal(t, 200, rec.Code, rec.Body.String())
		body := decode(t, rec)
		images := body["images"].([]any)
		require.Len(t, images, 2, "la principal vigente se conserva sola, drop.png no")
		urls := []string{
			images[0].(map[string]any)["image_url"].(string),
			images[1].(map[string]any)["image_url"].(string),
		}
		assert.Equal(t, []string{"https://cdn.test/products/main.png", "https://cdn.test/products/keep.png"}, urls)
	})

	t.Run("OverCapIs400", func(t *testing.T) {
		e := newTestEnv()
		parts := []filePart{{field: "image", name: "main.png", ct: "image/png", data: png}}
		for i := 0; i < 4; i++ {
			parts = append(parts, filePart{field: "images", name: "extra.png", ct: "image/png", data: png})
		}
		req := multipartReq(t, "/api/products/upload", map[string]string{
			"name": "Desk", "description": "x", "price": "10", "category": "Bed",
		}, parts...)
		rec := e.do(t, req, true)
		assert.Equal(t, 400, rec.Code, rec.Body.String())
	})

	t.Run("FailedAdditionalReturnsWarning", func(t *testing.T) {
		e := newTestEnv()
		p := seedProduct(t, e, "Sofa")
		// la principal ya existe como URL; las adicionales fallan en todas las
		// estrategias
		e.restricted.err = &domain.PolicyViolationError{Message: "row-level security"}
		req := multipartReq(t, "/api/products/upload", map[string]string{
			"id": p.ID.String(), "image_url": "https://cdn.test/products/main.png",
		}, filePart{field: "images", name: "bad.png", ct: "image/png", data: png})
		rec := e.do(t, req, true)
		require.Equal(t, 200, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Contains(t, body, "warning")
		assert.Equal(t, []any{"bad.png"}, body["failed_files"].([]any))
		images := body["images"].([]any)
		require.Len(t, images, 1)
	})
}

func TestStorageAPI(t *testing.T) {
	png := []byte("\x89PNG fake bytes")

	t.Run("UploadSuccessShape", func(t *testing.T) {
		e := newTestEnv()
		req := multipartReq(t, "/api/storage/upload", map[string]string{"folder": "products"},
			filePart{field: "file", name: "a.png", ct: "image/png", data: png})
		rec := e.do(t, req, true)
		require.Equal(t, 200, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "File uploaded successfully", body["message"])
		data := body["data"].(map[string]any)
		path := data["path"].(string)
		assert.True(t, strings.HasPrefix(path, "products/"))
		assert.True(t, strings.HasSuffix(path, ".png"))
		assert.Equal(t, "https://cdn.test/"+path, data["url"])
	})

	t.Run("UploadWithoutFileIs400", func(t *testing.T) {
		e := newTestEnv()
		req := multipartReq(t, "/api/storage/upload", map[string]string{"folder": "products"})
		rec := e.do(t, req, true)
		assert.Equal(t, 400, rec.Code)
		assert.Contains(t, rec.Body.String(), "No file provided")
	})

	t.Run("PolicyViolationIs403WithSuggestions", func(t *testing.T) {
		e := newTestEnv()
		e.restricted.err = &domain.PolicyViolationError{Message: "new row violates row-level security policy"}
		req := multipartReq(t, "/api/storage/upload", nil,
			filePart{field: "file", name: "a.png", ct: "image/png", data: png})
		rec := e.do(t, req, true)
		require.Equal(t, 403, rec.Code)
		body := decode(t, rec)
		assert.Contains(t, body["message"], "Row Level Security")
		assert.Len(t, body["suggestions"].([]any), 3)
	})

	t.Run("AdminUploadNotConfiguredIs500", func(t *testing.T) {
		e := newTestEnv() // Elevated queda nil
		req := multipartReq(t, "/api/storage/admin-upload", nil,
			filePart{field: "file", name: "a.png", ct: "image/png", data: png})
		rec := e.do(t, req, true)
		require.Equal(t, 500, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "Admin upload is not configured. Please check server environment variables.", body["message"])
		assert.Equal(t, "service role key is missing or invalid", body["error"])
	})

	t.Run("AdminUploadBypassShape", func(t *testing.T) {
		e := newTestEnv()
		e.srv.storage.Elevated = &stubStorage{base: "https://cdn.test"}
		req := multipartReq(t, "/api/storage/admin-upload", nil,
			filePart{field: "file", name: "a.png", ct: "image/png", data: png})
		rec := e.do(t, req, true)
		require.Equal(t, 200, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "File uploaded successfully via admin bypass", body["message"])
	})

	t.Run("TestUploadKeepsOriginalName", func(t *testing.T) {
		e := newTestEnv()
		req := multipartReq(t, "/api/storage/test-upload", nil,
			filePart{field: "file", name: "probe.png", ct: "image/png", data: png})
		rec := e.do(t, req, true)
		require.Equal(t, 200, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "Upload successful!", body["message"])
		data := body["data"].(map[string]any)
		path := data["path"].(string)
		assert.True(t, strings.HasPrefix(path, "test-upload/"))
		assert.True(t, strings.HasSuffix(path, "-probe.png"))
		assert.Equal(t, "https://cdn.test/"+path, data["public_url"])
	})

	t.Run("TestUploadSurfacesRLSInstructions", func(t *testing.T) {
		e := newTestEnv()
		e.restricted.err = &domain.PolicyViolationError{Message: "new row violates row-level security policy"}
		req := multipartReq(t, "/api/storage/test-upload", nil,
			filePart{field: "file", name: "probe.png", ct: "image/png", data: png})
		rec := e.do(t, req, true)
		require.Equal(t, 403, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["needs_rls_configuration"])
		assert.NotEmpty(t, body["instructions"])
	})

	t.Run("ConfigureHealthyCleansUpProbeFile", func(t *testing.T) {
		e := newTestEnv()
		rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/storage/configure", nil), true)
		require.Equal(t, 200, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		data := body["data"].(map[string]any)
		assert.Equal(t, true, data["bucket_exists"])
		assert.Equal(t, true, data["is_public"])
		assert.Equal(t, true, data["upload_working"])
		require.Len(t, e.checker.removed, 1)
		assert.True(t, strings.HasPrefix(e.checker.removed[0], "test/"))
	})

	t.Run("ConfigureMissingBucketGivesInstructions", func(t *testing.T) {
		e := newTestEnv()
		e.checker.buckets = []BucketInfo{{Name: "avatars"}}
		rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/storage/configure", nil), true)
		require.Equal(t, 200, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, true, body["needs_bucket_creation"])
		assert.Empty(t, e.checker.removed)
	})

	t.Run("ConfigureRLSFailureIsReported", func(t *testing.T) {
		e := newTestEnv()
		e.restricted.err = &domain.PolicyViolationError{Message: "permission denied"}
		rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/storage/configure", nil), true)
		require.Equal(t, 200, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, true, body["needs_rls_configuration"])
		assert.Contains(t, body["message"], "Row Level Security")
	})

	t.Run("CheckReportsBuckets", func(t *testing.T) {
		e := newTestEnv()
		rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/storage/check", nil), false)
		require.Equal(t, 200, rec.Code)
		body := decode(t, rec)
		data := body["data"].(map[string]any)
		assert.Equal(t, true, data["bucket_exists"])
		assert.Contains(t, data["buckets"].([]any), "eighthand")
	})
}

func TestCategoriesAPI(t *testing.T) {
	e := newTestEnv()

	rec := e.do(t, httptest.NewRequest(http.MethodGet, "/api/categories", nil), false)
	require.Equal(t, 200, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["data"].([]any), 3)

	rec = e.do(t, httptest.NewRequest(http.MethodGet, "/api/categories/groups", nil), false)
	require.Equal(t, 200, rec.Code)
	body = decode(t, rec)
	groups := body["data"].([]any)
	require.NotEmpty(t, groups)
	for _, g := range groups {
		assert.NotEmpty(t, g.(map[string]any)["categories"])
	}
}
