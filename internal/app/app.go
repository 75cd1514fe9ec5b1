package app

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/eighthand/storefront/internal/adapters/httpserver"
	"github.com/eighthand/storefront/internal/adapters/repo/postgres"
	"github.com/eighthand/storefront/internal/adapters/storage/supastore"
	"github.com/eighthand/storefront/internal/domain"
	"github.com/eighthand/storefront/internal/usecase"
)

type App struct {
	DB          *gorm.DB
	ProductUC   *usecase.ProductUC
	ImageSetUC  *usecase.ImageSetUC
	UploadUC    *usecase.UploadUC
	StorageUC   *usecase.StorageUC
	Restricted  *supastore.Client
	Categories  domain.CategoryRepo
	OAuthConfig *oauth2.Config
}

func NewApp(db *gorm.DB) (*App, error) {
	prodRepo := postgres.NewProductRepo(db)
	imgRepo := postgres.NewProductImageRepo(db)
	catRepo := postgres.NewCategoryRepo(db)

	storageURL := os.Getenv("SUPABASE_URL")
	anonKey := os.Getenv("SUPABASE_ANON_KEY")
	serviceKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	bucket := os.Getenv("STORAGE_BUCKET")
	if bucket == "" {
		bucket = "eighthand"
	}
	if storageURL == "" || anonKey == "" {
		log.Warn().Msg("SUPABASE_URL / SUPABASE_ANON_KEY faltantes: las subidas van a fallar")
	}

	restricted := supastore.New(storageURL, anonKey, bucket)

	storageUC := &usecase.StorageUC{Restricted: restricted}
	if serviceKey != "" {
		storageUC.Elevated = supastore.New(storageURL, serviceKey, bucket)
	} else {
		// Sin service key el admin-upload degrada a error de configuración.
		log.Warn().Msg("SUPABASE_SERVICE_ROLE_KEY no configurada: admin-upload deshabilitado")
	}

	uploadUC := usecase.NewUploadUC(restricted, storageUC, &usecase.AdminUploader{Storage: storageUC})
	imageSetUC := &usecase.ImageSetUC{Resolver: uploadUC, Images: imgRepo, Products: prodRepo}
	productUC := &usecase.ProductUC{Products: prodRepo, Images: imgRepo, Categories: catRepo}

	var oauthCfg *oauth2.Config
	googleID := os.Getenv("GOOGLE_CLIENT_ID")
	googleSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if googleID != "" && googleSecret != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     googleID,
			ClientSecret: googleSecret,
			RedirectURL:  baseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	return &App{
		DB:          db,
		ProductUC:   productUC,
		ImageSetUC:  imageSetUC,
		UploadUC:    uploadUC,
		StorageUC:   storageUC,
		Restricted:  restricted,
		Categories:  catRepo,
		OAuthConfig: oauthCfg,
	}, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.ProductUC, a.ImageSetUC, a.UploadUC, a.StorageUC, bucketChecker{a.Restricted}, a.OAuthConfig)
}

// bucketChecker adapta el cliente de storage al contrato del health check.
type bucketChecker struct{ c *supastore.Client }

func (b bucketChecker) ListBuckets(ctx context.Context) ([]httpserver.BucketInfo, error) {
	buckets, err := b.c.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]httpserver.BucketInfo, 0, len(buckets))
	for _, bk := range buckets {
		out = append(out, httpserver.BucketInfo{Name: bk.Name, Public: bk.Public})
	}
	return out, nil
}

func (b bucketChecker) Remove(ctx context.Context, path string) error {
	return b.c.Remove(ctx, path)
}

func (b bucketChecker) BucketName() string { return b.c.BucketName() }

func (a *App) MigrateAndSeed() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.ProductImage{}, &domain.Category{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_product_images_product_id ON product_images(product_id)").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_product_images_display_order ON product_images(product_id, display_order)").Error
	// A lo sumo una principal por producto.
	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_product_images_main ON product_images(product_id) WHERE is_main").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)").Error

	return a.seedCategories()
}

// seedCategories carga la taxonomía completa en la tabla allow-list si falta.
func (a *App) seedCategories() error {
	names := []string{}
	seen := map[string]struct{}{}
	for _, g := range domain.CategoryGroups {
		for _, c := range g.Categories {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			names = append(names, c)
		}
	}
	return a.Categories.SeedNames(context.Background(), names)
}
