package supastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eighthand/storefront/internal/domain"
)

// Client habla con la API REST de storage (compatible Supabase) para un bucket
// fijo. El nivel de autorización lo define la key con la que se construye:
// anon key queda sujeta a RLS, service role la saltea.
type Client struct {
	baseURL string
	key     string
	bucket  string
	http    *http.Client
}

func New(baseURL, key, bucket string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		bucket:  bucket,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiError struct {
	StatusCode any    `json:"statusCode"`
	ErrorCode  string `json:"error"`
	Message    string `json:"message"`
}

func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, strings.TrimPrefix(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("apikey", c.key)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "3600")
	req.Header.Set("x-upsert", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var ae apiError
	_ = json.Unmarshal(body, &ae)
	msg := ae.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = resp.Status
	}
	if isPolicyViolation(resp.StatusCode, msg) {
		return &domain.PolicyViolationError{Message: msg}
	}
	return fmt.Errorf("storage upload failed (%d): %s", resp.StatusCode, msg)
}

func (c *Client) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, strings.TrimPrefix(path, "/"))
}

type Bucket struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

// ListBuckets se usa solo por el health check de storage.
func (c *Client) ListBuckets(ctx context.Context) ([]Bucket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/storage/v1/bucket", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("apikey", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("list buckets failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var buckets []Bucket
	if err := json.NewDecoder(resp.Body).Decode(&buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

// Remove borra un objeto puntual. Se usa para limpiar los archivos de prueba
// del diagnóstico de configuración; la falla es tolerable para el caller.
func (c *Client) Remove(ctx context.Context, path string) error {
	u := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, strings.TrimPrefix(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("apikey", c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("storage remove failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func (c *Client) BucketName() string { return c.bucket }

// El mensaje exacto depende de la versión del backend; se matchea por contenido
// igual que hacía el endpoint de subida original.
func isPolicyViolation(status int, msg string) bool {
	if status == http.StatusForbidden {
		return true
	}
	low := strings.ToLower(msg)
	return strings.Contains(low, "row-level security") ||
		strings.Contains(low, "row level security") ||
		strings.Contains(low, "permission denied")
}
