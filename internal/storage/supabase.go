package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

/*
Supabase wraps the Supabase Storage REST API.

Authorization: a legacy service_role JWT needs both `apikey` and
`Authorization: Bearer <token>`; both are always sent.
*/
type Supabase struct {
	baseURL string // e.g. https://<project>.supabase.co
	apiKey  string // service_role JWT or secret API key
	bucket  string
	client  *http.Client
	// signExpiry > 0 means the bucket is private and URL returns signed links.
	signExpiry time.Duration
}

type SupabaseOptions struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
	// Private switches URL from public links to signed links valid for SignExpiry.
	Private    bool
	SignExpiry time.Duration
}

func NewSupabase(o SupabaseOptions) *Supabase {
	s := &Supabase{
		baseURL: strings.TrimRight(o.BaseURL, "/"),
		apiKey:  o.ServiceKey,
		bucket:  o.Bucket,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	if o.Private {
		s.signExpiry = o.SignExpiry
		if s.signExpiry <= 0 {
			s.signExpiry = time.Hour
		}
	}
	return s
}

func (s *Supabase) objectURL(prefix, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s%s/%s", s.baseURL, prefix, url.PathEscape(s.bucket), escapeKey(key))
}

func (s *Supabase) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

// Put uploads a new object: POST /storage/v1/object/{bucket}/{objectName}
func (s *Supabase) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	req, err := s.newRequest(ctx, http.MethodPost, s.objectURL("", key), r)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	if size >= 0 {
		req.ContentLength = size
	}

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("supabase upload error: %s | %s", res.Status, string(body))
	}
	return nil
}

// URL returns the link stored with the document row.
func (s *Supabase) URL(ctx context.Context, key string) (string, error) {
	if s.signExpiry > 0 {
		return s.SignedURL(ctx, key, s.signExpiry)
	}
	return s.PublicURL(key), nil
}

// PublicURL: /storage/v1/object/public/{bucket}/{objectName}. No request is made.
func (s *Supabase) PublicURL(key string) string {
	return s.objectURL("public/", key)
}

// SignedURL creates a short-lived signed URL:
// POST /storage/v1/object/sign/{bucket}/{objectName}  body: {"expiresIn": <seconds>}
func (s *Supabase) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	body, _ := json.Marshal(map[string]int{"expiresIn": int(expiry / time.Second)})
	req, err := s.newRequest(ctx, http.MethodPost, s.objectURL("sign/", key), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("supabase sign error: %s | %s", res.Status, string(b))
	}

	var out struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.SignedURL == "" {
		return "", fmt.Errorf("empty signedURL in response")
	}
	// The API answers with a path relative to /storage/v1.
	return s.baseURL + "/storage/v1" + out.SignedURL, nil
}

// BulkDelete removes several objects in one call:
// DELETE /storage/v1/object/{bucket}  body: {"prefixes": [...]}
func (s *Supabase) BulkDelete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	u := fmt.Sprintf("%s/storage/v1/object/%s", s.baseURL, url.PathEscape(s.bucket))
	body, _ := json.Marshal(map[string][]string{"prefixes": keys})
	req, err := s.newRequest(ctx, http.MethodDelete, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("supabase bulk delete error: %s | %s", res.Status, string(b))
	}
	return nil
}

// escapeKey escapes each path segment but keeps the separators.
func escapeKey(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
