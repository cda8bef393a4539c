package gcs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cartfold/cartfold-backend/pkg/config"
)

const (
	uploadEndpoint = "https://storage.googleapis.com/upload/storage/v1/b/%s/o?uploadType=media&name=%s"
	publicURL      = "https://storage.googleapis.com/%s/%s"
	bucketEndpoint = "https://storage.googleapis.com/storage/v1/b/%s"
)

// Client uploads objects to a single GCS bucket over the JSON API.
type Client struct {
	bucket string
	http   *http.Client
	tokens tokenSource
}

// NewClient picks a token source from config. Explicit service account
// JSON wins, otherwise the GCE metadata server is used.
func NewClient(cfg config.GCSConfig, gcp config.GCPConfig) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	credentialsJSON := gcp.CredentialsJSON
	if credentialsJSON == "" && gcp.ApplicationCredentials != "" {
		raw, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		credentialsJSON = string(raw)
	}

	var tokens tokenSource
	if credentialsJSON != "" {
		source, err := newServiceAccountTokenSource(credentialsJSON)
		if err != nil {
			return nil, err
		}
		tokens = source
	} else {
		tokens = &metadataTokenSource{http: &http.Client{Timeout: 5 * time.Second}}
	}

	return &Client{
		bucket: cfg.BucketName,
		http:   &http.Client{Timeout: 30 * time.Second},
		tokens: tokens,
	}, nil
}

// Ping verifies the bucket is reachable with the current credentials.
func (c *Client) Ping(ctx context.Context) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(bucketEndpoint, c.bucket), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reaching gcs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gcs bucket check returned %d", resp.StatusCode)
	}
	return nil
}

// Upload streams the object and returns its public URL.
func (c *Client) Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf(uploadEndpoint, c.bucket, url.QueryEscape(objectName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading to gcs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("gcs upload returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	return fmt.Sprintf(publicURL, c.bucket, objectName), nil
}

type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

// metadataTokenSource fetches access tokens from the GCE metadata server,
// caching them until shortly before expiry.
type metadataTokenSource struct {
	http *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func (s *metadataTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires) {
		return s.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching metadata token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata token endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding metadata token: %w", err)
	}

	s.token = payload.AccessToken
	s.expires = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return s.token, nil
}
