package gcs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const storageScope = "https://www.googleapis.com/auth/devstorage.read_write"

// serviceAccountTokenSource exchanges a signed JWT grant for an OAuth
// access token, caching it until shortly before expiry.
type serviceAccountTokenSource struct {
	clientEmail string
	privateKey  any
	tokenURI    string
	http        *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newServiceAccountTokenSource(credentialsJSON string) (*serviceAccountTokenSource, error) {
	var creds struct {
		Type        string `json:"type"`
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
		TokenURI    string `json:"token_uri"`
	}
	if err := json.Unmarshal([]byte(credentialsJSON), &creds); err != nil {
		return nil, fmt.Errorf("parsing service account json: %w", err)
	}
	if creds.Type != "service_account" {
		return nil, fmt.Errorf("unsupported credential type %q", creds.Type)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	tokenURI := creds.TokenURI
	if tokenURI == "" {
		tokenURI = "https://oauth2.googleapis.com/token"
	}

	return &serviceAccountTokenSource{
		clientEmail: creds.ClientEmail,
		privateKey:  key,
		tokenURI:    tokenURI,
		http:        &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (s *serviceAccountTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires) {
		return s.token, nil
	}

	now := time.Now()
	grant := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   s.clientEmail,
		"scope": storageScope,
		"aud":   s.tokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	assertion, err := grant.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing token grant: %w", err)
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchanging token grant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	s.token = payload.AccessToken
	s.expires = now.Add(time.Duration(payload.ExpiresIn)*time.Second - time.Minute)
	return s.token, nil
}
