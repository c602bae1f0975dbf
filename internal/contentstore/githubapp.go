// Mints GitHub App installation tokens for the GitHub store.

package contentstore

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// AppOptions identifies a GitHub App installation.
type AppOptions struct {
	// BaseURL defaults to DefaultGitHubURL.
	BaseURL        string
	AppID          int64
	InstallationID int64
	// PrivateKeyPEM is the app's PEM encoded RSA private key.
	PrivateKeyPEM []byte
	HTTPClient    *http.Client
}

// AppTokenSource returns a token source yielding installation access tokens.
// Tokens are reused until five minutes before they expire.
func AppTokenSource(opts AppOptions) (oauth2.TokenSource, error) {
	if opts.AppID == 0 || opts.InstallationID == 0 {
		return nil, fmt.Errorf("github app id and installation id are required")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(opts.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse github app private key: %w", err)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultGitHubURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	src := &appTokenSource{
		baseURL:        strings.TrimSuffix(opts.BaseURL, "/"),
		appID:          opts.AppID,
		installationID: opts.InstallationID,
		key:            key,
		client:         opts.HTTPClient,
	}
	return oauth2.ReuseTokenSource(nil, src), nil
}

type appTokenSource struct {
	baseURL        string
	appID          int64
	installationID int64
	key            *rsa.PrivateKey
	client         *http.Client
}

// appJWT creates the short lived JWT that authenticates as the app itself.
func (s *appTokenSource) appJWT(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)), // 60s clock drift
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		Issuer:    strconv.FormatInt(s.appID, 10),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
}

func (s *appTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	signed, err := s.appJWT(time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate JWT: %w", err)
	}
	u := fmt.Sprintf("%s/app/installations/%d/access_tokens", s.baseURL, s.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request installation token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &oauth2.Token{
		AccessToken: result.Token,
		TokenType:   "token",
		Expiry:      result.ExpiresAt.Add(-5 * time.Minute),
	}, nil
}
