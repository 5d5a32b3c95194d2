package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/clientcredentials"

	"knowledgeagent/internal/config"
	"knowledgeagent/internal/logger"
)

// Exchanger acquires app-only tokens via client credentials and downstream,
// user-scoped tokens via the on-behalf-of flow, caching the latter in Redis
// keyed by (userID, resource) since they carry the user's own permissions
// and are safe to reuse until they expire.
type Exchanger struct {
	tenantID     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	rdb          *redis.Client
	appOnly      *clientcredentials.Config
}

func NewExchanger(cfg *config.Config, rdb *redis.Client) *Exchanger {
	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.ADTenantID)

	return &Exchanger{
		tenantID:     cfg.ADTenantID,
		clientID:     cfg.ADClientID,
		clientSecret: cfg.ADClientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		rdb:          rdb,
		appOnly: &clientcredentials.Config{
			ClientID:     cfg.ADClientID,
			ClientSecret: cfg.ADClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{"https://graph.microsoft.com/.default"},
		},
	}
}

// AppOnlyToken returns a tenant-wide app token, used for the periodic
// indexing pipeline where no end user is present.
func (e *Exchanger) AppOnlyToken(ctx context.Context) (string, error) {
	tok, err := e.appOnly.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("app-only token acquisition failed: %w", err)
	}
	return tok.AccessToken, nil
}

// DownstreamToken exchanges a user's delegated bearer token for a token
// scoped to resource, via the OAuth2 on-behalf-of grant. Cached in Redis
// under (userID, resource) with a TTL derived from the issued token's expiry.
func (e *Exchanger) DownstreamToken(ctx context.Context, userID, delegatedBearer, resource string) (string, error) {
	cacheKey := fmt.Sprintf("obo:%s:%s", userID, resource)

	if cached, err := e.rdb.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
		return cached, nil
	}

	tokenURL := fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", e.tenantID)

	form := url.Values{
		"grant_type":          {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"client_id":           {e.clientID},
		"client_secret":       {e.clientSecret},
		"assertion":           {delegatedBearer},
		"scope":               {resource + "/.default"},
		"requested_token_use": {"on_behalf_of"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("obo exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("obo exchange failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("obo exchange response decode failed: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("obo exchange returned an empty token")
	}

	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl > time.Minute {
		ttl -= time.Minute // expire the cache entry slightly ahead of the token itself
	}
	if err := e.rdb.Set(ctx, cacheKey, body.AccessToken, ttl).Err(); err != nil {
		logger.Warn("failed to cache downstream token", "error", err)
	}

	return body.AccessToken, nil
}
