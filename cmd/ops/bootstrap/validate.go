package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"tubepost/internal/config"
)

// ValidationResult holds the outcome of one check in a form suitable for
// the report printed by the tool.
type ValidationResult struct {
	Valid   bool
	Message string
}

func ok(format string, args ...any) ValidationResult {
	return ValidationResult{Valid: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) ValidationResult {
	return ValidationResult{Valid: false, Message: fmt.Sprintf(format, args...)}
}

// HTTPClient is the interface used by validators that make outbound calls.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DatabaseConnector abstracts the database probe for testing. Connect must
// close the connection before returning.
type DatabaseConnector interface {
	Connect(ctx context.Context, dsn string) error
}

// PgxConnector opens and immediately closes a real connection.
type PgxConnector struct{}

func (c *PgxConnector) Connect(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	return conn.Close(ctx)
}

// Validator checks operator-supplied values, optionally probing the
// services they point at.
type Validator struct {
	httpClient HTTPClient
	dbConn     DatabaseConnector
	stripeURL  string
	youtubeURL string
	// Offline skips every network probe and keeps only format checks.
	Offline bool
}

// NewValidator creates a Validator with production dependencies.
func NewValidator() *Validator {
	return NewValidatorWithDeps(&http.Client{Timeout: 10 * time.Second}, &PgxConnector{})
}

// NewValidatorWithDeps creates a Validator with injected dependencies.
func NewValidatorWithDeps(httpClient HTTPClient, dbConn DatabaseConnector) *Validator {
	return &Validator{
		httpClient: httpClient,
		dbConn:     dbConn,
		stripeURL:  "https://api.stripe.com",
		youtubeURL: "https://www.googleapis.com",
	}
}

// validateTimeout bounds each active probe, DNS and TLS included.
const validateTimeout = 15 * time.Second

// ValidateDatabaseURL checks the DSN scheme and, unless offline, that the
// database accepts a connection with it.
func (v *Validator) ValidateDatabaseURL(ctx context.Context, rawURL string) ValidationResult {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fail("database URL must not be empty")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fail("invalid URL format: %v", err)
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return fail("expected postgres:// or postgresql:// scheme, got %q", parsed.Scheme)
	}
	if v.Offline {
		return ok("database URL well formed (host=%s)", parsed.Hostname())
	}

	connCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()
	if err := v.dbConn.Connect(connCtx, rawURL); err != nil {
		return fail("connection failed: %v", err)
	}
	return ok("database connection verified (host=%s)", parsed.Hostname())
}

// stripeKeyRegex matches sk_(test|live)_ followed by 24+ alphanumerics.
var stripeKeyRegex = regexp.MustCompile(`^sk_(test|live)_[0-9a-zA-Z]{24,}$`)

// ValidateStripeKey checks the key format and calls GET /v1/account, the
// lightest endpoint that proves the key works without side effects.
func (v *Validator) ValidateStripeKey(ctx context.Context, key string) ValidationResult {
	key = strings.TrimSpace(key)
	if key == "" {
		return fail("Stripe secret key must not be empty")
	}
	if !stripeKeyRegex.MatchString(key) {
		return fail("Stripe secret key must match format sk_(test|live)_[alphanumeric 24+ chars]")
	}
	mode := "test"
	if strings.HasPrefix(key, "sk_live_") {
		mode = "live"
	}
	if v.Offline {
		return ok("Stripe key well formed [%s mode]", mode)
	}

	body, status, err := v.get(ctx, v.stripeURL+"/v1/account", "Bearer "+key)
	if err != nil {
		return fail("Stripe API probe failed: %v", err)
	}
	switch {
	case status == http.StatusUnauthorized:
		return fail("Stripe API returned 401 Unauthorized: key is invalid or revoked")
	case status != http.StatusOK:
		return fail("Stripe API returned HTTP %d: %s", status, truncateBody(body, 200))
	}

	var account struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &account)
	return ok("Stripe key verified [%s mode] (account: %s)", mode, account.ID)
}

// ValidateYouTubeAPIKey spends one quota unit on i18nRegions.list to check
// the key used by LOOKUP_STRATEGY=api.
func (v *Validator) ValidateYouTubeAPIKey(ctx context.Context, key string) ValidationResult {
	key = strings.TrimSpace(key)
	if key == "" {
		return fail("YouTube API key must not be empty")
	}
	if v.Offline {
		return ok("YouTube API key present")
	}

	q := url.Values{"part": {"snippet"}, "key": {key}}
	body, status, err := v.get(ctx, v.youtubeURL+"/youtube/v3/i18nRegions?"+q.Encode(), "")
	if err != nil {
		return fail("YouTube API probe failed: %v", err)
	}
	if status != http.StatusOK {
		return fail("YouTube API returned HTTP %d: %s", status, truncateBody(body, 200))
	}
	return ok("YouTube API key verified")
}

// ValidateOAuthClients parses the client pool the way the server does.
func (v *Validator) ValidateOAuthClients(_ context.Context, raw string) ValidationResult {
	clients, err := config.ParseOAuthClients(raw)
	if err != nil {
		return fail("%v", err)
	}
	return ok("%d OAuth client(s) parsed", len(clients))
}

// ValidateCredentialKey checks that the key decodes to exactly 32 bytes.
func (v *Validator) ValidateCredentialKey(_ context.Context, key string) ValidationResult {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(key))
	if err != nil {
		return fail("credential key is not valid base64: %v", err)
	}
	if len(raw) != tokenByteLength {
		return fail("credential key must decode to %d bytes, got %d", tokenByteLength, len(raw))
	}
	return ok("credential key is %d bytes", tokenByteLength)
}

func (v *Validator) get(ctx context.Context, target, authorization string) ([]byte, int, error) {
	probeCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	req.Header.Set("User-Agent", "TubePost-Bootstrap/1.0")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return body, resp.StatusCode, nil
}

func truncateBody(body []byte, n int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
