// Package auth provisions authenticated executors for a target cluster.
//
// Two modes are supported. In application mode the server authenticates as
// itself with client credentials. In delegated mode every request carries a
// user assertion that is exchanged on-behalf-of the user. Token sources are
// cached per identity and cluster so tokens are reused across requests.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Mode selects how the server obtains tokens.
type Mode string

// Supported modes.
const (
	ModeApplication Mode = "application"
	ModeDelegated   Mode = "delegated"
	// ModeNone sends unauthenticated requests, for local emulators.
	ModeNone Mode = "none"
)

// DefaultAuthorityHost is the public cloud identity endpoint.
const DefaultAuthorityHost = "https://login.microsoftonline.com"

const oboGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

var (
	// ErrAssertionRequired is returned in delegated mode when no assertion is supplied.
	ErrAssertionRequired = errors.New("user assertion token required for delegated authentication")
	// ErrAssertionExpired is returned when the supplied assertion has expired.
	ErrAssertionExpired = errors.New("user assertion token has expired")
	// ErrClusterRequired is returned when a target has no cluster URL.
	ErrClusterRequired = errors.New("no Kusto cluster URL provided in arguments. You must provide 'kusto_cluster_url' in the tool arguments")
)

// Config holds credential settings.
type Config struct {
	Mode          Mode
	TenantID      string
	ClientID      string
	ClientSecret  string
	AuthorityHost string
}

// Options configure a Provider beyond credentials.
type Options struct {
	// AdapterType is the registered executor type (default "kusto").
	AdapterType string
	// AdapterParams are passed through to the executor.
	AdapterParams map[string]any
	// Application is reported to the cluster.
	Application string
	// HTTPClient is used for both token and query requests.
	HTTPClient *http.Client
}

// Target identifies the cluster and caller of one request.
type Target struct {
	ClusterURL    string
	UserAssertion string
}

// Provider hands out executors bound to a target cluster.
type Provider struct {
	cfg    Config
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	sources map[string]*cachedSource
}

type cachedSource struct {
	ts        oauth2.TokenSource
	expiresAt time.Time // zero means no expiry
}

// NewProvider creates a provider. Call Validate on cfg first.
// If logger is nil, a discard logger is used.
func NewProvider(cfg Config, opts Options, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.AuthorityHost == "" {
		cfg.AuthorityHost = DefaultAuthorityHost
	}
	if opts.AdapterType == "" {
		opts.AdapterType = "kusto"
	}
	return &Provider{
		cfg:     cfg,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		sources: make(map[string]*cachedSource),
	}
}

// Validate checks that cfg has what its mode needs.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeNone:
		return nil
	case ModeApplication, ModeDelegated:
	default:
		return fmt.Errorf("auth mode must be one of application, delegated, none, got: %q", c.Mode)
	}

	var errs []error
	if c.TenantID == "" {
		errs = append(errs, fmt.Errorf("tenant id is required for %s auth", c.Mode))
	}
	if c.ClientID == "" {
		errs = append(errs, fmt.Errorf("client id is required for %s auth", c.Mode))
	}
	if c.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("client secret is required for %s auth", c.Mode))
	}
	if c.AuthorityHost != "" {
		if u, err := url.Parse(c.AuthorityHost); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("authority host must be an absolute URL, got: %q", c.AuthorityHost))
		}
	}
	return errors.Join(errs...)
}

// Executor returns an executor for target authenticated per the configured mode.
func (p *Provider) Executor(ctx context.Context, target Target) (adapter.Executor, error) {
	ts, err := p.TokenSource(ctx, target)
	if err != nil {
		return nil, err
	}
	return adapter.NewExecutor(adapter.Config{
		Type:        p.opts.AdapterType,
		ClusterURL:  target.ClusterURL,
		TokenSource: ts,
		HTTPClient:  p.opts.HTTPClient,
		Application: p.opts.Application,
		Params:      p.opts.AdapterParams,
	}, p.logger)
}

// TokenSource returns a cached token source for target. It returns nil in
// ModeNone.
func (p *Provider) TokenSource(_ context.Context, target Target) (oauth2.TokenSource, error) {
	cluster := strings.TrimRight(strings.TrimSpace(target.ClusterURL), "/")
	if cluster == "" {
		return nil, ErrClusterRequired
	}

	switch p.cfg.Mode {
	case ModeNone:
		return nil, nil
	case ModeDelegated:
		return p.delegatedSource(cluster, target.UserAssertion)
	default:
		return p.cached(fingerprint(string(ModeApplication), cluster), time.Time{}, func() oauth2.TokenSource {
			p.logger.Debug("creating application token source", slog.String("cluster", cluster))
			return p.credentials(cluster, nil).TokenSource(p.tokenContext())
		}), nil
	}
}

func (p *Provider) delegatedSource(cluster, assertion string) (oauth2.TokenSource, error) {
	if assertion == "" {
		return nil, ErrAssertionRequired
	}

	claims, err := inspectAssertion(assertion)
	if err != nil {
		return nil, err
	}
	exp, _ := claims.GetExpirationTime()
	var expiresAt time.Time
	if exp != nil {
		expiresAt = exp.Time
		if !expiresAt.After(p.now()) {
			return nil, ErrAssertionExpired
		}
	}

	return p.cached(fingerprint(string(ModeDelegated), cluster, assertion), expiresAt, func() oauth2.TokenSource {
		p.logger.Debug("creating on-behalf-of token source",
			slog.String("cluster", cluster),
			slog.String("oid", claimString(claims, "oid")),
			slog.String("upn", claimString(claims, "upn")))
		return p.credentials(cluster, url.Values{
			"grant_type":          {oboGrantType},
			"assertion":           {assertion},
			"requested_token_use": {"on_behalf_of"},
		}).TokenSource(p.tokenContext())
	}), nil
}

// cached returns the source stored under key, creating it with build if
// missing. Expired entries are pruned on every call.
func (p *Provider) cached(key string, expiresAt time.Time, build func() oauth2.TokenSource) oauth2.TokenSource {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for k, s := range p.sources {
		if !s.expiresAt.IsZero() && !s.expiresAt.After(now) {
			delete(p.sources, k)
		}
	}

	if s, ok := p.sources[key]; ok {
		return s.ts
	}
	ts := build()
	p.sources[key] = &cachedSource{ts: ts, expiresAt: expiresAt}
	return ts
}

func (p *Provider) credentials(cluster string, params url.Values) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:       p.cfg.ClientID,
		ClientSecret:   p.cfg.ClientSecret,
		TokenURL:       strings.TrimRight(p.cfg.AuthorityHost, "/") + "/" + url.PathEscape(p.cfg.TenantID) + "/oauth2/v2.0/token",
		Scopes:         []string{cluster + "/.default"},
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInParams,
	}
}

// tokenContext is detached from any request because token sources outlive it.
func (p *Provider) tokenContext() context.Context {
	ctx := context.Background()
	if p.opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.opts.HTTPClient)
	}
	return ctx
}

// inspectAssertion decodes the assertion claims without verifying the
// signature. The identity provider verifies it during the exchange.
func inspectAssertion(assertion string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(assertion, claims); err != nil {
		return nil, fmt.Errorf("invalid user assertion: %w", err)
	}
	return claims, nil
}

func claimString(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

func fingerprint(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheSize reports the number of cached token sources.
func (p *Provider) CacheSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sources)
}
