package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jhzhu89/mcp-server-azure-kusto/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapters/kusto"
)

const testCluster = "https://mycluster.eastus.kusto.windows.net"

// tokenServer is a fake identity endpoint that records submitted forms.
type tokenServer struct {
	*httptest.Server
	mu    sync.Mutex
	paths []string
	forms []url.Values
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		ts.mu.Lock()
		ts.paths = append(ts.paths, r.URL.Path)
		ts.forms = append(ts.forms, r.PostForm)
		n := len(ts.forms)
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-" + string(rune('0'+n)),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) requests() ([]string, []url.Values) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]string(nil), ts.paths...), append([]url.Values(nil), ts.forms...)
}

func signedAssertion(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"oid": "00000000-0000-0000-0000-000000000001",
		"upn": "user@example.com",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func testConfig(mode Mode, authority string) Config {
	return Config{
		Mode:          mode,
		TenantID:      "tenant-1",
		ClientID:      "client-1",
		ClientSecret:  "secret-1",
		AuthorityHost: authority,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{"none needs nothing", Config{Mode: ModeNone}, nil},
		{"application complete", testConfig(ModeApplication, ""), nil},
		{"unknown mode", Config{Mode: "managed"}, []string{"auth mode must be one of"}},
		{
			name:    "delegated missing everything",
			cfg:     Config{Mode: ModeDelegated},
			wantErr: []string{"tenant id is required", "client id is required", "client secret is required"},
		},
		{
			name:    "relative authority",
			cfg:     testConfig(ModeApplication, "login.example"),
			wantErr: []string{"authority host must be an absolute URL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestProvider_Application(t *testing.T) {
	idp := newTokenServer(t)
	p := NewProvider(testConfig(ModeApplication, idp.URL), Options{HTTPClient: idp.Client()}, testutil.NewTestLogger(t))

	ts, err := p.TokenSource(context.Background(), Target{ClusterURL: testCluster + "/"})
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok.AccessToken)

	again, err := p.TokenSource(context.Background(), Target{ClusterURL: testCluster})
	require.NoError(t, err)
	_, err = again.Token()
	require.NoError(t, err)
	assert.Equal(t, 1, p.CacheSize())

	paths, forms := idp.requests()
	require.Len(t, forms, 1, "cached source reuses the token")
	assert.Equal(t, "/tenant-1/oauth2/v2.0/token", paths[0])
	assert.Equal(t, "client_credentials", forms[0].Get("grant_type"))
	assert.Equal(t, testCluster+"/.default", forms[0].Get("scope"))
	assert.Equal(t, "client-1", forms[0].Get("client_id"))
	assert.Equal(t, "secret-1", forms[0].Get("client_secret"))
}

func TestProvider_Delegated(t *testing.T) {
	idp := newTokenServer(t)
	p := NewProvider(testConfig(ModeDelegated, idp.URL), Options{HTTPClient: idp.Client()}, testutil.NewTestLogger(t))
	assertion := signedAssertion(t, time.Now().Add(time.Hour))

	ts, err := p.TokenSource(context.Background(), Target{ClusterURL: testCluster, UserAssertion: assertion})
	require.NoError(t, err)
	_, err = ts.Token()
	require.NoError(t, err)

	_, forms := idp.requests()
	require.Len(t, forms, 1)
	assert.Equal(t, oboGrantType, forms[0].Get("grant_type"))
	assert.Equal(t, assertion, forms[0].Get("assertion"))
	assert.Equal(t, "on_behalf_of", forms[0].Get("requested_token_use"))
	assert.Equal(t, testCluster+"/.default", forms[0].Get("scope"))

	other := signedAssertion(t, time.Now().Add(2*time.Hour))
	_, err = p.TokenSource(context.Background(), Target{ClusterURL: testCluster, UserAssertion: other})
	require.NoError(t, err)
	assert.Equal(t, 2, p.CacheSize(), "each user gets its own source")
}

func TestProvider_DelegatedErrors(t *testing.T) {
	p := NewProvider(testConfig(ModeDelegated, ""), Options{}, nil)

	tests := []struct {
		name    string
		target  Target
		wantErr error
		wantMsg string
	}{
		{"no cluster", Target{UserAssertion: "x"}, ErrClusterRequired, ""},
		{"no assertion", Target{ClusterURL: testCluster}, ErrAssertionRequired, ""},
		{"expired", Target{ClusterURL: testCluster, UserAssertion: signedAssertion(t, time.Now().Add(-time.Minute))}, ErrAssertionExpired, ""},
		{"malformed", Target{ClusterURL: testCluster, UserAssertion: "not-a-jwt"}, nil, "invalid user assertion"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.TokenSource(context.Background(), tt.target)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestProvider_PrunesExpiredSources(t *testing.T) {
	p := NewProvider(testConfig(ModeDelegated, ""), Options{}, nil)
	now := time.Now()
	p.now = func() time.Time { return now }

	_, err := p.TokenSource(context.Background(), Target{ClusterURL: testCluster, UserAssertion: signedAssertion(t, now.Add(time.Minute))})
	require.NoError(t, err)
	require.Equal(t, 1, p.CacheSize())

	now = now.Add(2 * time.Minute)
	_, err = p.TokenSource(context.Background(), Target{ClusterURL: testCluster, UserAssertion: signedAssertion(t, now.Add(time.Hour))})
	require.NoError(t, err)
	assert.Equal(t, 1, p.CacheSize())
}

func TestProvider_Executor(t *testing.T) {
	p := NewProvider(Config{Mode: ModeNone}, Options{}, nil)

	exec, err := p.Executor(context.Background(), Target{ClusterURL: testCluster})
	require.NoError(t, err)
	assert.NotNil(t, exec)

	_, err = p.Executor(context.Background(), Target{ClusterURL: "not a url"})
	assert.Error(t, err)

	_, err = p.Executor(context.Background(), Target{})
	assert.ErrorIs(t, err, ErrClusterRequired)
}
