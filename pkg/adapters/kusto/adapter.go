package kusto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/oauth2"
)

const (
	queryPath = "/v2/rest/query"
	mgmtPath  = "/v1/rest/mgmt"

	defaultApplication = "mcp-kusto-server"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 1 << 20
)

// Adapter implements adapter.Executor over the Kusto REST API.
type Adapter struct {
	cluster     *url.URL
	client      *http.Client
	tokens      oauth2.TokenSource
	application string
	params      Params
	logger      *slog.Logger
}

// New creates an executor bound to cfg.ClusterURL.
// If logger is nil, a discard logger is used.
func New(cfg adapter.Config, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ClusterURL == "" {
		return nil, fmt.Errorf("cluster URL is required for kusto executor")
	}
	u, err := url.Parse(strings.TrimRight(cfg.ClusterURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid cluster URL %q: %w", cfg.ClusterURL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("invalid cluster URL %q: expected https://<cluster>", cfg.ClusterURL)
	}

	params, err := decodeParams(cfg.Params)
	if err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	app := cfg.Application
	if app == "" {
		app = defaultApplication
	}

	return &Adapter{
		cluster:     u,
		client:      client,
		tokens:      cfg.TokenSource,
		application: app,
		params:      params,
		logger:      logger.With("cluster", u.Host),
	}, nil
}

// Execute implements adapter.Executor. Statements starting with "." are
// management commands and go to the v1 endpoint; everything else is a query.
func (a *Adapter) Execute(ctx context.Context, database, statement string, props *adapter.RequestProperties) (*adapter.Response, error) {
	if props == nil {
		props = &adapter.RequestProperties{}
	}
	if database == "" {
		database = a.params.DefaultDatabase
	}

	mgmt := isManagementCommand(statement)
	path := queryPath
	if mgmt {
		path = mgmtPath
	}

	body := requestBody{
		DB:  database,
		CSL: statement,
		Properties: requestProperties{
			Options: map[string]any{},
		},
	}
	if props.Timeout > 0 {
		body.Properties.Options["servertimeout"] = formatTimespan(props.Timeout)
	}
	if len(props.Parameters) > 0 {
		body.Properties.Parameters = make(map[string]string, len(props.Parameters))
		for name, v := range props.Parameters {
			s, err := formatParameter(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", name, err)
			}
			body.Properties.Parameters[name] = s
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cluster.String()+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	requestID := "KMCP.execute;" + uuid.NewString()
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-ms-client-request-id", requestID)
	req.Header.Set("x-ms-app", a.application)
	// An unset header lets net/http negotiate gzip on its own.
	if a.params.compressionEnabled() {
		req.Header.Set("Accept-Encoding", "gzip")
	} else {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if a.tokens != nil {
		tok, err := a.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire token: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	a.logger.Debug("sending kusto request",
		slog.String("endpoint", path),
		slog.String("database", database),
		slog.Int("statement_length", len(statement)),
		slog.String("request_id", requestID))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kusto request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	reader, err := a.responseReader(resp)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("kusto response received",
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
		slog.String("request_id", requestID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(reader, maxErrorBody))
		return nil, decodeError(resp.StatusCode, raw)
	}

	if mgmt {
		return decodeV1(reader)
	}
	return decodeV2(reader)
}

// responseReader unwraps gzip bodies and applies the configured size cap.
func (a *Adapter) responseReader(resp *http.Response) (io.Reader, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip response: %w", err)
		}
		r = gz
	}
	if a.params.MaxResponseBytes > 0 {
		r = io.LimitReader(r, a.params.MaxResponseBytes)
	}
	return r, nil
}

// isManagementCommand reports whether statement is a control command.
func isManagementCommand(statement string) bool {
	return strings.HasPrefix(strings.TrimSpace(statement), ".")
}

// Ensure Adapter implements adapter.Executor interface
var _ adapter.Executor = (*Adapter)(nil)
