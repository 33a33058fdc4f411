// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

// Column is a result column served by FakeCluster.
type Column struct {
	Name string
	Type string
}

// Result is the answer to one statement. A non-empty Error is reported as a
// service error with status 400.
type Result struct {
	Columns []Column
	Rows    [][]any
	Error   string
}

// Request is a statement received by FakeCluster.
type Request struct {
	Path       string
	Database   string
	Statement  string
	Parameters map[string]string
}

// FakeCluster is an in-process Kusto REST endpoint. Queries are answered in
// the v2 frame format and management commands in the v1 table format.
type FakeCluster struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	respond  func(statement string) Result
}

// NewFakeCluster starts a fake cluster that answers every statement through respond.
func NewFakeCluster(t *testing.T, respond func(statement string) Result) *FakeCluster {
	t.Helper()
	fc := &FakeCluster{respond: respond}
	fc.Server = httptest.NewServer(http.HandlerFunc(fc.serve))
	t.Cleanup(fc.Close)
	return fc
}

// Requests returns the statements received so far.
func (fc *FakeCluster) Requests() []Request {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]Request(nil), fc.requests...)
}

func (fc *FakeCluster) serve(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DB         string `json:"db"`
		CSL        string `json:"csl"`
		Properties struct {
			Parameters map[string]string `json:"Parameters"`
		} `json:"properties"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fc.mu.Lock()
	fc.requests = append(fc.requests, Request{
		Path:       r.URL.Path,
		Database:   body.DB,
		Statement:  body.CSL,
		Parameters: body.Properties.Parameters,
	})
	fc.mu.Unlock()

	res := fc.respond(body.CSL)
	w.Header().Set("Content-Type", "application/json")
	if res.Error != "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "BadRequest", "message": res.Error},
		})
		return
	}

	cols := make([]map[string]string, len(res.Columns))
	for i, c := range res.Columns {
		cols[i] = map[string]string{"ColumnName": c.Name, "ColumnType": c.Type}
	}
	rows := res.Rows
	if rows == nil {
		rows = [][]any{}
	}

	if strings.HasSuffix(r.URL.Path, "/mgmt") {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Tables": []any{map[string]any{"TableName": "Table_0", "Columns": cols, "Rows": rows}},
		})
		return
	}
	_ = json.NewEncoder(w).Encode([]any{
		map[string]any{"FrameType": "DataSetHeader", "IsProgressive": false, "Version": "v2.0"},
		map[string]any{"FrameType": "DataTable", "TableId": 1, "TableKind": "PrimaryResult", "TableName": "PrimaryResult", "Columns": cols, "Rows": rows},
		map[string]any{"FrameType": "DataSetCompletion", "HasErrors": false, "Cancelled": false},
	})
}

// ExecuteCommand runs cmd with args and returns captured stdout and stderr.
func ExecuteCommand(t *testing.T, cmd *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// AssertContains checks that the string contains every expected substring.
func AssertContains(t *testing.T, s string, expected ...string) {
	t.Helper()
	for _, e := range expected {
		if !strings.Contains(s, e) {
			t.Errorf("string %q does not contain expected %q", s, e)
		}
	}
}
