package kusto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jhzhu89/mcp-server-azure-kusto/pkg/adapter"
)

// wireColumn is a column descriptor in both v1 and v2 payloads.
// v1 management responses carry DataType (CLR name) alongside ColumnType.
type wireColumn struct {
	ColumnName string `json:"ColumnName"`
	ColumnType string `json:"ColumnType"`
	DataType   string `json:"DataType"`
}

func (c wireColumn) resultColumn() adapter.ResultColumn {
	typ := c.ColumnType
	if typ == "" {
		typ = strings.ToLower(c.DataType)
	}
	return adapter.ResultColumn{Name: c.ColumnName, Type: typ}
}

// apiError is the OneApi error shape used in HTTP error bodies and inline frames.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	AtMessage string `json:"@message"`
	Context   struct {
		ActivityID string `json:"activityId"`
	} `json:"@context"`
}

func (e apiError) requestError(status int) *adapter.RequestError {
	msg := e.AtMessage
	if msg == "" {
		msg = e.Message
	}
	return &adapter.RequestError{
		StatusCode: status,
		Code:       e.Code,
		Message:    msg,
		ActivityID: e.Context.ActivityID,
	}
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// v2Frame is one element of a v2 query response array.
type v2Frame struct {
	FrameType    string            `json:"FrameType"`
	TableKind    string            `json:"TableKind"`
	TableName    string            `json:"TableName"`
	Columns      []wireColumn      `json:"Columns"`
	Rows         []json.RawMessage `json:"Rows"`
	HasErrors    bool              `json:"HasErrors"`
	OneAPIErrors []errorEnvelope   `json:"OneApiErrors"`
}

// v1Response is the management endpoint response.
type v1Response struct {
	Tables []struct {
		TableName string            `json:"TableName"`
		Columns   []wireColumn      `json:"Columns"`
		Rows      []json.RawMessage `json:"Rows"`
	} `json:"Tables"`
}

// decodeV2 parses a v2 frame array and returns the primary result tables.
func decodeV2(r io.Reader) (*adapter.Response, error) {
	var frames []v2Frame
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&frames); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}

	resp := &adapter.Response{}
	for _, f := range frames {
		switch f.FrameType {
		case "DataTable":
			if f.TableKind != "PrimaryResult" {
				continue
			}
			table, err := buildTable(f.TableName, f.TableKind, f.Columns, f.Rows)
			if err != nil {
				return nil, err
			}
			resp.PrimaryResults = append(resp.PrimaryResults, table)
		case "DataSetCompletion":
			if f.HasErrors && len(f.OneAPIErrors) > 0 {
				return nil, f.OneAPIErrors[0].Error.requestError(0)
			}
		}
	}
	return resp, nil
}

// decodeV1 parses a management response. The first table is the primary result.
func decodeV1(r io.Reader) (*adapter.Response, error) {
	var body v1Response
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode management response: %w", err)
	}

	resp := &adapter.Response{}
	if len(body.Tables) == 0 {
		return resp, nil
	}
	t := body.Tables[0]
	table, err := buildTable(t.TableName, "PrimaryResult", t.Columns, t.Rows)
	if err != nil {
		return nil, err
	}
	resp.PrimaryResults = append(resp.PrimaryResults, table)
	return resp, nil
}

// buildTable decodes positional rows. An object in place of a row is an
// inline error reported by the service after partial results.
func buildTable(name, kind string, cols []wireColumn, rawRows []json.RawMessage) (*adapter.Table, error) {
	table := &adapter.Table{
		Name:    name,
		Kind:    kind,
		Columns: make([]adapter.ResultColumn, len(cols)),
		Rows:    make([][]any, 0, len(rawRows)),
	}
	for i, c := range cols {
		table.Columns[i] = c.resultColumn()
	}

	for _, raw := range rawRows {
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '{' {
			var inline struct {
				OneAPIErrors []errorEnvelope `json:"OneApiErrors"`
			}
			if err := json.Unmarshal(raw, &inline); err == nil && len(inline.OneAPIErrors) > 0 {
				return nil, inline.OneAPIErrors[0].Error.requestError(0)
			}
			return nil, fmt.Errorf("unexpected row object in table %s", name)
		}

		var row []any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode row in table %s: %w", name, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// decodeError turns a non-2xx response body into a RequestError.
func decodeError(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && (env.Error.Message != "" || env.Error.AtMessage != "") {
		return env.Error.requestError(status)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = strconv.Itoa(status)
	}
	return &adapter.RequestError{StatusCode: status, Message: msg}
}

// requestBody is the JSON payload for both endpoints.
type requestBody struct {
	DB         string            `json:"db"`
	CSL        string            `json:"csl"`
	Properties requestProperties `json:"properties"`
}

type requestProperties struct {
	Options    map[string]any    `json:"Options"`
	Parameters map[string]string `json:"Parameters,omitempty"`
}

// formatTimespan renders d as a Kusto timespan literal (hh:mm:ss[.fff]).
func formatTimespan(d time.Duration) string {
	h := int64(d / time.Hour)
	m := int64(d/time.Minute) % 60
	s := int64(d/time.Second) % 60
	ms := int64(d/time.Millisecond) % 1000
	if ms > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatParameter renders a bound value in the textual form the service
// parses against the declared parameter type.
func formatParameter(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case json.Number:
		return val.String(), nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case time.Duration:
		return formatTimespan(val), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("unsupported parameter value %T: %w", v, err)
		}
		return string(b), nil
	}
}
