package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponse_Primary(t *testing.T) {
	table := &Table{Name: "PrimaryResult"}

	tests := []struct {
		name string
		resp *Response
		want *Table
	}{
		{"nil response", nil, nil},
		{"no tables", &Response{}, nil},
		{"first table wins", &Response{PrimaryResults: []*Table{table, {Name: "other"}}}, table},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, tt.resp.Primary())
		})
	}
}

func TestRequestProperties_SetParameter(t *testing.T) {
	var props RequestProperties
	props.SetParameter("name", "value")
	props.SetParameter("n", 1)

	assert.Equal(t, map[string]any{"name": "value", "n": 1}, props.Parameters)
}

func TestRequestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RequestError
		want string
	}{
		{
			name: "full",
			err:  &RequestError{StatusCode: 400, Code: "BadRequest_SyntaxError", Message: "Syntax error", ActivityID: "abc"},
			want: "request failed with status 400 (BadRequest_SyntaxError): Syntax error [activity abc]",
		},
		{
			name: "message only",
			err:  &RequestError{Message: "Request timed out"},
			want: "request failed: Request timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
