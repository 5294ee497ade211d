package parser

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code string
	}{
		{
			name: "raw newline",
			in:   "{\"code\": \"a\nb\", \"path\": \"x\"}",
			code: "a\nb",
		},
		{
			name: "raw quotes before comma",
			in:   `{"code": "f("a", "b")", "tool": "create"}`,
			code: `f("a", "b")`,
		},
		{
			name: "already escaped",
			in:   `{"code": "say \"hi\"\n", "tool": "create"}`,
			code: "say \"hi\"\n",
		},
		{
			name: "value closes object",
			in:   "{\"tool\": \"create\", \"code\": \"x = {\"k\": 1}\r\n\" }",
			code: "x = {\"k\": 1}\r\n",
		},
		{
			name: "object literal array",
			in:   "{\"tool\": \"create\", \"path\": \"r.js\", \"code\": \"const routes = [\n  {path: \"/a\"},\n  {path: \"/b\"}\n];\"}",
			code: "const routes = [\n  {path: \"/a\"},\n  {path: \"/b\"}\n];",
		},
		{
			name: "tab",
			in:   "{\"code\": \"\tindented\"}",
			code: "\tindented",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Clean(tt.in)

			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &got), out)
			assert.Equal(t, tt.code, got["code"])
		})
	}
}

func TestClean_ObjectLiteralClosingArrayInsideResponse(t *testing.T) {
	in := `{"remarks":"r","success":false,"code":[{"tool":"create","path":"a.js","code":"const xs = [{a: "b"}];"},{"tool":"read","path":"b.js"}]}`

	var got struct {
		Code []struct {
			Code string `json:"code"`
		} `json:"code"`
	}
	out := Clean(in)
	require.NoError(t, json.Unmarshal([]byte(out), &got), out)
	require.Len(t, got.Code, 2)
	assert.Equal(t, `const xs = [{a: "b"}];`, got.Code[0].Code)
}

func TestClean_NoCodeKeyUnchanged(t *testing.T) {
	in := `{"remarks":"x","success":true,"code":[]}`
	assert.Equal(t, in, Clean(in))
}
