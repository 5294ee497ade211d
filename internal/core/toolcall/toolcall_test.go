package toolcall

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTool_UnmarshalJSON(t *testing.T) {
	var tool Tool
	require.NoError(t, json.Unmarshal([]byte(`"edit"`), &tool))
	assert.Equal(t, ToolEdit, tool)

	err := json.Unmarshal([]byte(`"rename"`), &tool)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rename")
}

func TestCall_DefaultsStartEnd(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Call
	}{
		{
			name:  "missing",
			input: `{"tool":"create","path":"a.js","code":"x"}`,
			want:  Call{Tool: ToolCreate, Path: "a.js", Code: "x"},
		},
		{
			name:  "null",
			input: `{"tool":"edit","path":"a.js","code":"x","start":null,"end":null}`,
			want:  Call{Tool: ToolEdit, Path: "a.js", Code: "x"},
		},
		{
			name:  "explicit",
			input: `{"tool":"edit","path":"a.js","code":"x","start":2,"end":3}`,
			want:  Call{Tool: ToolEdit, Path: "a.js", Code: "x", Start: 2, End: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Call
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCall_MissingTool(t *testing.T) {
	var c Call
	err := json.Unmarshal([]byte(`{"path":"a.js"}`), &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool is required")
}

func TestCall_Validate(t *testing.T) {
	tests := []struct {
		name    string
		call    Call
		wantErr string
	}{
		{name: "create ok", call: Call{Tool: ToolCreate, Path: "a.js"}},
		{name: "read without path ok", call: Call{Tool: ToolRead}},
		{name: "edit range ok", call: Call{Tool: ToolEdit, Path: "a.js", Start: 2, End: 3}},
		{name: "insert ok", call: Call{Tool: ToolEdit, Path: "a.js", Start: 3, End: 2}},
		{name: "delete needs path", call: Call{Tool: ToolDelete}, wantErr: "path is required"},
		{name: "negative", call: Call{Tool: ToolEdit, Path: "a.js", Start: -1}, wantErr: "negative"},
		{name: "end without start", call: Call{Tool: ToolEdit, Path: "a.js", End: 4}, wantErr: "start is required"},
		{name: "inverted", call: Call{Tool: ToolEdit, Path: "a.js", Start: 5, End: 2}, wantErr: "before start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResponse_RequiredFields(t *testing.T) {
	var r Response
	err := json.Unmarshal([]byte(`{"remarks":"hi"}`), &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "success")
	assert.Contains(t, err.Error(), "code")

	require.NoError(t, json.Unmarshal([]byte(`{"remarks":"done","success":true,"code":[]}`), &r))
	assert.True(t, r.Complete())
	assert.False(t, r.NeedsInput())
	assert.NotNil(t, r.Code)
}

func TestResponse_Partition(t *testing.T) {
	r := Response{Code: []Call{
		{Tool: ToolRead, Path: "a.js"},
		{Tool: ToolCreate, Path: "b.js"},
		{Tool: ToolDelete, Path: "c.js"},
		{Tool: ToolRead, Path: "d.js"},
	}}

	reads := r.Reads()
	require.Len(t, reads, 2)
	assert.Equal(t, "d.js", reads[1].Path)

	muts := r.Mutations()
	require.Len(t, muts, 2)
	assert.Equal(t, ToolCreate, muts[0].Tool)
	assert.Equal(t, ToolDelete, muts[1].Tool)
}

func TestResponse_ValidateCollectsAll(t *testing.T) {
	r := Response{Code: []Call{
		{Tool: ToolCreate},
		{Tool: ToolEdit, Path: "ok.js"},
		{Tool: ToolDelete},
	}}

	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code[0]")
	assert.Contains(t, err.Error(), "code[2]")
	assert.NotContains(t, err.Error(), "code[1]")
}
