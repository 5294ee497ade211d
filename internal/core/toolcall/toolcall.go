// Package toolcall defines the JSON contract between the model and the
// executor: the file tools the model may invoke and the response envelope
// that carries them.
package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Tool is the closed set of file operations the model may request.
type Tool string

const (
	ToolCreate Tool = "create"
	ToolEdit   Tool = "edit"
	ToolDelete Tool = "delete"
	ToolRead   Tool = "read"
)

// Tools lists every valid tool in prompt order.
var Tools = []Tool{ToolCreate, ToolEdit, ToolDelete, ToolRead}

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	switch t {
	case ToolCreate, ToolEdit, ToolDelete, ToolRead:
		return true
	default:
		return false
	}
}

// Mutates reports whether the tool changes repository contents.
func (t Tool) Mutates() bool {
	switch t {
	case ToolCreate, ToolEdit, ToolDelete:
		return true
	case ToolRead:
		return false
	default:
		return false
	}
}

// UnmarshalJSON rejects tool names outside the closed set.
func (t *Tool) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tool must be a string: %w", err)
	}
	v := Tool(s)
	if !v.Valid() {
		return fmt.Errorf("unknown tool %q (want one of create, edit, delete, read)", s)
	}
	*t = v
	return nil
}

// Call is a single file-tool invocation. Start and End are 1-based inclusive
// line numbers; zero for both means the whole file.
type Call struct {
	Tool  Tool   `json:"tool"`
	Path  string `json:"path,omitempty"`
	Code  string `json:"code,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// UnmarshalJSON accepts null or missing start/end as zero.
func (c *Call) UnmarshalJSON(data []byte) error {
	var raw struct {
		Tool  *Tool   `json:"tool"`
		Path  *string `json:"path"`
		Code  *string `json:"code"`
		Start *int    `json:"start"`
		End   *int    `json:"end"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Tool == nil {
		return errors.New("tool is required")
	}

	*c = Call{Tool: *raw.Tool}
	if raw.Path != nil {
		c.Path = *raw.Path
	}
	if raw.Code != nil {
		c.Code = *raw.Code
	}
	if raw.Start != nil {
		c.Start = *raw.Start
	}
	if raw.End != nil {
		c.End = *raw.End
	}
	return nil
}

// WholeFile reports whether the call addresses the entire file.
func (c Call) WholeFile() bool {
	return c.Start == 0 && c.End == 0
}

// Validate checks the per-tool requirements of a call.
func (c Call) Validate() error {
	if !c.Tool.Valid() {
		return fmt.Errorf("unknown tool %q", c.Tool)
	}
	if c.Start < 0 || c.End < 0 {
		return fmt.Errorf("%s %s: start and end must not be negative", c.Tool, c.Path)
	}
	if !c.WholeFile() {
		if c.Start == 0 {
			return fmt.Errorf("%s %s: start is required when end is set", c.Tool, c.Path)
		}
		if c.End != 0 && c.End < c.Start-1 {
			return fmt.Errorf("%s %s: end %d is before start %d", c.Tool, c.Path, c.End, c.Start)
		}
	}

	switch c.Tool {
	case ToolCreate, ToolEdit, ToolDelete:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("%s: path is required", c.Tool)
		}
	case ToolRead:
	}
	return nil
}

// Response is the envelope the model must return on every turn.
type Response struct {
	Remarks string `json:"remarks"`
	Success bool   `json:"success"`
	Code    []Call `json:"code"`
}

// UnmarshalJSON requires all three top-level fields to be present.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Remarks *string `json:"remarks"`
		Success *bool   `json:"success"`
		Code    *[]Call `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var missing []string
	if raw.Remarks == nil {
		missing = append(missing, "remarks")
	}
	if raw.Success == nil {
		missing = append(missing, "success")
	}
	if raw.Code == nil {
		missing = append(missing, "code")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	*r = Response{Remarks: *raw.Remarks, Success: *raw.Success, Code: *raw.Code}
	if r.Code == nil {
		r.Code = []Call{}
	}
	return nil
}

// Validate checks every call in the response.
func (r Response) Validate() error {
	var errs []error
	for i, c := range r.Code {
		if err := c.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("code[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Reads returns the read calls of the response.
func (r Response) Reads() []Call {
	var out []Call
	for _, c := range r.Code {
		if c.Tool == ToolRead {
			out = append(out, c)
		}
	}
	return out
}

// Mutations returns the create, edit and delete calls of the response in order.
func (r Response) Mutations() []Call {
	var out []Call
	for _, c := range r.Code {
		if c.Tool.Mutates() {
			out = append(out, c)
		}
	}
	return out
}

// Complete reports whether the model declared the task done with nothing left to apply.
func (r Response) Complete() bool {
	return r.Success && len(r.Code) == 0
}

// NeedsInput reports whether the model stopped to ask the user a question.
func (r Response) NeedsInput() bool {
	return !r.Success && len(r.Code) == 0
}
