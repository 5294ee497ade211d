package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DataDirCheck verifies the data directory exists and is writable. With
// autofix a missing directory is created.
type DataDirCheck struct {
	dir     string
	autofix bool
}

// NewDataDirCheck creates a data directory check.
func NewDataDirCheck(dir string, autofix bool) *DataDirCheck {
	return &DataDirCheck{dir: dir, autofix: autofix}
}

func (c *DataDirCheck) Name() string {
	return "Data Directory"
}

func (c *DataDirCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	info, err := os.Stat(c.dir)
	switch {
	case os.IsNotExist(err) && c.autofix:
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			result.Items = append(result.Items, CheckItem{Label: c.dir, Status: StatusFail, Detail: fmt.Sprintf("create: %v", err)})
			return result
		}
		result.Items = append(result.Items, CheckItem{Label: c.dir, Status: StatusPass, Detail: "created"})
		return result
	case os.IsNotExist(err):
		result.Items = append(result.Items, CheckItem{Label: c.dir, Status: StatusWarn, Detail: "does not exist", Fixable: true})
		return result
	case err != nil:
		result.Items = append(result.Items, CheckItem{Label: c.dir, Status: StatusFail, Detail: err.Error()})
		return result
	case !info.IsDir():
		result.Items = append(result.Items, CheckItem{Label: c.dir, Status: StatusFail, Detail: "not a directory"})
		return result
	}

	tmp, err := os.CreateTemp(c.dir, ".doctor-*")
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: c.dir, Status: StatusFail, Detail: fmt.Sprintf("not writable: %v", err)})
		return result
	}
	_ = tmp.Close()
	_ = os.Remove(filepath.Clean(tmp.Name()))

	result.Items = append(result.Items, CheckItem{Label: c.dir, Status: StatusPass, Detail: "writable"})
	return result
}
