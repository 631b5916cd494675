package project

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dshills/crossbuild/internal/diag"
	"github.com/dshills/crossbuild/internal/store"
)

// Names of the files kept under the project's metadata directory.
const (
	MetaDir         = ".crossbuild"
	ProjectFileName = "project.json"
	UserContextName = "user.ctx.json"
)

// UserContext is per-user state kept outside the versioned document.
type UserContext struct {
	Target string `json:"target,omitempty"`
}

func userContextPath(root string) string {
	return filepath.Join(root, MetaDir, UserContextName)
}

// ReadUserContext reads the user context of a project. A missing or
// unreadable file yields the zero value.
func ReadUserContext(root string, log *diag.Logger) UserContext {
	var ctx UserContext
	data, err := os.ReadFile(userContextPath(root))
	if err != nil {
		if !os.IsNotExist(err) {
			diag.OrDefault(log).Debug("reading user context: %v", err)
		}
		return ctx
	}
	if err := json.Unmarshal(data, &ctx); err != nil {
		diag.OrDefault(log).Debug("malformed user context: %v", err)
		return UserContext{}
	}
	return ctx
}

// WriteUserContext stores the user context. Failures are logged.
func WriteUserContext(root string, ctx UserContext, log *diag.Logger) {
	path := userContextPath(root)
	data, err := json.Marshal(ctx)
	if err == nil {
		err = os.MkdirAll(filepath.Dir(path), 0755)
	}
	if err == nil {
		err = os.WriteFile(path, store.Format(data), 0644)
	}
	if err != nil {
		diag.OrDefault(log).Debug("writing user context: %v", err)
	}
}
