// Package mirror keeps a local snapshot of the remote planet catalog and
// serves it in the same shape, so the service can run offline against it.
package mirror

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const Route = "/api/planets"

var errNotArray = errors.New("snapshot is not a JSON array")

// Write stores raw as an indented snapshot at path and returns the number of
// elements. The previous snapshot is replaced atomically.
func Write(path string, raw []byte) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return 0, errNotArray
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return 0, fmt.Errorf("%w: %v", errNotArray, err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return 0, err
	}
	buf.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".mirror-*.json")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return len(items), nil
}

// Handler serves the snapshot at path, re-reading it on every request so a
// new export is picked up without a restart.
func Handler(path string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		b, err := os.ReadFile(path)
		if err != nil {
			logger.Error("read mirror file", zap.String("path", path), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read mirror file"})
			return
		}
		// validate so a bad file doesn't silently break clients
		trimmed := bytes.TrimSpace(b)
		if len(trimmed) == 0 || trimmed[0] != '[' || !json.Valid(trimmed) {
			logger.Error("mirror file invalid", zap.String("path", path), zap.Error(errNotArray))
			c.JSON(http.StatusInternalServerError, gin.H{"error": errNotArray.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", trimmed)
	}
}
