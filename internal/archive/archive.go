// Package archive renders exported application definitions and packs them into zip files.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// ErrEmptyDSL is returned when an export produced nothing to write.
var ErrEmptyDSL = errors.New("empty application definition")

const (
	timestampLayout = "2006-01-02T15-04-05"
	dateLayout      = "2006-01-02"
)

// SanitizeFileName replaces every rune outside [A-Za-z0-9_-] and the CJK unified
// ideographs block with an underscore.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r >= 0x4e00 && r <= 0x9fa5:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Timestamp formats t (in UTC) for use in file names.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ZipName returns "<workspace>_<timestamp>.zip".
func ZipName(workspace string, t time.Time) string {
	return fmt.Sprintf("%s_%s.zip", SanitizeFileName(workspace), Timestamp(t))
}

// EntryName returns the archive entry for an application's definition.
func EntryName(f models.DSLFile) string {
	return fmt.Sprintf("%s_%s.yml", SanitizeFileName(f.AppName), f.AppID)
}

// DraftEntryName returns the archive entry for an application's workflow draft.
func DraftEntryName(f models.DSLFile) string {
	return fmt.Sprintf("%s_%s.draft.yml", SanitizeFileName(f.AppName), f.AppID)
}

// SingleFileName returns the file name used when exporting one application.
func SingleFileName(appID string, t time.Time) string {
	return fmt.Sprintf("dify_app_%s_%s.yml", SanitizeFileName(appID), t.Format(dateLayout))
}

// RenderYAML returns v as YAML. Strings are assumed to already be YAML and are
// returned unchanged.
func RenderYAML(v any) ([]byte, error) {
	switch dsl := v.(type) {
	case nil:
		return nil, ErrEmptyDSL
	case string:
		if strings.TrimSpace(dsl) == "" {
			return nil, ErrEmptyDSL
		}
		return []byte(dsl), nil
	case []byte:
		if len(bytes.TrimSpace(dsl)) == 0 {
			return nil, ErrEmptyDSL
		}
		return dsl, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteZip writes one entry per file, plus a draft entry when a draft is present,
// and returns the entry names in order.
func WriteZip(w io.Writer, files []models.DSLFile, modified time.Time) ([]string, error) {
	zw := zip.NewWriter(w)
	names := make([]string, 0, len(files))

	add := func(name string, v any) error {
		data, err := RenderYAML(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("failed to create entry %s: %w", name, err)
		}
		if _, err := entry.Write(data); err != nil {
			return fmt.Errorf("failed to write entry %s: %w", name, err)
		}
		names = append(names, name)
		return nil
	}

	for _, f := range files {
		if err := add(EntryName(f), f.DSL); err != nil {
			_ = zw.Close()
			return nil, err
		}
		if f.Draft == nil {
			continue
		}
		if err := add(DraftEntryName(f), f.Draft); err != nil {
			logger.Warn("skipping workflow draft", "app", f.AppID, "error", err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish zip: %w", err)
	}
	return names, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
