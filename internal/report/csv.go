// Package report renders workspace usage reports as spreadsheet-friendly CSV.
package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/archive"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// bom makes spreadsheet applications detect UTF-8.
const bom = "\ufeff"

var header = []string{"Application Name", "Application ID", "Application Mode", "Total Usage", "User Coverage"}

// cell is one CSV field; strings are always quoted, numbers never.
type cell struct {
	text   string
	quoted bool
}

func str(s string) cell { return cell{text: s, quoted: true} }
func num(n int) cell    { return cell{text: strconv.Itoa(n)} }

// Write renders rows as CSV with a BOM, a header and CRLF line endings.
// Identical rows always produce identical bytes.
func Write(w io.Writer, rows []models.StatsRow) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom); err != nil {
		return err
	}

	headerCells := make([]cell, len(header))
	for i, h := range header {
		headerCells[i] = str(h)
	}
	if err := writeLine(bw, headerCells); err != nil {
		return err
	}

	for _, row := range rows {
		line := []cell{
			str(row.AppName),
			str(row.AppID),
			str(row.Mode.String()),
			num(row.TotalUsage),
			num(row.UserCoverage),
		}
		if err := writeLine(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeLine(w *bufio.Writer, cells []cell) error {
	for i, c := range cells {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		text := c.text
		if c.quoted {
			text = `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
		}
		if _, err := w.WriteString(text); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

// Encode returns the CSV bytes for rows.
func Encode(rows []models.StatsRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName returns "<workspace>_usage_<timestamp>.csv".
func FileName(workspace string, t time.Time) string {
	return fmt.Sprintf("%s_usage_%s.csv", archive.SanitizeFileName(workspace), archive.Timestamp(t))
}

// Save writes r to dir and returns the file path.
func Save(dir string, r *models.Report) (string, error) {
	data, err := Encode(r.Rows)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	when := r.FinishedAt
	if when.IsZero() {
		when = time.Now()
	}
	path := filepath.Join(dir, FileName(r.WorkspaceName, when))
	if err := archive.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return path, nil
}
