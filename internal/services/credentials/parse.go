package credentials

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// ErrNoValues is returned when a credential file contains nothing usable.
var ErrNoValues = errors.New("no cookie values found")

// Names the console frontend stores tokens under, in lookup order.
var (
	AccessTokenNames = []string{"access_token", "token", "auth_token"}
	CSRFTokenNames   = []string{"csrf_token", "csrf-token", "__Host-csrf-token", "X-CSRF-Token", "_csrf", "csrfToken", "CSRF-TOKEN"}
)

// Format is the detected layout of a credential file.
type Format string

const (
	FormatJSON      Format = "json"
	FormatCookieJar Format = "cookies.txt"
	FormatHeader    Format = "header"
)

// Parse reads name/value pairs from a JSON object, a JSON array of cookie objects,
// a Netscape cookies.txt jar or a Cookie header line.
func Parse(data []byte) (map[string]string, Format, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\ufeff")))
	if len(trimmed) == 0 {
		return nil, "", ErrNoValues
	}

	var (
		values map[string]string
		format Format
		err    error
	)
	switch {
	case trimmed[0] == '{' || trimmed[0] == '[':
		values, err = parseJSON(trimmed)
		format = FormatJSON
	case isCookieJar(trimmed):
		values = parseCookieJar(trimmed)
		format = FormatCookieJar
	default:
		values = parseHeader(trimmed)
		format = FormatHeader
	}
	if err != nil {
		return nil, format, err
	}
	if len(values) == 0 {
		return nil, format, ErrNoValues
	}
	return values, format, nil
}

func parseJSON(data []byte) (map[string]string, error) {
	if data[0] == '[' {
		var cookies []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &cookies); err != nil {
			return nil, fmt.Errorf("failed to parse cookie array: %w", err)
		}
		values := make(map[string]string, len(cookies))
		for _, c := range cookies {
			if c.Name != "" {
				values[c.Name] = c.Value
			}
		}
		return values, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse json credentials: %w", err)
	}
	values := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			values[k] = val
		case float64, bool:
			values[k] = fmt.Sprint(val)
		}
	}
	return values, nil
}

// isCookieJar reports whether data looks like a Netscape cookie file.
func isCookieJar(data []byte) bool {
	if bytes.HasPrefix(data, []byte("# Netscape")) || bytes.HasPrefix(data, []byte("# HTTP Cookie File")) {
		return true
	}
	firstLine, _, _ := bytes.Cut(data, []byte("\n"))
	return bytes.Count(firstLine, []byte("\t")) >= 6
}

func parseCookieJar(data []byte) map[string]string {
	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		line = strings.TrimPrefix(line, "#HttpOnly_")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}
		values[fields[5]] = fields[6]
	}
	return values
}

func parseHeader(data []byte) map[string]string {
	line := strings.TrimSpace(string(data))
	if name, rest, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "cookie") {
		line = rest
	}

	values := make(map[string]string)
	for _, part := range strings.Split(line, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		values[strings.TrimSpace(name)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return values
}

// Resolve picks the access and CSRF tokens out of values.
func Resolve(values map[string]string) models.Credentials {
	cookies := make(map[string]string, len(values))
	for k, v := range values {
		cookies[k] = v
	}
	return models.Credentials{
		AccessToken: lookup(values, AccessTokenNames),
		CSRFToken:   lookup(values, CSRFTokenNames),
		Cookies:     cookies,
	}
}

func lookup(values map[string]string, names []string) string {
	for _, name := range names {
		v, ok := values[name]
		if !ok || v == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(v); err == nil {
			return unescaped
		}
		return v
	}
	return ""
}
