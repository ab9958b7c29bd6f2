// Package config contains everything related to configuration
package config

import (
	"regexp"
	"time"
)

// Defaults mirror the pacing of the browser extension this tool replaces.
const (
	DefaultFilePrefix    = "dify_backup"
	DefaultAppPageLimit  = 30
	DefaultUsagePageSize = 100
	DefaultPageDelay     = 200 * time.Millisecond
	DefaultAppDelay      = 300 * time.Millisecond
	DefaultBackupDelay   = 500 * time.Millisecond
	DefaultRunTimeout    = 5 * time.Minute
)

// LocalWindowLayout is the accepted form of STATS_START / STATS_END.
const LocalWindowLayout = "2006-01-02 15:04"

var localWindowRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)

// IsLocalWindowValue reports whether s is a valid "YYYY-MM-DD HH:MM" value.
func IsLocalWindowValue(s string) bool {
	if !localWindowRe.MatchString(s) {
		return false
	}
	_, err := time.ParseInLocation(LocalWindowLayout, s, time.Local)
	return err == nil
}
