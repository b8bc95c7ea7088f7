package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ANSI color codes for formatted output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

// Verify checks the config file at path (or the default path when empty) and
// writes an [OK]/[WARN]/[FAIL] line per check to w. It reports whether the
// file would load.
func Verify(w io.Writer, path string) bool {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			fail(w, "Could not determine config path: %v", err)
			return false
		}
		path = p
	}
	fmt.Fprintf(w, "\nVerifying %s'%s'%s...\n", ColorBlue, path, ColorReset)

	content, err := os.ReadFile(path)
	if err != nil {
		fail(w, "File not found or not readable: %v", err)
		return false
	}
	ok(w, "File exists and is readable.")

	v := NewViper()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		fail(w, "JSON is invalid: %v", err)
		return false
	}
	cfg := &AllConfig{}
	if err := v.UnmarshalExact(cfg); err != nil {
		fail(w, "JSON contains unexpected fields or values: %v", err)
		return false
	}
	ok(w, "JSON is valid and all fields are recognized.")

	if err := cfg.Validate(); err != nil {
		for _, e := range unjoin(err) {
			fail(w, "%v", e)
		}
		return false
	}
	ok(w, "All values are within range.")

	if cfg.Discord.LogChannelID == "" {
		warn(w, "discord.log_channel_id is empty, errors will not be mirrored to Discord.")
	}
	if len(cfg.Leveling.TierRoles) == 0 {
		warn(w, "leveling.tier_roles is empty, no roles will be granted.")
	}
	if cfg.Status.Addr == "" {
		warn(w, "status.addr is empty, the status server is disabled.")
	}
	return true
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func ok(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s[OK]%s %s\n", ColorGreen, ColorReset, msg)
}

func warn(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s[WARN]%s %s\n", ColorYellow, ColorReset, msg)
}

func fail(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s[FAIL]%s %s\n", ColorRed, ColorReset, fmt.Sprintf(format, args...))
}

// ErrVerifyFailed is returned by callers that turn a failed Verify into an error.
var ErrVerifyFailed = errors.New("configuration has problems")
