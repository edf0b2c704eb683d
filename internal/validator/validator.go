// Package validator checks scalar configuration values before a run
// touches the calendar store or the network.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidHost     = errors.New("invalid host")
	ErrInvalidPort     = errors.New("invalid port")
	ErrInvalidWindow   = errors.New("invalid export window")
	ErrInvalidLimit    = errors.New("invalid title length limit")
	ErrUnknownTimezone = errors.New("unknown timezone identifier")
)

// ValidateHost checks a bare hostname or address. Schemes and paths
// belong in URLs, not here.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("%w: empty", ErrInvalidHost)
	}
	if strings.ContainsAny(host, " \t") {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidHost, host)
	}
	if strings.Contains(host, "://") {
		return fmt.Errorf("%w: %q must not include a scheme", ErrInvalidHost, host)
	}
	if strings.Contains(host, "/") {
		return fmt.Errorf("%w: %q must not include a path", ErrInvalidHost, host)
	}
	return nil
}

// ValidatePort checks a TCP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %d out of range 1-65535", ErrInvalidPort, port)
	}
	return nil
}

// ValidateWindow checks the day counts spanning the export window.
func ValidateWindow(daysBehind, daysAhead int) error {
	if daysBehind < 0 {
		return fmt.Errorf("%w: days behind must not be negative, got %d", ErrInvalidWindow, daysBehind)
	}
	if daysAhead < 0 {
		return fmt.Errorf("%w: days ahead must not be negative, got %d", ErrInvalidWindow, daysAhead)
	}
	if daysBehind == 0 && daysAhead == 0 {
		return fmt.Errorf("%w: window is empty", ErrInvalidWindow)
	}
	return nil
}

// ValidateTitleLimit checks the truncation limit. Zero disables
// truncation and is allowed.
func ValidateTitleLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("%w: must not be negative, got %d", ErrInvalidLimit, limit)
	}
	return nil
}

// ValidateTimezone checks that the identifier resolves against the zone
// database.
func ValidateTimezone(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrUnknownTimezone)
	}
	if _, err := time.LoadLocation(id); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrUnknownTimezone, id, err)
	}
	return nil
}
