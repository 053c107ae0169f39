// Package validate holds the business validation rules shared by the
// session, match, and league code paths. Request-shape validation stays in
// the HTTP layer; these rules guard data that ends up persisted.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	ErrInvalidName      = errors.New("invalid player name")
	ErrInvalidScore     = errors.New("invalid score")
	ErrInvalidSubdomain = errors.New("invalid subdomain")
	ErrInvalidDate      = errors.New("invalid date")
)

const (
	maxNameLength = 40
	maxScore      = 99

	// ReservedPrefix marks scorer keys that are not player names.
	ReservedPrefix = "__"
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// PlayerName normalizes and validates a player name. It returns the trimmed
// name on success.
func PlayerName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len([]rune(name)) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	if strings.HasPrefix(name, ReservedPrefix) {
		return "", fmt.Errorf("%w: names starting with %q are reserved", ErrInvalidName, ReservedPrefix)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: name contains control characters", ErrInvalidName)
		}
	}

	return name, nil
}

// Score checks a match score is an integer in [0,99]. A nil score is valid
// (score not entered yet).
func Score(score *int) error {
	if score == nil {
		return nil
	}
	if *score < 0 || *score > maxScore {
		return fmt.Errorf("%w: score %d is out of range [0,%d]", ErrInvalidScore, *score, maxScore)
	}

	return nil
}

// Subdomain checks a league id against the DNS label rules used for
// subdomain routing.
func Subdomain(raw string) error {
	if !subdomainPattern.MatchString(raw) {
		return fmt.Errorf("%w: %q is not a valid DNS label", ErrInvalidSubdomain, raw)
	}

	return nil
}

// SessionDate checks a session date string is a real YYYY-MM-DD date.
func SessionDate(raw string) error {
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return fmt.Errorf("%w: %q does not match YYYY-MM-DD", ErrInvalidDate, raw)
	}

	return nil
}
