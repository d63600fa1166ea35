package identity

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hackgods/practice-booking/internal/appointment"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const maxEmailLength = 254 // RFC 5321

var (
	emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsOnly = regexp.MustCompile(`^[0-9]+$`)
)

// forbiddenEmailChars are rejected even though lookups use bound parameters.
const forbiddenEmailChars = `/\'";`

// ParseBirthdate accepts YYYY-MM-DD with numeric components only and
// rejects dates that do not exist.
func ParseBirthdate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return time.Time{}, ErrInvalidCredentials
	}
	nums := make([]int, 3)
	for i, p := range parts {
		if !digitsOnly.MatchString(p) || len(p) > 4 {
			return time.Time{}, ErrInvalidCredentials
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, ErrInvalidCredentials
		}
		nums[i] = n
	}

	year, month, day := nums[0], nums[1], nums[2]
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, appointment.Location)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, ErrInvalidCredentials
	}
	return d, nil
}

func ValidateEmail(email string) error {
	switch {
	case email == "", len(email) > maxEmailLength:
		return ErrInvalidCredentials
	case strings.ContainsAny(email, forbiddenEmailChars):
		return ErrInvalidCredentials
	case !emailShape.MatchString(email):
		return ErrInvalidCredentials
	}
	return nil
}
