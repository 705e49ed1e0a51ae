// Package contact validates the structured "Name +PhoneNumber" line a user
// sends while registration is pending.
package contact

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidFormat is returned for any input that does not match the expected
// "Name +123456789012" shape.
var ErrInvalidFormat = errors.New("contact: invalid format")

// phoneLength is the full phone token length: '+' followed by 12 digits.
const phoneLength = 13

// Contact is the parsed result of a valid input line.
type Contact struct {
	Name  string
	Phone string
}

// Record is the persisted form of a captured contact.
type Record struct {
	UserID     int64
	Name       string
	Phone      string
	CapturedAt time.Time
}

// Validate splits raw input on the first whitespace run into exactly two
// non-empty parts and checks the second against the fixed phone shape:
// a leading '+' followed by exactly 12 ASCII digits. It is pure and performs
// no I/O.
func Validate(raw string) (Contact, error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return Contact{}, ErrInvalidFormat
	}

	name, phone := fields[0], fields[1]
	if !validPhone(phone) {
		return Contact{}, ErrInvalidFormat
	}
	return Contact{Name: name, Phone: phone}, nil
}

func validPhone(phone string) bool {
	if len(phone) != phoneLength || phone[0] != '+' {
		return false
	}
	for i := 1; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return false
		}
	}
	return true
}
