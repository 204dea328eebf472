package store

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// requiredText trims *s in place and records a message when it is missing
// (only if required) or blank.
func requiredText(v ValidationError, field string, s *string, required bool) {
	if s == nil {
		if required {
			v.Add(field, msgRequired)
		}
		return
	}
	*s = strings.TrimSpace(*s)
	if *s == "" {
		v.Add(field, msgBlank)
	}
}

func maxLength(v ValidationError, field string, s *string, n int) {
	if s != nil && utf8.RuneCountInString(*s) > n {
		v.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", n))
	}
}

func validUsername(v ValidationError, s *string) {
	if s == nil || *s == "" {
		return
	}
	if !usernameRe.MatchString(*s) {
		v.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
}

func validEmail(v ValidationError, s *string) {
	if s == nil {
		return
	}
	*s = strings.TrimSpace(*s)
	if *s == "" {
		return
	}
	addr, err := mail.ParseAddress(*s)
	if err != nil || addr.Address != *s {
		v.Add("email", "Enter a valid email address.")
	}
}

func optionalText(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
