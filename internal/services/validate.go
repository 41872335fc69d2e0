package services

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	msgRequired = "Missing data for required field."

	minNameLength        = 3
	maxNameLength        = 40
	maxCategoryDescLen   = 50
	maxIngredientsLength = 200
	maxRecipeDescLen     = 500
	minUsernameLength    = 3
	minPasswordLength    = 8
)

var (
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z-.]+$`)
	usernamePattern = regexp.MustCompile(`^\w+$`)
	namePattern     = regexp.MustCompile(`^[a-zA-Z_.]+$`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// ValidationError collects every field failure of one request.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("invalid fields: %s", strings.Join(keys, ", "))
}

type validator struct {
	fields map[string][]string
}

func (v *validator) check(field string, violations []string) {
	if len(violations) == 0 {
		return
	}
	if v.fields == nil {
		v.fields = make(map[string][]string)
	}
	v.fields[field] = append(v.fields[field], violations...)
}

// err returns nil when every check passed.
func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func validateEmail(email string) []string {
	if email == "" {
		return []string{msgRequired}
	}
	if !emailPattern.MatchString(email) {
		return []string{fmt.Sprintf("%s is not a valid email.", email)}
	}
	return nil
}

func validateUsername(username string) []string {
	if username == "" {
		return []string{msgRequired}
	}
	if utf8.RuneCountInString(username) < minUsernameLength {
		return []string{"Username should be 3 or more characters long."}
	}
	if !usernamePattern.MatchString(username) {
		return []string{"Username should only contain letters and numbers."}
	}
	return nil
}

func validatePassword(password string) []string {
	if password == "" {
		return []string{msgRequired}
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return []string{"Password should be 8 characters or longer."}
	}
	if strings.ContainsFunc(password, isSpace) {
		return []string{"Password should not have spaces."}
	}
	return nil
}

func validateName(name string) []string {
	if name == "" {
		return []string{msgRequired}
	}
	n := utf8.RuneCountInString(name)
	if n < minNameLength {
		return []string{"Name too short. Should be 3 or more characters."}
	}
	if n > maxNameLength {
		return []string{fmt.Sprintf("Name should not be more than %d characters long.", maxNameLength)}
	}
	if !namePattern.MatchString(name) {
		return []string{"Name should only contain letters, an underscore and/or a period."}
	}
	return nil
}

// validateText checks free text is present once whitespace is ignored and
// fits in max characters.
func validateText(label, text string, max int) []string {
	var violations []string
	if utf8.RuneCountInString(text) > max {
		violations = append(violations, fmt.Sprintf("%s should not be more than %d characters long.", label, max))
	}
	if whitespace.ReplaceAllString(text, "") == "" {
		violations = append(violations, fmt.Sprintf("You need to provide a valid %s.", strings.ToLower(label)))
	}
	return violations
}

// normalizeRecipeName replaces whitespace runs with underscores and
// lower-cases the result.
func normalizeRecipeName(name string) string {
	return strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(name), "_"))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}
