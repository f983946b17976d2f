// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	_ "embed"
	"fmt"
	"strings"
	"unicode"
)

//go:embed common_passwords.txt
var commonPasswordsFile string

var commonPasswords = loadCommonPasswords(commonPasswordsFile)

func loadCommonPasswords(data string) map[string]struct{} {
	set := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		if p := strings.ToLower(strings.TrimSpace(scanner.Text())); p != "" && !strings.HasPrefix(p, "#") {
			set[p] = struct{}{}
		}
	}
	return set
}

// PasswordRule is a single failed password requirement.
type PasswordRule struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PasswordValidationError lists every rule a password broke.
type PasswordValidationError struct {
	Rules []PasswordRule
}

func (e *PasswordValidationError) Error() string {
	if len(e.Rules) == 0 {
		return "password validation failed"
	}
	return e.Rules[0].Message
}

// Messages returns all rule messages.
func (e *PasswordValidationError) Messages() []string {
	messages := make([]string, len(e.Rules))
	for i, r := range e.Rules {
		messages[i] = r.Message
	}
	return messages
}

// PasswordPolicy checks new passwords.
type PasswordPolicy struct {
	MinLength     int
	MaxSimilarity float64 // above this ratio a password counts as derived from user data
}

// DefaultPasswordPolicy returns the policy used for registration.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, MaxSimilarity: 0.7}
}

// Check returns nil or a *PasswordValidationError. userAttributes are
// values such as username and email the password must not resemble.
func (p PasswordPolicy) Check(password string, userAttributes ...string) error {
	var rules []PasswordRule

	if len([]rune(password)) < p.MinLength {
		rules = append(rules, PasswordRule{
			Code:    "password_too_short",
			Message: fmt.Sprintf("This password is too short. It must contain at least %d characters.", p.MinLength),
		})
	}
	if isEntirelyNumeric(password) {
		rules = append(rules, PasswordRule{
			Code:    "password_entirely_numeric",
			Message: "This password is entirely numeric.",
		})
	}
	if _, common := commonPasswords[strings.ToLower(password)]; common {
		rules = append(rules, PasswordRule{
			Code:    "password_too_common",
			Message: "This password is too common.",
		})
	}
	if p.tooSimilar(password, userAttributes) {
		rules = append(rules, PasswordRule{
			Code:    "password_too_similar",
			Message: "The password is too similar to your personal information.",
		})
	}

	if len(rules) > 0 {
		return &PasswordValidationError{Rules: rules}
	}
	return nil
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return password != ""
}

func (p PasswordPolicy) tooSimilar(password string, attributes []string) bool {
	pw := strings.ToLower(password)
	if pw == "" {
		return false
	}

	for _, attr := range attributes {
		attr = strings.ToLower(attr)
		if attr == "" {
			continue
		}
		// Compare against the whole value and, for emails, the local part.
		parts := []string{attr}
		if local, _, ok := strings.Cut(attr, "@"); ok && local != "" {
			parts = append(parts, local)
		}
		for _, part := range parts {
			if strings.Contains(pw, part) || strings.Contains(part, pw) {
				return true
			}
			if similarity(pw, part) > p.MaxSimilarity {
				return true
			}
		}
	}
	return false
}

// similarity is the longest common subsequence over the longer length.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return float64(prev[len(b)]) / float64(max(len(a), len(b)))
}
