// Package service provides stateless domain services for outcome processing:
// PII normalization and hashing, and deterministic event-id derivation.
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Hasher normalizes and one-way-hashes PII per the Conversions API matching
// rules. All methods are pure and deterministic: case and whitespace variants
// of logically-equal values collide to the same digest.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// SHA256 hashes an already-normalized value and returns the hex digest.
func (h *Hasher) SHA256(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}

// HashEmail trims, lowercases and hashes an email address.
func (h *Hasher) HashEmail(email string) string {
	return h.SHA256(strings.ToLower(strings.TrimSpace(email)))
}

// HashPhone strips every non-digit character, then one leading "00"
// international prefix if present, and hashes the remaining digit string.
// No length or country-code validation is performed.
func (h *Hasher) HashPhone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	digits = strings.TrimPrefix(digits, "00")
	return h.SHA256(digits)
}

// HashName trims, lowercases (Unicode-aware) and strips everything that is not
// a letter or digit before hashing.
func (h *Hasher) HashName(name string) string {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, strings.ToLower(strings.TrimSpace(name)))
	return h.SHA256(normalized)
}

// HashCity trims, lowercases and strips whitespace and punctuation before hashing.
func (h *Hasher) HashCity(city string) string {
	return h.SHA256(stripSpacePunct(strings.ToLower(strings.TrimSpace(city))))
}

// HashState trims, lowercases and strips whitespace and punctuation before hashing.
func (h *Hasher) HashState(state string) string {
	return h.SHA256(stripSpacePunct(strings.ToLower(strings.TrimSpace(state))))
}

// HashCountry trims, lowercases and hashes a country value.
func (h *Hasher) HashCountry(country string) string {
	return h.SHA256(strings.ToLower(strings.TrimSpace(country)))
}

// HashGender trims, lowercases and hashes a gender value.
func (h *Hasher) HashGender(gender string) string {
	return h.SHA256(strings.ToLower(strings.TrimSpace(gender)))
}

// HashZip trims, lowercases and strips spaces and hyphens before hashing.
// No truncation to a 5-digit prefix is performed; callers pre-truncate when a
// platform requires it.
func (h *Hasher) HashZip(zip string) string {
	normalized := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(zip)))
	return h.SHA256(normalized)
}

// HashExternalID trims and hashes an external id without case-folding.
func (h *Hasher) HashExternalID(externalID string) string {
	return h.SHA256(strings.TrimSpace(externalID))
}

// stripSpacePunct removes whitespace and punctuation runes.
func stripSpacePunct(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return -1
		}
		return r
	}, value)
}
