// Package normalizers provides field normalization functions for duplicate detection
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("collapse_whitespace", CollapseWhitespace)
	Register("nname", NormalizeName)
	Register("naddress", NormalizeAddress)
	Register("nphone", NormalizePhone)
	Register("nemail", NormalizeEmail)
	Register("nwebsite", NormalizeWebsite)
	Register("digits_only", DigitsOnly)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// ForField returns the comparison normalizer for a record field name.
// Unknown fields fall back to lowercase + whitespace collapsing.
func ForField(field string) Normalizer {
	switch field {
	case "name":
		return NormalizeName
	case "raw_address", "address":
		return NormalizeAddress
	case "phone_number", "phone":
		return NormalizePhone
	case "email":
		return NormalizeEmail
	case "website":
		return NormalizeWebsite
	default:
		return Basic
	}
}

// ForHashField returns the identity-hash normalizer for a record field name.
// The hash form is stricter than the comparison form: addresses keep their
// written street type, so "12 Oak Ave" and "12 Oak Avenue" remain distinct
// identities and the similarity scorer adjudicates them instead.
func ForHashField(field string) Normalizer {
	switch field {
	case "raw_address", "address":
		return Basic
	default:
		return ForField(field)
	}
}

// Basic is the minimal comparison form: trimmed, lowercased, whitespace
// collapsed
func Basic(s string) string {
	return CollapseWhitespace(Lowercase(Trim(s)))
}

// legalSuffixes are business suffix tokens stripped for name comparison
var legalSuffixes = map[string]bool{
	"ltd":          true,
	"limited":      true,
	"inc":          true,
	"incorporated": true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"llc":          true,
	"plc":          true,
}

// streetTypes maps street-type abbreviations to their full words
var streetTypes = map[string]string{
	"st":   "street",
	"str":  "street",
	"rd":   "road",
	"ave":  "avenue",
	"blvd": "boulevard",
	"dr":   "drive",
	"ln":   "lane",
	"ct":   "court",
	"pl":   "place",
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// CollapseWhitespace replaces runs of whitespace, including non-ASCII space
// variants, with a single space
func CollapseWhitespace(s string) string {
	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		result.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(result.String())
}

// NormalizeName produces the comparison form of a business name:
// lowercased, whitespace collapsed, common legal suffixes removed.
// The original stored name is never rewritten; this form feeds both the
// identity hash and the similarity scorer so both sides agree.
func NormalizeName(s string) string {
	s = CollapseWhitespace(Lowercase(Trim(s)))
	if s == "" {
		return ""
	}

	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		trimmed := strings.Trim(word, ".,")
		if legalSuffixes[trimmed] {
			continue
		}
		kept = append(kept, word)
	}
	// A name made entirely of suffix tokens keeps its collapsed form
	if len(kept) == 0 {
		return s
	}
	return strings.Join(kept, " ")
}

// NormalizeAddress produces the comparison form of an address: lowercased,
// whitespace collapsed, street-type abbreviations expanded so
// "123 Main St" and "123 Main Street" normalize identically.
func NormalizeAddress(s string) string {
	s = CollapseWhitespace(Lowercase(Trim(s)))
	if s == "" {
		return ""
	}

	words := strings.Fields(s)
	for i, word := range words {
		trailing := ""
		trimmed := strings.TrimRight(word, ".,")
		if strings.HasSuffix(word, ",") {
			trailing = ","
		}
		if full, ok := streetTypes[trimmed]; ok {
			words[i] = full + trailing
		}
	}
	return strings.Join(words, " ")
}

// NormalizePhone keeps only digit characters. Two phone values are equal
// iff their digit sequences are equal.
func NormalizePhone(s string) string {
	return DigitsOnly(s)
}

// NormalizeEmail normalizes an email address (lowercase, trim only)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeWebsite strips the protocol and www prefix and lowercases,
// leaving a comparable domain+path string
func NormalizeWebsite(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimSuffix(s, "/")
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
