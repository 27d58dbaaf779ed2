// Package fingerprint generates deterministic identity hashes for business records
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

// DefaultIdentityFields are the fields that feed the identity hash.
// Enrichment fields (phone, email, rating, ...) never influence identity
// because their presence varies by source.
var DefaultIdentityFields = []string{"name", "raw_address"}

// Identity hashes the normalized identity fields of a record. Two records
// with identical normalized name and address hash identically regardless of
// any other field.
func Identity(record *models.BusinessRecord) string {
	return IdentityFields(record, DefaultIdentityFields)
}

// IdentityFields hashes the given identity fields of a record. Each field
// value is normalized with the field's identity-hash normalizer, then the
// components are joined in field order with "|". The hash normalizer is
// deliberately stricter than the fuzzy-comparison one: street-type variants
// of an address are different identities, not the same record.
func IdentityFields(record *models.BusinessRecord, fields []string) string {
	components := make([]string, 0, len(fields))
	for _, field := range fields {
		normalize := normalizers.ForHashField(field)
		components = append(components, normalize(fieldValue(record, field)))
	}

	hash := sha256.Sum256([]byte(strings.Join(components, "|")))
	return hex.EncodeToString(hash[:])
}

// KnownField reports whether a field name can participate in identity hashing
func KnownField(field string) bool {
	switch field {
	case "name", "raw_address", "phone_number", "email", "website":
		return true
	}
	return false
}

func fieldValue(record *models.BusinessRecord, field string) string {
	switch field {
	case "name":
		return record.Name
	case "raw_address":
		return record.RawAddress
	case "phone_number":
		return record.PhoneNumber
	case "email":
		return record.Email
	case "website":
		return record.Website
	}
	return ""
}
