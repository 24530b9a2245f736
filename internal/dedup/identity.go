package dedup

import (
	"strings"
	"unicode"
)

// IdentityKind names the attribute used to identify a student.
type IdentityKind string

const (
	IdentityEmail   IdentityKind = "email"
	IdentityPhone   IdentityKind = "phone"
	IdentityUnknown IdentityKind = "unknown"
)

const gmailDomain = "gmail.com"

// Identity is the normalized key used to match the same student across events.
type Identity struct {
	Kind  IdentityKind
	Value string
}

// Known reports whether the identity can take part in matching.
func (i Identity) Known() bool {
	return i.Kind != IdentityUnknown && i.Kind != "" && i.Value != ""
}

// Equal reports whether two identities refer to the same student.
func (i Identity) Equal(other Identity) bool {
	if !i.Known() || !other.Known() {
		return false
	}
	return i.Kind == other.Kind && i.Value == other.Value
}

// NormalizeEmail trims and lowercases the address. Gmail addresses also lose
// any +suffix on the local part.
func NormalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}

	at := strings.LastIndex(email, "@")
	if at < 0 || email[at+1:] != gmailDomain {
		return email, true
	}

	local := email[:at]
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}

	return local + "@" + gmailDomain, true
}

// NormalizePhone keeps only the digits of the number.
func NormalizePhone(raw string) (string, bool) {
	var builder strings.Builder
	builder.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}

	phone := builder.String()
	if phone == "" {
		return "", false
	}
	return phone, true
}

// ResolveIdentity prefers the normalized email and falls back to the phone.
func ResolveIdentity(email, phone string) Identity {
	if normalized, ok := NormalizeEmail(email); ok {
		return Identity{Kind: IdentityEmail, Value: normalized}
	}
	if normalized, ok := NormalizePhone(phone); ok {
		return Identity{Kind: IdentityPhone, Value: normalized}
	}
	return Identity{Kind: IdentityUnknown}
}

// ResolveIdentityPtr is ResolveIdentity for optional stored values.
func ResolveIdentityPtr(email, phone *string) Identity {
	return ResolveIdentity(deref(email), deref(phone))
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
