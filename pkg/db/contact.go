package db

import (
	"bytes"
	"encoding/json"

	"github.com/fmfleet/txmoncore/pkg/models"
)

// NormalizeContactInfo implements the contact-info normalization rule from
// spec.md §4.2 / testable property 9: a JSON object round-trips as-is; a
// JSON-quoted string is unwrapped; anything else (the legacy bare-email
// form) becomes {technician:"", phone:"", email: <raw>}.
func NormalizeContactInfo(raw []byte) models.ContactInfo {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return models.ContactInfo{}
	}

	var obj models.ContactInfo
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return models.ContactInfo{Email: s}
	}

	return models.ContactInfo{Email: string(raw)}
}
