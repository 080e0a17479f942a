package db

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fmfleet/txmoncore/pkg/models"
)

func TestNormalizeContactInfoObject(t *testing.T) {
	got := NormalizeContactInfo([]byte(`{"technician":"Alice","phone":"555-1000","email":"alice@example.com"}`))

	assert.Equal(t, models.ContactInfo{Technician: "Alice", Phone: "555-1000", Email: "alice@example.com"}, got)
}

func TestNormalizeContactInfoQuotedString(t *testing.T) {
	got := NormalizeContactInfo([]byte(`"alice@example.com"`))

	assert.Equal(t, models.ContactInfo{Email: "alice@example.com"}, got)
}

func TestNormalizeContactInfoLegacyBareString(t *testing.T) {
	got := NormalizeContactInfo([]byte(`alice@example.com`))

	assert.Equal(t, models.ContactInfo{Email: "alice@example.com"}, got)
}

func TestNormalizeContactInfoEmpty(t *testing.T) {
	assert.Equal(t, models.ContactInfo{}, NormalizeContactInfo(nil))
	assert.Equal(t, models.ContactInfo{}, NormalizeContactInfo([]byte("   ")))
}
