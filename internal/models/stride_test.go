package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStride(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  StrideCategory
	}{
		{"canonical value", "tampering", StrideTampering},
		{"mixed case", "Spoofing", StrideSpoofing},
		{"spaces", "information disclosure", StrideInformationDisclosure},
		{"hyphens", "denial-of-service", StrideDenialOfService},
		{"dos shorthand", "DoS", StrideDenialOfService},
		{"privilege escalation alias", "privilege_escalation", StrideElevationOfPrivilege},
		{"surrounding whitespace", "  repudiation  ", StrideRepudiation},
		{"unknown category", "phishing", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStride(tt.input))
		})
	}
}

func TestIsValidStride(t *testing.T) {
	for _, c := range AllStrideCategories() {
		assert.True(t, IsValidStride(c), "category %s should be valid", c)
	}
	assert.False(t, IsValidStride(""))
	assert.False(t, IsValidStride("phishing"))
}

func TestControlCoverage(t *testing.T) {
	control := Control{
		Name:      "edge-waf",
		Category:  "edge-filtering",
		Coverage:  []StrideCategory{StrideTampering, StrideDenialOfService},
		AppliesTo: []string{"Payment API"},
	}

	assert.True(t, control.Covers(StrideTampering))
	assert.False(t, control.Covers(StrideSpoofing))
	assert.True(t, control.AppliesToComponent("Payment API"))
	assert.False(t, control.AppliesToComponent("Billing API"))
	assert.False(t, control.IsGlobal())

	global := Control{
		Name:      "sso",
		Coverage:  []StrideCategory{StrideSpoofing},
		AppliesTo: []string{GlobalScope},
	}
	assert.True(t, global.IsGlobal())
	assert.True(t, global.AppliesToComponent("anything"))
}
