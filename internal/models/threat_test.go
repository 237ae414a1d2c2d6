package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateThreatID(t *testing.T) {
	id := GenerateThreatID("Payment API", StrideTampering, "Request body can be modified in transit")
	assert.Len(t, id, 16, "ID should be 16 characters")

	// Same inputs produce the same ID
	id2 := GenerateThreatID("Payment API", StrideTampering, "Request body can be modified in transit")
	assert.Equal(t, id, id2)

	// Any changed input produces a different ID
	assert.NotEqual(t, id, GenerateThreatID("Payment API", StrideSpoofing, "Request body can be modified in transit"))
	assert.NotEqual(t, id, GenerateThreatID("Billing API", StrideTampering, "Request body can be modified in transit"))
	assert.NotEqual(t, id, GenerateThreatID("Payment API", StrideTampering, "Request headers can be modified in transit"))
}

func TestThreatValidate(t *testing.T) {
	valid := Threat{
		ID:                "t-1",
		ComponentRef:      "Payment API",
		StrideCategory:    StrideTampering,
		Description:       "Request tampering in transit",
		InherentRiskScore: 7.5,
		Status:            StatusActive,
	}

	tests := []struct {
		mutate  func(*Threat)
		name    string
		wantErr string
	}{
		{
			name:    "valid threat",
			mutate:  func(*Threat) {},
			wantErr: "",
		},
		{
			name:    "missing id",
			mutate:  func(th *Threat) { th.ID = "" },
			wantErr: "id",
		},
		{
			name:    "missing component ref",
			mutate:  func(th *Threat) { th.ComponentRef = "" },
			wantErr: "component_ref",
		},
		{
			name:    "missing description",
			mutate:  func(th *Threat) { th.Description = "" },
			wantErr: "description",
		},
		{
			name:    "invalid stride category",
			mutate:  func(th *Threat) { th.StrideCategory = "phishing" },
			wantErr: "stride_category",
		},
		{
			name:    "negative inherent risk",
			mutate:  func(th *Threat) { th.InherentRiskScore = -1 },
			wantErr: "inherent_risk_score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := valid
			tt.mutate(&th)
			err := th.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestThreatSuppress(t *testing.T) {
	th := Threat{ID: "t-1", Status: StatusActive}
	th.Suppress("control:tls-everywhere")

	assert.Equal(t, StatusSuppressed, th.Status)
	assert.Equal(t, "control:tls-everywhere", th.SuppressedReason)

	// Terminal states never change again
	th.Suppress("stale_cve")
	assert.Equal(t, "control:tls-everywhere", th.SuppressedReason)

	merged := Threat{ID: "t-2", Status: StatusMerged}
	merged.Suppress("control:tls-everywhere")
	assert.Equal(t, StatusMerged, merged.Status)
	assert.Empty(t, merged.SuppressedReason)
}

func TestAddCitedCVEs(t *testing.T) {
	th := Threat{CitedCVEs: []string{"CVE-2021-44228", "CVE-2017-5638"}}
	th.AddCitedCVEs("CVE-2017-5638", "CVE-2014-0160", "", "CVE-2021-44228")

	assert.Equal(t, []string{"CVE-2021-44228", "CVE-2017-5638", "CVE-2014-0160"}, th.CitedCVEs)
}

func TestAddMitigationSuggestions(t *testing.T) {
	th := Threat{MitigationSuggestions: []string{"enable mTLS"}}
	th.AddMitigationSuggestions("rotate credentials", "enable mTLS", "")

	assert.Equal(t, []string{"enable mTLS", "rotate credentials"}, th.MitigationSuggestions)
}

func TestComponentName(t *testing.T) {
	th := Threat{ComponentRef: "payment api"}
	assert.Equal(t, "payment api", th.ComponentName())

	th.CanonicalComponent = "Payment API"
	assert.Equal(t, "Payment API", th.ComponentName())
}
