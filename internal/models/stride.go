package models

import "strings"

// StrideCategory is one of the six fixed STRIDE threat categories.
type StrideCategory string

// STRIDE categories.
const (
	StrideSpoofing              StrideCategory = "spoofing"
	StrideTampering             StrideCategory = "tampering"
	StrideRepudiation           StrideCategory = "repudiation"
	StrideInformationDisclosure StrideCategory = "information_disclosure"
	StrideDenialOfService       StrideCategory = "denial_of_service"
	StrideElevationOfPrivilege  StrideCategory = "elevation_of_privilege"
)

// AllStrideCategories returns the six categories in canonical order.
func AllStrideCategories() []StrideCategory {
	return []StrideCategory{
		StrideSpoofing,
		StrideTampering,
		StrideRepudiation,
		StrideInformationDisclosure,
		StrideDenialOfService,
		StrideElevationOfPrivilege,
	}
}

// IsValidStride checks if a category is one of the six STRIDE values.
func IsValidStride(c StrideCategory) bool {
	switch c {
	case StrideSpoofing, StrideTampering, StrideRepudiation,
		StrideInformationDisclosure, StrideDenialOfService, StrideElevationOfPrivilege:
		return true
	default:
		return false
	}
}

// NormalizeStride maps loosely-worded category strings onto the canonical
// STRIDE values. Unknown inputs return an empty category.
func NormalizeStride(s string) StrideCategory {
	lower := strings.ToLower(strings.TrimSpace(s))
	lower = strings.NewReplacer("-", "_", " ", "_").Replace(lower)

	switch lower {
	case "spoofing", "identity_spoofing":
		return StrideSpoofing
	case "tampering", "data_tampering":
		return StrideTampering
	case "repudiation", "non_repudiation":
		return StrideRepudiation
	case "information_disclosure", "info_disclosure", "disclosure":
		return StrideInformationDisclosure
	case "denial_of_service", "dos":
		return StrideDenialOfService
	case "elevation_of_privilege", "privilege_escalation", "eop":
		return StrideElevationOfPrivilege
	default:
		return ""
	}
}
