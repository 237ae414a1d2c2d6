package models

// Exploitability grades how readily a threat's cited vulnerabilities can be
// exploited, derived from vulnerability intelligence.
type Exploitability string

// Exploitability levels, lowest to highest.
const (
	ExploitabilityLow    Exploitability = "low"
	ExploitabilityMedium Exploitability = "medium"
	ExploitabilityHigh   Exploitability = "high"
)

// Rank returns a numeric ordering for exploitability comparisons.
func (e Exploitability) Rank() int {
	switch e {
	case ExploitabilityMedium:
		return 1
	case ExploitabilityHigh:
		return 2
	default:
		return 0
	}
}

// MitigationMaturity grades how much of a threat's STRIDE category is
// already covered by implemented controls on its component.
type MitigationMaturity string

// Mitigation maturity levels, lowest to highest.
const (
	MaturityNone    MitigationMaturity = "none"
	MaturityPartial MitigationMaturity = "partial"
	MaturityStrong  MitigationMaturity = "strong"
)

// Rank returns a numeric ordering for maturity comparisons.
func (m MitigationMaturity) Rank() int {
	switch m {
	case MaturityPartial:
		return 1
	case MaturityStrong:
		return 2
	default:
		return 0
	}
}
