package refine

import (
	"github.com/refractsec/refract/internal/models"
	"github.com/refractsec/refract/pkg/logger"
)

// Suppressor marks threats as suppressed when an implemented control
// already neutralizes them. It is a pure function of (threat, controls):
// no fuzzy matching on control scope.
type Suppressor struct {
	logger   logger.Logger
	controls []models.Control
}

// NewSuppressor creates a suppressor over the controls list.
func NewSuppressor(controls []models.Control) *Suppressor {
	return NewSuppressorWithLogger(controls, logger.GetGlobalLogger())
}

// NewSuppressorWithLogger creates a suppressor with a custom logger.
func NewSuppressorWithLogger(controls []models.Control, log logger.Logger) *Suppressor {
	return &Suppressor{
		controls: controls,
		logger:   log,
	}
}

// Apply suppresses the threat if a control covers its STRIDE category and
// applies to its canonical component or globally. The first matching
// control in inventory order names the suppression reason. Threats without
// a confident component match are never suppressed here.
func (s *Suppressor) Apply(t *models.Threat) {
	if t.Status != models.StatusActive {
		return
	}
	if t.UnmatchedComponent || t.CanonicalComponent == "" {
		return
	}

	for i := range s.controls {
		control := &s.controls[i]
		if !control.Covers(t.StrideCategory) {
			continue
		}
		if !control.AppliesToComponent(t.CanonicalComponent) {
			continue
		}

		t.Suppress("control:" + control.Name)
		s.logger.Debug("Threat suppressed by control",
			"threat", t.ID, "control", control.Name, "component", t.CanonicalComponent)
		return
	}
}
