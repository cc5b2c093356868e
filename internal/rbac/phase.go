package rbac

import "fmt"

// Phase is the process-wide migration phase. It is read once from
// configuration at startup; runtime toggling is intentionally unsupported.
type Phase string

const (
	PhaseAudit    Phase = "audit"
	PhaseShadow   Phase = "shadow"
	PhaseCutover  Phase = "cutover"
	PhaseComplete Phase = "complete"
)

// ParsePhase validates a configured phase string, defaulting to audit for
// the empty string.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseAudit, PhaseShadow, PhaseCutover, PhaseComplete:
		return Phase(s), nil
	case "":
		return PhaseAudit, nil
	default:
		return PhaseAudit, fmt.Errorf("invalid RBAC migration phase %q (want audit|shadow|cutover|complete)", s)
	}
}

// ShadowComparisonActive reports whether call sites should run both the
// legacy and the new check and compare results.
func (p Phase) ShadowComparisonActive() bool {
	return p == PhaseShadow
}

// NewCheckAuthoritative reports whether the RBAC engine's result decides the
// request. Before cutover, call sites keep trusting the legacy result.
func (p Phase) NewCheckAuthoritative() bool {
	return p == PhaseCutover || p == PhaseComplete
}
