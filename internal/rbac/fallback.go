package rbac

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrStrictFallback aborts the in-flight operation when strict mode forbids
// silently substituting a compiled-in default.
var ErrStrictFallback = errors.New("rbac fallback rejected by strict mode")

const (
	maxSampleRecords = 100
	maxValueLen      = 200
	maxStackLen      = 2000
)

// FallbackEvent records one substitution of a compiled-in default for
// missing or unreachable live data.
type FallbackEvent struct {
	Location  string    `json:"location"`
	Reason    string    `json:"reason"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Stack     string    `json:"stack"`
}

// MismatchRecord records one legacy-vs-new disagreement observed during the
// shadow migration phase.
type MismatchRecord struct {
	Location  string    `json:"location"`
	Role      string    `json:"role"`
	OldResult bool      `json:"oldResult"`
	NewResult bool      `json:"newResult"`
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}

// checkSite is one instrumented call site with its counters
type checkSite struct {
	Location   string `json:"location"`
	Calls      int64  `json:"calls"`
	Mismatches int64  `json:"mismatches"`
}

// MigrationStatus is the operational snapshot returned by the status API
type MigrationStatus struct {
	Phase               Phase            `json:"phase"`
	StrictMode          bool             `json:"strictMode"`
	RegisteredCallSites int              `json:"registeredCallSites"`
	TotalChecks         int64            `json:"totalChecks"`
	FallbackCount       int              `json:"fallbackCount"`
	MismatchCount       int              `json:"mismatchCount"`
	ApprovalFlows       int              `json:"approvalFlows"`
	HierarchicalFilters int              `json:"hierarchicalFilters"`
	RecentFallbacks     []FallbackEvent  `json:"recentFallbacks"`
	RecentMismatches    []MismatchRecord `json:"recentMismatches"`
}

// AuditReport is the detailed per-call-site view
type AuditReport struct {
	Phase       Phase            `json:"phase"`
	GeneratedAt time.Time        `json:"generatedAt"`
	CallSites   []checkSite      `json:"callSites"`
	Fallbacks   []FallbackEvent  `json:"fallbacks"`
	Mismatches  []MismatchRecord `json:"mismatches"`
}

// FallbackTracker makes every fallback-to-default impossible to miss. All
// state is process-local and resets on restart: this is migration-window
// telemetry, not an audit log of record.
type FallbackTracker struct {
	mu         sync.Mutex
	phase      Phase
	strict     bool
	fallbacks  []FallbackEvent
	mismatches []MismatchRecord
	registry   map[string]*checkSite
	totalCalls int64
	log        *logrus.Entry
}

func NewFallbackTracker(phase Phase, strict bool, log *logrus.Logger) *FallbackTracker {
	return &FallbackTracker{
		phase:    phase,
		strict:   strict,
		registry: make(map[string]*checkSite),
		log:      log.WithField("component", "rbac_fallback"),
	}
}

func (t *FallbackTracker) Phase() Phase {
	return t.phase
}

func (t *FallbackTracker) StrictMode() bool {
	return t.strict
}

// LogFallbackEvent appends a fallback record and logs at ERROR level. The
// ERROR level is intentional: fallbacks must stay operationally visible even
// though the caller recovers. In strict mode the returned error aborts the
// in-flight operation instead of letting the fallback value through.
func (t *FallbackTracker) LogFallbackEvent(location, reason, value string) error {
	event := FallbackEvent{
		Location:  location,
		Reason:    truncate(reason, maxValueLen),
		Value:     truncate(value, maxValueLen),
		Timestamp: time.Now().UTC(),
		Stack:     truncate(string(debug.Stack()), maxStackLen),
	}

	t.mu.Lock()
	t.fallbacks = appendCapped(t.fallbacks, event)
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"location": location,
		"reason":   event.Reason,
		"value":    event.Value,
	}).Error("RBAC fallback to compiled-in default")

	if t.strict {
		return fmt.Errorf("%w: %s (%s)", ErrStrictFallback, location, event.Reason)
	}
	return nil
}

// RegisterCheck counts one instrumented role check at a call site. In the
// audit phase each check additionally logs at debug level.
func (t *FallbackTracker) RegisterCheck(location string) {
	t.mu.Lock()
	site, ok := t.registry[location]
	if !ok {
		site = &checkSite{Location: location}
		t.registry[location] = site
	}
	site.Calls++
	t.totalCalls++
	t.mu.Unlock()

	if t.phase == PhaseAudit {
		t.log.WithField("location", location).Debug("RBAC check")
	}
}

// ComparePermissionResults records a legacy-vs-new comparison from a shadow
// phase call site. The return value reports whether the results matched; it
// is not an authorization decision, and which result to trust stays with the
// caller.
func (t *FallbackTracker) ComparePermissionResults(location, role string, oldResult, newResult bool, context string) bool {
	if oldResult == newResult {
		return true
	}

	record := MismatchRecord{
		Location:  location,
		Role:      role,
		OldResult: oldResult,
		NewResult: newResult,
		Context:   truncate(context, maxValueLen),
		Timestamp: time.Now().UTC(),
	}

	t.mu.Lock()
	t.mismatches = appendCapped(t.mismatches, record)
	site, ok := t.registry[location]
	if !ok {
		site = &checkSite{Location: location}
		t.registry[location] = site
	}
	site.Mismatches++
	t.mu.Unlock()

	t.log.WithFields(logrus.Fields{
		"location":   location,
		"role":       role,
		"old_result": oldResult,
		"new_result": newResult,
		"context":    record.Context,
	}).Error("RBAC shadow-phase permission mismatch")

	return false
}

// MigrationStatus aggregates the in-memory registries for the status API
func (t *FallbackTracker) MigrationStatus() MigrationStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	return MigrationStatus{
		Phase:               t.phase,
		StrictMode:          t.strict,
		RegisteredCallSites: len(t.registry),
		TotalChecks:         t.totalCalls,
		FallbackCount:       len(t.fallbacks),
		MismatchCount:       len(t.mismatches),
		ApprovalFlows:       len(DefaultApprovalFlows),
		HierarchicalFilters: len(DefaultHierarchicalFilters),
		RecentFallbacks:     tail(t.fallbacks, 10),
		RecentMismatches:    tail(t.mismatches, 10),
	}
}

// AuditReport returns the full per-call-site view
func (t *FallbackTracker) AuditReport() AuditReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	sites := make([]checkSite, 0, len(t.registry))
	for _, site := range t.registry {
		sites = append(sites, *site)
	}

	return AuditReport{
		Phase:       t.phase,
		GeneratedAt: time.Now().UTC(),
		CallSites:   sites,
		Fallbacks:   append([]FallbackEvent(nil), t.fallbacks...),
		Mismatches:  append([]MismatchRecord(nil), t.mismatches...),
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func appendCapped[T any](list []T, item T) []T {
	list = append(list, item)
	if len(list) > maxSampleRecords {
		list = list[len(list)-maxSampleRecords:]
	}
	return list
}

func tail[T any](list []T, n int) []T {
	if len(list) <= n {
		return append([]T(nil), list...)
	}
	return append([]T(nil), list[len(list)-n:]...)
}
