// Package verify implements the credential integrity pipeline: a fixed
// sequence of independent checks that always run to completion.
package verify

// Status is the outcome of a single check.
type Status string

const (
	Passed  Status = "Passed"
	Failed  Status = "Failed"
	Warning Status = "Warning"
)

// CheckResult is one check's outcome. Detail is a server-side diagnostic;
// it must never be surfaced to the credential holder (see Report.Reason).
type CheckResult struct {
	Name   string
	Status Status
	Detail string
}

// Report collects the full pipeline outcome.
type Report struct {
	CredentialID string
	Checks       []CheckResult
	Strict       bool
}

// Overall reduces the pipeline to a single status: Failed dominates, then
// Warning. In non-strict mode warnings are promoted to Passed.
func (r *Report) Overall() Status {
	anyWarning := false
	for _, c := range r.Checks {
		switch c.Status {
		case Failed:
			return Failed
		case Warning:
			anyWarning = true
		}
	}
	if anyWarning && r.Strict {
		return Warning
	}
	return Passed
}

// Ok reports whether the credential can be trusted under the report's
// strictness.
func (r *Report) Ok() bool {
	return r.Overall() == Passed
}

// Reason returns a generic, non-leaking outcome message suitable for
// returning to callers. Full diagnostics stay in Checks for server logs.
func (r *Report) Reason() string {
	switch r.Overall() {
	case Failed:
		return "credential verification failed"
	case Warning:
		return "credential verification passed with warnings"
	default:
		return "credential verification passed"
	}
}

// Failures returns the failed checks, for logging.
func (r *Report) Failures() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if c.Status == Failed {
			out = append(out, c)
		}
	}
	return out
}
