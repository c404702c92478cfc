package domain

type CheckType string

const (
	CheckMath          CheckType = "MATH"
	CheckIBAN          CheckType = "CHECKSUM_IBAN"
	CheckOGM           CheckType = "CHECKSUM_OGM"
	CheckVATRate       CheckType = "VAT_RATE"
	CheckCompanyExists CheckType = "COMPANY_EXISTS"
	CheckCompanyName   CheckType = "COMPANY_NAME"
)

type CheckStatus string

const (
	CheckPassed     CheckStatus = "passed"
	CheckWarning    CheckStatus = "warning"
	CheckIncomplete CheckStatus = "incomplete"
	CheckFailed     CheckStatus = "failed"
)

type AuditCheck struct {
	Type     CheckType   `json:"type"`
	Field    string      `json:"field"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Hint     string      `json:"hint,omitempty"`
	Expected string      `json:"expected,omitempty"`
	Actual   string      `json:"actual,omitempty"`
}

type AuditStatus string

const (
	AuditPassed AuditStatus = "PASSED"
	AuditFailed AuditStatus = "FAILED"
)

type AuditReport struct {
	Checks        []AuditCheck `json:"checks"`
	OverallStatus AuditStatus  `json:"overall_status"`
}

// NewAuditReport derives the overall status: PASSED iff no check failed.
func NewAuditReport(checks []AuditCheck) AuditReport {
	status := AuditPassed
	for _, c := range checks {
		if c.Status == CheckFailed {
			status = AuditFailed
			break
		}
	}
	return AuditReport{Checks: checks, OverallStatus: status}
}

func (r AuditReport) PassedCount() int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == CheckPassed {
			n++
		}
	}
	return n
}

func (r AuditReport) FailedCount() int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == CheckFailed {
			n++
		}
	}
	return n
}

// CriticalFailures returns the failed checks that block auto-approval and
// drive self-correction. Registry checks are advisory and never critical.
func (r AuditReport) CriticalFailures() []AuditCheck {
	var out []AuditCheck
	for _, c := range r.Checks {
		if c.Status != CheckFailed {
			continue
		}
		switch c.Type {
		case CheckMath, CheckIBAN, CheckOGM, CheckVATRate:
			out = append(out, c)
		}
	}
	return out
}
