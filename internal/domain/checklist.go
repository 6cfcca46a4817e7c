package domain

// RowStatus is the outcome of one checklist criterion.
type RowStatus string

const (
	RowPass    RowStatus = "pass"
	RowFail    RowStatus = "fail"
	RowBlocked RowStatus = "blocked"
	RowNA      RowStatus = "na"
)

// ChecklistRow is a single named gating criterion. Required defaults to true;
// rows are stored with Required explicit so JSON round-trips keep the flag.
type ChecklistRow struct {
	Name     string    `json:"name"`
	Status   RowStatus `json:"status"`
	Detail   string    `json:"detail"`
	Required bool      `json:"required"`
}

// Checklist groups the three gating sections of a candidate. Global and
// Regime are advisory for the DTE credit-spread sleeves; only Strategy rows
// bind readiness.
type Checklist struct {
	Global   []ChecklistRow `json:"global"`
	Regime   []ChecklistRow `json:"regime"`
	Strategy []ChecklistRow `json:"strategy"`
}

// RequiredRow builds a required row with the given status and detail.
func RequiredRow(name string, status RowStatus, detail string) ChecklistRow {
	return ChecklistRow{Name: name, Status: status, Detail: detail, Required: true}
}

// AdvisoryRow builds a non-required informational row.
func AdvisoryRow(name string, status RowStatus, detail string) ChecklistRow {
	return ChecklistRow{Name: name, Status: status, Detail: detail, Required: false}
}

// FirstFailingRequired returns the first row, in declared order, that is
// required and not passing. The second return is false when every required
// row passes.
func FirstFailingRequired(rows []ChecklistRow) (ChecklistRow, bool) {
	for _, r := range rows {
		if r.Required && r.Status != RowPass {
			return r, true
		}
	}
	return ChecklistRow{}, false
}

// AllRequiredPass reports whether every required row in the slice passes.
func AllRequiredPass(rows []ChecklistRow) bool {
	_, failing := FirstFailingRequired(rows)
	return !failing
}
