package models

// DashboardStats summarises admissions for the admin dashboard.
type DashboardStats struct {
	TotalApplicants        int            `json:"totalApplicants"`
	PendingVerifications   int            `json:"pendingVerifications"`
	Accepted               int            `json:"accepted"`
	Rejected               int            `json:"rejected"`
	DocsAwaiting           int            `json:"docsAwaiting"`
	IncompleteRequirements int            `json:"incompleteRequirements"`
	ProgramDistribution    []ProgramCount `json:"programDistribution"`
	MonthlyApplicants      []MonthlyCount `json:"monthlyApplicants"`
}

// ProgramCount is the number of submitted applications for a programme.
type ProgramCount struct {
	Program string `db:"program" json:"program"`
	Count   int    `db:"count" json:"count"`
}

// MonthlyCount is the number of submitted applications in a month (YYYY-MM).
type MonthlyCount struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}
