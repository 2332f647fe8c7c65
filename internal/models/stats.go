package models

// Revenue breaks board income into its components. Values are rounded to two
// decimals at the fold boundary.
type Revenue struct {
	Revenue    float64 `json:"revenue"`
	Commission float64 `json:"commission"`
	Profit     float64 `json:"profit"`
}

// BoardStats aggregates one or many teacher queues for dashboards.
type BoardStats struct {
	EventCount   int     `json:"event_count"`
	StudentCount int     `json:"student_count"`
	TotalHours   float64 `json:"total_hours"`
	TotalRevenue Revenue `json:"total_revenue"`
}

// TeacherStats pairs a teacher with their share of the board aggregates.
type TeacherStats struct {
	TeacherID string     `json:"teacher_id"`
	Stats     BoardStats `json:"stats"`
}
