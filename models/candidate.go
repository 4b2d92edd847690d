package models

// Candidate is one row of an exam result sheet. Rows are bulk-imported from
// CSV and never updated; a re-import wipes and recreates them. SBD is the
// registration number and is not guaranteed unique within a sheet.
type Candidate struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	SBD       string  `json:"sbd" gorm:"index;not null"`
	Name      string  `json:"name"`
	Birth     string  `json:"birth"`
	Place     string  `json:"place"`
	Sex       string  `json:"sex"`
	ClassName string  `json:"class_name"`
	School    string  `json:"school"`
	Subject   string  `json:"subject" gorm:"index"`
	Score     float64 `json:"score" gorm:"not null"`
	Rank      string  `json:"rank"`
	Prize     string  `json:"prize"`
	ExamType  string  `json:"exam_type" gorm:"index;not null;default:'data1'"`
}
