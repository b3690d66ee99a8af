package models

// Faculty is resolved by the institution-prefixed unit code.
type Faculty struct {
	ID            string `db:"id" json:"id"`
	NSDCode       string `db:"nsd_code" json:"nsd_code"`
	NorwegianName string `db:"norwegian_name" json:"norwegian_name"`
	EnglishName   string `db:"english_name" json:"english_name"`
	ShortName     string `db:"short_name" json:"short_name"`
}

// Department optionally belongs to a faculty.
type Department struct {
	ID            string  `db:"id" json:"id"`
	NSDCode       string  `db:"nsd_code" json:"nsd_code"`
	FacultyID     *string `db:"faculty_id" json:"faculty_id,omitempty"`
	NorwegianName string  `db:"norwegian_name" json:"norwegian_name"`
	EnglishName   string  `db:"english_name" json:"english_name"`
	ShortName     string  `db:"short_name" json:"short_name"`
}

// OrgUnits is a preloaded, caller-owned view of faculties and departments.
type OrgUnits struct {
	Faculties   []Faculty
	Departments []Department
}
