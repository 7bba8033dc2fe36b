package visitor

import "gorm.io/gorm"

// Visit records one crawler hit inside the trap.
type Visit struct {
	gorm.Model
	ClientIP  string `gorm:"size:64;index:idx_visits_client_ip;not null"`
	UserAgent string `gorm:"size:512"`
	Path      string `gorm:"size:512;not null"`
}

// TableName defines the table name for the Visit model.
func (Visit) TableName() string {
	return "visits"
}
