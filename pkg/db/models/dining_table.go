package models

import "time"

// DiningTable maps a printed QR token to the backend's table id. The id
// column mirrors the restaurant backend's table numbering so it can be sent
// upstream as-is.
type DiningTable struct {
	ID        int64      `gorm:"column:id;primaryKey"`
	Label     string     `gorm:"column:label;not null"`
	QRToken   string     `gorm:"column:qr_token;uniqueIndex;not null"`
	Active    bool       `gorm:"column:active;not null;default:true"`
	RotatedAt *time.Time `gorm:"column:rotated_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name.
func (DiningTable) TableName() string {
	return "dining_tables"
}
