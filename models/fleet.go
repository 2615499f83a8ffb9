package models

import "time"

type Vehicle struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Code          string    `gorm:"size:50" json:"code"`
	LicensePlate  *string   `gorm:"size:20;uniqueIndex" json:"license_plate"`
	Brand         string    `gorm:"size:50" json:"brand"`
	Model         string    `gorm:"size:50" json:"model"`
	Year          int       `json:"year"`
	ChassisNumber string    `gorm:"size:50" json:"chassis_number"`
	EngineModel   string    `gorm:"size:50" json:"engine_model"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Driver struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Phone          string    `gorm:"size:20" json:"phone"`
	DrivingLicense string    `gorm:"size:50" json:"driving_license"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
