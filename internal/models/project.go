package models

import (
	"time"

	"gorm.io/gorm"
)

// Project lifecycle statuses. Projects are owned by the external
// project-management subsystem; this service only reads them.
const (
	StatusActive    = "ACTIVE"
	StatusPaused    = "PAUSED"
	StatusCompleted = "COMPLETED"
	StatusArchived  = "ARCHIVED"
)

// Project types (restoration methodology).
const (
	TypeReforestation    = "REFORESTATION"
	TypeAfforestation    = "AFFORESTATION"
	TypeForestManagement = "FOREST_MANAGEMENT"
	TypeAgroforestry     = "AGROFORESTRY"
)

// Project is a restoration project record. The ID is assigned upstream and
// immutable; all per-project database objects are named from it.
type Project struct {
	ID          int64          `gorm:"column:id;primaryKey" json:"id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Latitude    float64        `gorm:"column:latitude" json:"latitude"`
	Longitude   float64        `gorm:"column:longitude" json:"longitude"`
	Status      string         `gorm:"column:status;type:varchar(32);not null;default:'ACTIVE'" json:"status"`
	ProjectType string         `gorm:"column:projectType;type:varchar(32);not null" json:"projectType"`
	Co2Estimate float64        `gorm:"column:co2Estimate" json:"co2Estimate"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string {
	return "projects"
}
