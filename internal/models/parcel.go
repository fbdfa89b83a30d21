package models

import (
	"time"

	"gorm.io/datatypes"
)

// Parcel is one geographic unit of a project with its above-ground-biomass
// estimate. Every parcel belongs to exactly one project; the per-project
// materialized views aggregate over this table.
type Parcel struct {
	ID        int64          `gorm:"column:id;primaryKey" json:"id"`
	ProjectID int64          `gorm:"column:projectId;not null;index" json:"projectId"`
	Geometry  datatypes.JSON `gorm:"column:geometry;type:jsonb" json:"geometry"`
	Agb       float64        `gorm:"column:agb;not null" json:"agb"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Parcel) TableName() string {
	return "parcels"
}
