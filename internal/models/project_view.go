package models

import "time"

// ProjectView is the bookkeeping row for one per-project materialized view.
// At most one row exists per project id; rows are written only by the view
// lifecycle manager. A view present in the database catalog without a row
// here was not created by us (schema drift).
type ProjectView struct {
	ProjectID   int64      `gorm:"column:projectId;primaryKey" json:"projectId"`
	ViewName    string     `gorm:"column:viewName;not null;uniqueIndex" json:"viewName"`
	IndexName   string     `gorm:"column:indexName;not null" json:"indexName"`
	Stale       bool       `gorm:"column:stale;not null;default:false" json:"stale"`
	CreatedAt   time.Time  `json:"createdAt"`
	RefreshedAt *time.Time `gorm:"column:refreshedAt" json:"refreshedAt"`
}

func (ProjectView) TableName() string {
	return "projectViews"
}
