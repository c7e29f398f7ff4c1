package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Publication is a public post wrapping an immutable snapshot of a plan.
// City mirrors the snapshot's city so it can be filtered in SQL.
type Publication struct {
	ID           uint                             `gorm:"primaryKey" json:"id"`
	SharedPlanID uint                             `gorm:"not null;index" json:"shared_plan_id"`
	AuthorID     uint                             `gorm:"not null;index" json:"author_id"`
	AuthorName   string                           `gorm:"size:150;not null" json:"author_name"`
	Description  string                           `gorm:"type:text" json:"description"`
	City         string                           `gorm:"size:255;index" json:"city"`
	PlanSnapshot datatypes.JSONType[PlanSnapshot] `gorm:"not null" json:"plan_snapshot"`
	Engagement   `gorm:"embedded"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

func (p *Publication) BeforeSave(_ *gorm.DB) error {
	p.Engagement.Normalize()
	return nil
}
