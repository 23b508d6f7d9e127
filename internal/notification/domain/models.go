package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindGoLiveCompleted     Kind = "installment.go_live_completed"
	KindGoLiveReverted      Kind = "installment.go_live_reverted"
	KindCommissionRequested Kind = "commission.requested"
	KindCommissionApproved  Kind = "commission.approved"
	KindCommissionRejected  Kind = "commission.rejected"
	KindCommissionReverted  Kind = "commission.reverted"
)

// Event is what a workflow hands to the notifier. One notification row is
// stored per target user.
type Event struct {
	OrgID         snowflake.ID
	Kind          Kind
	Title         string
	Message       string
	ReferenceType string
	ReferenceID   snowflake.ID
	TargetUserIDs []snowflake.ID
}

type Notification struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;index" json:"organization_id"`
	TargetUserID  snowflake.ID `gorm:"not null;index" json:"target_user_id"`
	Title         string       `gorm:"type:text;not null" json:"title"`
	Message       string       `gorm:"type:text" json:"message"`
	Kind          Kind         `gorm:"type:text;not null" json:"kind"`
	ReferenceType string       `gorm:"type:text" json:"reference_type"`
	ReferenceID   snowflake.ID `json:"reference_id"`
	ReadAt        *time.Time   `json:"read_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
