package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeSystem ActorType = "system"
	ActorTypeUser   ActorType = "user"
)

// AuditLog records a state change on a contract, installment or commission.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	ActorType  ActorType         `gorm:"type:text;not null" json:"actor_type"`
	ActorID    *snowflake.ID     `json:"actor_id,omitempty"`
	Action     string            `gorm:"type:varchar(64);not null;index" json:"action"`
	TargetType string            `gorm:"type:text;not null" json:"target_type"`
	TargetID   snowflake.ID      `gorm:"not null;index" json:"target_id"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry is the caller-facing shape of an audit record.
type Entry struct {
	ActorID    *snowflake.ID
	Action     string
	TargetType string
	TargetID   snowflake.ID
	Metadata   map[string]any
}
