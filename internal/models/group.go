package models

import "time"

// OwnerType names the kind of principal that owns a group. Only users own
// groups today; the column exists so other principal kinds can be added
// without a migration.
type OwnerType string

// OwnerUser is the only owner kind currently issued.
const OwnerUser OwnerType = "User"

// Group is a named topic container for posts.
type Group struct {
	GroupID     string    `gorm:"type:varchar(36);primaryKey;column:group_id" json:"groupId"`
	GroupName   string    `gorm:"type:varchar(255);not null;index:forum_groups_name_idx;column:group_name" json:"groupName"`
	Description string    `gorm:"type:text;not null;default:'';column:description" json:"description"`
	PostCount   int64     `gorm:"not null;default:0;column:post_count" json:"postCount"`
	OwnerID     string    `gorm:"type:varchar(128);not null;index:forum_groups_owner_idx;column:owner_id" json:"ownerId"`
	OwnerType   OwnerType `gorm:"type:varchar(32);not null;default:'User';column:owner_type" json:"ownerType"`
	CreatedAt   time.Time `gorm:"not null;column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name for Group
func (Group) TableName() string {
	return "forum_groups"
}
