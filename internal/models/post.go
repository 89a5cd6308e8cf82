package models

import "time"

// Post is a titled submission inside a group and the root of a discussion tree.
type Post struct {
	PostID    string    `gorm:"type:varchar(36);primaryKey;column:post_id" json:"postId"`
	GroupID   string    `gorm:"type:varchar(36);not null;index:forum_posts_group_idx;column:group_id" json:"groupId"`
	Title     string    `gorm:"type:varchar(255);not null;column:title" json:"title"`
	Details   string    `gorm:"type:text;not null;default:'';column:details" json:"details"`
	UID       string    `gorm:"type:varchar(128);not null;index:forum_posts_uid_idx;column:uid" json:"uid"`
	Likes     int64     `gorm:"not null;default:0;column:likes" json:"likes"`
	Replies   int64     `gorm:"not null;default:0;column:replies" json:"replies"`
	Views     int64     `gorm:"not null;default:0;column:views" json:"views"`
	CreatedAt time.Time `gorm:"not null;index:forum_posts_created_idx;column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "forum_posts"
}
