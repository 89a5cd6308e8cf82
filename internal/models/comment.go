package models

import "time"

// Comment is a reply attached either to a post or to another comment.
// ParentID and ParentType never change after creation.
type Comment struct {
	CommentID  string     `gorm:"type:varchar(36);primaryKey;column:comment_id" json:"commentId"`
	Comment    string     `gorm:"type:text;not null;column:comment" json:"comment"`
	UID        string     `gorm:"type:varchar(128);not null;index:forum_comments_uid_idx;column:uid" json:"uid"`
	ParentID   string     `gorm:"type:varchar(36);not null;index:forum_comments_parent_idx,priority:2;column:parent_id" json:"parentId"`
	ParentType ParentKind `gorm:"type:varchar(16);not null;index:forum_comments_parent_idx,priority:1;column:parent_type" json:"parentType"`
	Replies    int64      `gorm:"not null;default:0;column:replies" json:"replies"`
	Likes      int64      `gorm:"not null;default:0;column:likes" json:"likes"`
	CreatedAt  time.Time  `gorm:"not null;column:created_at" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"not null;column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "forum_comments"
}

// Parent returns the typed parent reference of c.
func (c *Comment) Parent() Parent {
	return Parent{kind: c.ParentType, id: c.ParentID}
}
