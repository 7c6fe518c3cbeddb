package models

import "time"

// Post is a text entry published by an author, optionally filed under a
// group and optionally carrying an image attachment.
//
// Deleting the author deletes the post; deleting the group only detaches it
// (the post survives with a NULL group). The repository delete methods own
// this behavior explicitly; the constraint tags keep native engines in
// agreement.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Text     string `gorm:"type:text;not null" json:"text"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID  *uint  `gorm:"index" json:"group_id,omitempty"`
	Group    *Group `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	// Image is the media-relative path of the uploaded attachment, empty when none.
	Image   string    `json:"image,omitempty"`
	PubDate time.Time `gorm:"autoCreateTime;index" json:"pub_date"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int       `gorm:"->" json:"comments_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// String renders a post as its text.
func (p Post) String() string {
	return p.Text
}
