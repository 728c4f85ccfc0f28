package models

import "time"

// Post is a blog entry with an optional uploaded image. AuthorID is assigned
// at creation and never reassigned; it is the basis for ownership checks.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Image     *string   `gorm:"size:512" json:"image"`
	AuthorID  uint      `gorm:"index;not null" json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    User      `gorm:"foreignKey:AuthorID" json:"author"`
	Comments  []Comment `gorm:"foreignKey:PostID" json:"-"`
}
