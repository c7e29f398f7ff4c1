package models

import (
	"time"

	"gorm.io/datatypes"
)

// TargetKind names the aggregate an engagement action is applied to.
type TargetKind string

const (
	TargetPlan        TargetKind = "plan"
	TargetPublication TargetKind = "publication"
)

// Valid reports whether k is a known target kind.
func (k TargetKind) Valid() bool {
	return k == TargetPlan || k == TargetPublication
}

// Like is at most one per user on a target.
type Like struct {
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Reply hangs off a comment. Replies have no children.
type Reply struct {
	ID         string    `json:"id"`
	AuthorID   uint      `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reaction is keyed by (AuthorID, Type); one author may hold several types.
type Reaction struct {
	ID         string    `json:"id"`
	AuthorID   uint      `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}

// Comment is embedded in a plan or a publication.
type Comment struct {
	ID         string     `json:"id"`
	AuthorID   uint       `json:"author_id"`
	AuthorName string     `json:"author_name"`
	Text       string     `json:"text"`
	CreatedAt  time.Time  `json:"created_at"`
	Replies    []Reply    `json:"replies"`
	Reactions  []Reaction `json:"reactions"`
}

// Engagement is the social state shared by plans and publications. Version
// guards every write of the embedded lists.
type Engagement struct {
	Likes    datatypes.JSONSlice[Like]    `gorm:"not null" json:"likes"`
	Comments datatypes.JSONSlice[Comment] `gorm:"not null" json:"comments"`
	ClonedBy datatypes.JSONSlice[uint]    `gorm:"not null" json:"cloned_by"`
	Version  int                          `gorm:"not null;default:0" json:"-"`
}

// Normalize replaces nil lists with empty ones so columns never hold null.
func (e *Engagement) Normalize() {
	if e.Likes == nil {
		e.Likes = datatypes.JSONSlice[Like]{}
	}
	if e.Comments == nil {
		e.Comments = datatypes.JSONSlice[Comment]{}
	}
	if e.ClonedBy == nil {
		e.ClonedBy = datatypes.JSONSlice[uint]{}
	}
}

// HasLiked reports whether userID currently likes the target.
func (e *Engagement) HasLiked(userID uint) bool {
	for _, l := range e.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// ToggleLike removes userID's like if present, else appends one.
// It returns the resulting state.
func (e *Engagement) ToggleLike(userID uint, userName string, now time.Time) bool {
	for i, l := range e.Likes {
		if l.UserID == userID {
			e.Likes = append(e.Likes[:i:i], e.Likes[i+1:]...)
			return false
		}
	}
	e.Likes = append(e.Likes, Like{UserID: userID, UserName: userName, CreatedAt: now})
	return true
}

// FindComment returns the index of the comment with id, or -1.
func (e *Engagement) FindComment(id string) int {
	for i := range e.Comments {
		if e.Comments[i].ID == id {
			return i
		}
	}
	return -1
}

// AddReply appends reply to the comment with commentID.
func (e *Engagement) AddReply(commentID string, reply Reply) bool {
	i := e.FindComment(commentID)
	if i < 0 {
		return false
	}
	e.Comments[i].Replies = append(e.Comments[i].Replies, reply)
	return true
}

// ToggleReaction removes the (author, type) reaction on the comment if
// present, else appends r. It returns the comment's reactions afterwards.
func (e *Engagement) ToggleReaction(commentID string, r Reaction) ([]Reaction, bool) {
	i := e.FindComment(commentID)
	if i < 0 {
		return nil, false
	}
	c := &e.Comments[i]
	for j, existing := range c.Reactions {
		if existing.AuthorID == r.AuthorID && existing.Type == r.Type {
			c.Reactions = append(c.Reactions[:j:j], c.Reactions[j+1:]...)
			return c.Reactions, true
		}
	}
	c.Reactions = append(c.Reactions, r)
	return c.Reactions, true
}

// AddCloner records userID in ClonedBy. With dedupe set, an existing entry
// is left alone and false is returned.
func (e *Engagement) AddCloner(userID uint, dedupe bool) bool {
	if dedupe {
		for _, id := range e.ClonedBy {
			if id == userID {
				return false
			}
		}
	}
	e.ClonedBy = append(e.ClonedBy, userID)
	return true
}

// RenameAuthor rewrites the cached name on every like, comment, reply and
// reaction by userID. It returns how many entries changed.
func (e *Engagement) RenameAuthor(userID uint, name string) int {
	changed := 0
	for i := range e.Likes {
		if e.Likes[i].UserID == userID && e.Likes[i].UserName != name {
			e.Likes[i].UserName = name
			changed++
		}
	}
	for i := range e.Comments {
		c := &e.Comments[i]
		if c.AuthorID == userID && c.AuthorName != name {
			c.AuthorName = name
			changed++
		}
		for j := range c.Replies {
			if c.Replies[j].AuthorID == userID && c.Replies[j].AuthorName != name {
				c.Replies[j].AuthorName = name
				changed++
			}
		}
		for j := range c.Reactions {
			if c.Reactions[j].AuthorID == userID && c.Reactions[j].AuthorName != name {
				c.Reactions[j].AuthorName = name
				changed++
			}
		}
	}
	return changed
}
