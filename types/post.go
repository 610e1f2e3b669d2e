package types

import "time"

// Post represents a published blog article.
//
// JSON names follow the wire format the blog front end already consumes
// ("cat", "blog", "isMostViewed", ...), which is why they differ from the
// Go field names.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// Title is the unique headline of the post.
	Title string `json:"title" db:"title"`

	// URL is the unique slug the post is addressed by.
	URL string `json:"url" db:"url"`

	// Summary is an optional teaser shown in listings.
	Summary string `json:"summary" db:"summary"`

	// Category is optional free text used for filtering.
	Category string `json:"cat" db:"cat"`

	// Img is an optional cover image reference.
	Img string `json:"img" db:"img"`

	// Body holds the article content.
	Body string `json:"blog" db:"body"`

	// Likes and Dislikes are vote counters. They never go below zero.
	Likes    int `json:"like" db:"likes"`
	Dislikes int `json:"dislike" db:"dislikes"`

	// IsMostViewed marks the post for the curated "most viewed" listing.
	// It is set by editors, not derived from traffic.
	IsMostViewed bool `json:"isMostViewed" db:"is_most_viewed"`

	// AuthorID references the user who created the post. The reference is
	// resolved at read time; deleting a user does not cascade.
	AuthorID int `json:"author" db:"author_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// PostPage is one page of a filtered post listing.
type PostPage struct {
	Items      []Post `json:"data"`
	TotalCount int    `json:"totalCount"`
}

// PostEdit replaces the editable fields of the post addressed by URL.
// A nil flag or counter keeps the stored value.
type PostEdit struct {
	URL          string
	Title        string
	Summary      string
	Category     string
	Img          string
	Body         string
	IsMostViewed *bool
	Likes        *int
	Dislikes     *int
}

// PostFilter narrows a post listing. Empty fields are ignored.
type PostFilter struct {
	Search   string
	Category string
}

// PostEvent describes a change to a post, published to the message queue.
type PostEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	PostID    int       `json:"post_id"`
	URL       string    `json:"url,omitempty"`
	Title     string    `json:"title,omitempty"`
	AuthorID  int       `json:"author_id,omitempty"`
	Likes     int       `json:"like"`
	Dislikes  int       `json:"dislike"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	PostEventCreated  = "post.created"
	PostEventUpdated  = "post.updated"
	PostEventDeleted  = "post.deleted"
	PostEventLiked    = "post.liked"
	PostEventDisliked = "post.disliked"
)
