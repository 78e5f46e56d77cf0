// Package forum contains the core domain types for the CC98 notification service.
package forum

import "fmt"

// Topic is a discussion thread as returned by /topic/new. IDs are assigned by
// the forum and strictly increase with creation time.
type Topic struct {
	ID       int    `json:"id"`
	BoardID  int    `json:"boardId"`
	Title    string `json:"title"`
	UserName string `json:"userName"`
	Time     string `json:"time"`
}

// Board is one node of the hierarchy served by /board/all. Top-level boards
// carry their sub-boards inline; ids are unique across both levels.
type Board struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Boards []Board `json:"boards"`
}

// Post is a single post inside a topic.
type Post struct {
	Content string `json:"content"`
}

// User is the authenticated account returned by /me.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Credentials are the OAuth client credentials scraped from the web bundle.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// TokenSet holds the tokens issued by the password grant.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TopicURL returns the public permalink for a topic.
func TopicURL(id int) string {
	return fmt.Sprintf("https://www.cc98.org/topic/%d", id)
}
