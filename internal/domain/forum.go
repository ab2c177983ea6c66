package domain

import "time"

type Thread struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  int64     `json:"authorId"`
	Author    string    `json:"author"`
	PostCount int       `json:"postCount"`
	CreatedAt time.Time `json:"createdAt"`
}

type Post struct {
	ID        int64     `json:"id"`
	ThreadID  int64     `json:"threadId"`
	Content   string    `json:"content"`
	AuthorID  int64     `json:"authorId"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}
