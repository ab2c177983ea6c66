package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const threadsPath = "/forum/threads"

type ForumAPI struct {
	c Caller
}

type ThreadInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type PostInput struct {
	Content string `json:"content"`
}

func (a *ForumAPI) ListThreads(ctx context.Context) ([]domain.Thread, error) {
	return fetchList[domain.Thread](ctx, a.c, threadsPath)
}

func (a *ForumAPI) GetThread(ctx context.Context, id int64) (domain.Thread, error) {
	return fetchObject[domain.Thread](ctx, a.c, pathID(threadsPath, id, ""))
}

func (a *ForumAPI) CreateThread(ctx context.Context, in ThreadInput) (domain.Thread, error) {
	var (
		raw    json.RawMessage
		thread domain.Thread
	)
	if err := a.c.Do(ctx, http.MethodPost, threadsPath, in, &raw); err != nil {
		return thread, err
	}
	err := DecodeObject(raw, &thread)
	return thread, err
}

func (a *ForumAPI) ListPosts(ctx context.Context, threadID int64) ([]domain.Post, error) {
	return fetchList[domain.Post](ctx, a.c, pathID(threadsPath, threadID, "/posts"))
}

func (a *ForumAPI) CreatePost(ctx context.Context, threadID int64, in PostInput) (domain.Post, error) {
	var (
		raw  json.RawMessage
		post domain.Post
	)
	if err := a.c.Do(ctx, http.MethodPost, pathID(threadsPath, threadID, "/posts"), in, &raw); err != nil {
		return post, err
	}
	err := DecodeObject(raw, &post)
	return post, err
}
