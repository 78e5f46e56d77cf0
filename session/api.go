package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"cc98-notifier/pkg/forum"
)

// NewTopics fetches the newest topics across all boards.
func (s *Session) NewTopics(ctx context.Context, from, size int) ([]forum.Topic, error) {
	var topics []forum.Topic
	if err := s.getJSON(ctx, "/topic/new", pageQuery(from, size), &topics); err != nil {
		return nil, fmt.Errorf("fetch new topics: %w", err)
	}
	return topics, nil
}

// AllBoards fetches the full board hierarchy.
func (s *Session) AllBoards(ctx context.Context) ([]forum.Board, error) {
	var roots []forum.Board
	if err := s.getJSON(ctx, "/board/all", nil, &roots); err != nil {
		return nil, fmt.Errorf("fetch boards: %w", err)
	}
	return roots, nil
}

// FirstPostContent fetches the body of a topic's opening post. Returns an
// empty string without error when the topic has no posts; the caller decides
// what to show instead.
func (s *Session) FirstPostContent(ctx context.Context, topicID int) (string, error) {
	var posts []forum.Post
	path := "/topic/" + strconv.Itoa(topicID) + "/post"
	if err := s.getJSON(ctx, path, pageQuery(0, 1), &posts); err != nil {
		return "", fmt.Errorf("fetch posts for topic %d: %w", topicID, err)
	}
	if len(posts) == 0 {
		return "", nil
	}
	return posts[0].Content, nil
}

// Me fetches the authenticated account, useful as a liveness probe.
func (s *Session) Me(ctx context.Context) (*forum.User, error) {
	var user forum.User
	if err := s.getJSON(ctx, "/me", nil, &user); err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	return &user, nil
}

func (s *Session) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := s.Get(ctx, path, query)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("Failed to close response body", "path", path, "error", closeErr)
		}
	}()

	s.logger.Debug("API request completed", "path", path, "status_code", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func pageQuery(from, size int) url.Values {
	return url.Values{
		"from": {strconv.Itoa(from)},
		"size": {strconv.Itoa(size)},
	}
}
