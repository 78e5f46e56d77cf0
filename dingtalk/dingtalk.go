// Package dingtalk formats topic alerts and delivers them to a DingTalk
// group webhook.
package dingtalk

import (
	"context"
	"log/slog"
	"strings"

	"cc98-notifier/pkg/forum"
)

// maxContentRunes bounds the content section of an alert.
const maxContentRunes = 500

// Provider defines the interface for message delivery implementations.
type Provider interface {
	// Send delivers one plain-text message.
	Send(ctx context.Context, message string) error
}

// Sender formats topic alerts and hands them to a pluggable provider.
type Sender struct {
	provider Provider
	logger   *slog.Logger
}

// New creates a sender with the given provider.
func New(provider Provider, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
	}
}

// Notify formats and delivers an alert for one topic.
func (s *Sender) Notify(ctx context.Context, topic forum.Topic, boardName, content string) error {
	message := FormatMessage(topic, boardName, content)

	s.logger.Info("Sending topic alert",
		"topic_id", topic.ID,
		"board", boardName,
		"title", topic.Title)

	return s.provider.Send(ctx, message)
}

// FormatMessage renders the fixed alert template.
func FormatMessage(topic forum.Topic, boardName, content string) string {
	var b strings.Builder
	b.WriteString("【CC98 新帖通知】\n")
	b.WriteString("板块: " + boardName + "\n")
	b.WriteString("标题: " + topic.Title + "\n")
	b.WriteString("作者: " + topic.UserName + "\n")
	b.WriteString("时间: " + FormatTime(topic.Time) + "\n")
	b.WriteString("链接: " + forum.TopicURL(topic.ID) + "\n")
	b.WriteString("----------------\n")
	b.WriteString(Truncate(content))
	return b.String()
}

// FormatTime turns the API's ISO timestamp into "YYYY-MM-DD HH:MM:SS" by
// truncation; sub-second precision and zone suffixes are dropped.
func FormatTime(raw string) string {
	if len(raw) > 19 {
		raw = raw[:19]
	}
	return strings.Replace(raw, "T", " ", 1)
}

// Truncate cuts content to maxContentRunes runes plus an ellipsis marker.
// Content at or under the limit passes through unchanged.
func Truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= maxContentRunes {
		return content
	}
	return string(runes[:maxContentRunes]) + "..."
}
