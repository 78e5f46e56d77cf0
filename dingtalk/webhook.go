package dingtalk

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// WebhookProvider posts messages to a DingTalk group robot webhook.
type WebhookProvider struct {
	client  *http.Client
	logger  *slog.Logger
	sendURL string
	secret  string
	now     func() time.Time
}

// NewWebhookProvider creates a provider for the given webhook URL and shared
// signing secret.
func NewWebhookProvider(sendURL, secret string, logger *slog.Logger) *WebhookProvider {
	return &WebhookProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		sendURL: sendURL,
		secret:  secret,
		now:     time.Now,
	}
}

type textMessage struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type sendResult struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Send posts one text message. The timestamp and signature are regenerated
// per request; DingTalk rejects reused or stale signatures.
func (p *WebhookProvider) Send(ctx context.Context, message string) error {
	timestamp := strconv.FormatInt(p.now().UnixMilli(), 10)
	postURL := fmt.Sprintf("%s&timestamp=%s&sign=%s", p.sendURL, timestamp, Sign(timestamp, p.secret))

	var msg textMessage
	msg.MsgType = "text"
	msg.Text.Content = message

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Warn("Failed to close webhook response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("webhook HTTP %d", resp.StatusCode)
	}

	var result sendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode webhook response: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("webhook errcode %d: %s", result.ErrCode, result.ErrMsg)
	}

	p.logger.Info("DingTalk message sent", "bytes", len(body))
	return nil
}

// Sign computes the webhook signature for a millisecond timestamp:
// URL-encoded base64 of HMAC-SHA256(secret, "<timestamp>\n<secret>").
func Sign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "\n" + secret))
	return url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}
