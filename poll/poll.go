// Package poll drives the fetch-dedup-notify cycle against the forum API.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"cc98-notifier/pkg/forum"
)

const (
	// fetchSize bounds how many of the newest topics each cycle looks at.
	fetchSize = 20

	// contentPlaceholder stands in when a matched topic's opening post
	// could not be fetched.
	contentPlaceholder = "No content available."
)

// Client is the authenticated forum API surface the loop needs.
type Client interface {
	Login(ctx context.Context) error
	NewTopics(ctx context.Context, from, size int) ([]forum.Topic, error)
	FirstPostContent(ctx context.Context, topicID int) (string, error)
}

// BoardNames resolves board ids to display names.
type BoardNames interface {
	Name(ctx context.Context, boardID int) string
}

// Notifier delivers alerts for matched topics.
type Notifier interface {
	Notify(ctx context.Context, topic forum.Topic, boardName, content string) error
}

// Matcher decides which topics notify.
type Matcher interface {
	Match(t forum.Topic) bool
}

// RecoveryPolicy bounds the session recovery performed when a poll returns
// no topics. The API signals a silently expired token by returning an empty
// list instead of an auth error, so an empty fetch triggers a re-login even
// though an empty list is also what a genuinely quiet forum returns. That
// ambiguity is inherited from the API and preserved on purpose.
type RecoveryPolicy struct {
	ReloginAttempts int
	RefetchAttempts int
}

// DefaultRecoveryPolicy is one re-login followed by one re-fetch.
func DefaultRecoveryPolicy() RecoveryPolicy {
	return RecoveryPolicy{ReloginAttempts: 1, RefetchAttempts: 1}
}

// Status is a point-in-time snapshot of the loop for the status endpoint.
type Status struct {
	LastCycleAt   time.Time `json:"last_cycle_at"`
	HighWaterMark int       `json:"high_water_mark"`
	CyclesRun     int       `json:"cycles_run"`
	CyclesFailed  int       `json:"cycles_failed"`
	Notified      int       `json:"notified"`
}

// Monitor owns the high-water-mark and runs the poll loop. The loop is the
// single writer of all state; the mutex exists only so the status endpoint
// can read a consistent snapshot.
type Monitor struct {
	client   Client
	boards   BoardNames
	notifier Notifier
	rules    Matcher
	logger   *slog.Logger
	policy   RecoveryPolicy
	interval time.Duration

	mu     sync.Mutex
	status Status
}

// Config holds monitor construction parameters.
type Config struct {
	Client   Client
	Boards   BoardNames
	Notifier Notifier
	Rules    Matcher
	Policy   RecoveryPolicy
	Interval time.Duration
	Logger   *slog.Logger
}

// New creates a monitor. Init must be called before Run.
func New(cfg *Config) *Monitor {
	return &Monitor{
		client:   cfg.Client,
		boards:   cfg.Boards,
		notifier: cfg.Notifier,
		rules:    cfg.Rules,
		policy:   cfg.Policy,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Init establishes the baseline: the high-water-mark starts at the newest
// existing topic id so topics created before the process never notify. A
// failure here is fatal to the caller — without a baseline every
// pre-existing topic would alert on the first cycle.
func (m *Monitor) Init(ctx context.Context) error {
	m.logger.Info("Fetching current topics to establish baseline")

	topics, err := m.client.NewTopics(ctx, 0, fetchSize)
	if err != nil {
		return fmt.Errorf("fetch baseline topics: %w", err)
	}

	mark := 0
	for _, t := range topics {
		if t.ID > mark {
			mark = t.ID
		}
	}
	m.advanceMark(mark)

	if len(topics) == 0 {
		m.logger.Warn("No topics found during baseline fetch")
	}
	m.logger.Info("Baseline established", "high_water_mark", mark, "topics_seen", len(topics))
	return nil
}

// Run polls on a fixed interval until the context is cancelled. Cycle
// failures are logged and absorbed; only cancellation ends the loop.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Poll loop started", "interval", m.interval.String())

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Poll loop stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

// runCycle is the cycle boundary: every error from inside one cycle lands
// here, is logged, and leaves the high-water-mark untouched so the next
// tick retries the whole cycle.
func (m *Monitor) runCycle(ctx context.Context) {
	err := m.cycle(ctx)

	m.mu.Lock()
	m.status.CyclesRun++
	m.status.LastCycleAt = time.Now()
	if err != nil {
		m.status.CyclesFailed++
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("Poll cycle failed", "error", err)
	}
}

func (m *Monitor) cycle(ctx context.Context) error {
	topics, err := m.client.NewTopics(ctx, 0, fetchSize)
	if err != nil {
		return fmt.Errorf("fetch new topics: %w", err)
	}

	if len(topics) == 0 {
		topics, err = m.recoverSession(ctx)
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			m.logger.Warn("Still no topics after re-login")
			return nil
		}
	}

	mark := m.Mark()
	maxSeen := mark
	var fresh []forum.Topic
	for _, t := range topics {
		if t.ID > maxSeen {
			maxSeen = t.ID
		}
		if t.ID > mark {
			fresh = append(fresh, t)
		}
	}

	// Notify in creation order, not in whatever order the API returned.
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })

	for _, topic := range fresh {
		m.process(ctx, topic)
	}

	// Every fetched topic counts as evaluated, matched or not; per-topic
	// failures were handled locally and must not hold the mark back.
	m.advanceMark(maxSeen)

	m.logger.Info("Cycle complete",
		"high_water_mark", maxSeen,
		"fetched", len(topics),
		"new", len(fresh))
	return nil
}

// recoverSession applies the bounded empty-fetch recovery: re-login, then
// re-fetch. A failed re-login ends the cycle quietly; a re-fetch network
// error propagates to the cycle boundary like any other fetch error.
func (m *Monitor) recoverSession(ctx context.Context) ([]forum.Topic, error) {
	m.logger.Warn("Fetch returned no topics; session may have expired, attempting re-login")

	for attempt := 1; attempt <= m.policy.ReloginAttempts; attempt++ {
		if err := m.client.Login(ctx); err != nil {
			m.logger.Error("Re-login failed", "attempt", attempt, "error", err)
			return nil, nil
		}
		for refetch := 1; refetch <= m.policy.RefetchAttempts; refetch++ {
			topics, err := m.client.NewTopics(ctx, 0, fetchSize)
			if err != nil {
				return nil, fmt.Errorf("re-fetch after re-login: %w", err)
			}
			if len(topics) > 0 {
				return topics, nil
			}
		}
	}
	return nil, nil
}

// process evaluates one topic. Content and delivery failures are recovered
// locally so the rest of the cycle proceeds.
func (m *Monitor) process(ctx context.Context, topic forum.Topic) {
	boardName := m.boards.Name(ctx, topic.BoardID)

	if !m.rules.Match(topic) {
		m.logger.Info("Ignored topic",
			"topic_id", topic.ID,
			"board", boardName,
			"title", topic.Title)
		return
	}

	content, err := m.client.FirstPostContent(ctx, topic.ID)
	if err != nil {
		m.logger.Error("Content fetch failed", "topic_id", topic.ID, "error", err)
		content = ""
	}
	if content == "" {
		content = contentPlaceholder
	}

	if err := m.notifier.Notify(ctx, topic, boardName, content); err != nil {
		m.logger.Error("Notification delivery failed", "topic_id", topic.ID, "error", err)
		return
	}

	m.mu.Lock()
	m.status.Notified++
	m.mu.Unlock()
}

// Mark returns the current high-water-mark.
func (m *Monitor) Mark() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status.HighWaterMark
}

// advanceMark is the only writer of the mark and never moves it backwards.
func (m *Monitor) advanceMark(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id > m.status.HighWaterMark {
		m.status.HighWaterMark = id
	}
}

// Status returns a snapshot for the status endpoint.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}
