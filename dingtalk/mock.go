package dingtalk

import (
	"context"
	"log/slog"
)

// MockProvider logs messages instead of delivering them. Wired in debug mode.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Send logs the message instead of posting it.
func (m *MockProvider) Send(_ context.Context, message string) error {
	m.logger.Info("MOCK DINGTALK MESSAGE", "message", message)
	return nil
}
