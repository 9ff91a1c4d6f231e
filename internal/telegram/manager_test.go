package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/grouppulse/internal/config"
)

func testManager() *Manager {
	return NewManager(&config.Config{TGApiID: 12345, TGApiHash: "test_hash"}, &session.StorageMemory{})
}

func TestManager_InitialStatus(t *testing.T) {
	m := testManager()
	assert.Equal(t, StatusInitializing, m.Status())

	_, err := m.API()
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestManager_Connect_Ready(t *testing.T) {
	m := testManager()
	m.SetRunFunc(func(ctx context.Context, _ CredentialsProvider, onReady func()) error {
		onReady()
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := m.Connect(ctx, scriptedCreds{})
	require.NoError(t, err)
	assert.Equal(t, StatusReady, m.Status())
}

func TestManager_Connect_RetryBudgetExhausted(t *testing.T) {
	m := testManager()

	attempts := 0
	m.SetRunFunc(func(_ context.Context, _ CredentialsProvider, _ func()) error {
		attempts++
		return errors.New("dial failed")
	})

	err := m.Connect(context.Background(), scriptedCreds{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Contains(t, err.Error(), "retry budget exhausted")
	assert.Equal(t, connectRetryBudget, attempts)
	assert.Equal(t, StatusError, m.Status())
}

func TestManager_Connect_RunEndsWithoutError(t *testing.T) {
	m := testManager()
	m.SetRunFunc(func(_ context.Context, _ CredentialsProvider, _ func()) error {
		return nil
	})

	err := m.Connect(context.Background(), scriptedCreds{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Contains(t, err.Error(), "connection closed before authentication")
	assert.NotContains(t, err.Error(), "%!w")
	assert.Equal(t, StatusError, m.Status())
}

func TestManager_Connect_AuthRejected(t *testing.T) {
	m := testManager()
	m.SetRunFunc(func(_ context.Context, _ CredentialsProvider, _ func()) error {
		return errors.New("auth flow: PHONE_CODE_INVALID")
	})

	err := m.Connect(context.Background(), scriptedCreds{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, StatusError, m.Status())

	_, apiErr := m.API()
	assert.ErrorIs(t, apiErr, ErrNotAuthorized)
}

func TestManager_Connect_ContextCanceled(t *testing.T) {
	m := testManager()
	m.SetRunFunc(func(ctx context.Context, _ CredentialsProvider, _ func()) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.Connect(ctx, scriptedCreds{})
	require.Error(t, err)
	assert.Equal(t, StatusError, m.Status())
}

func TestManager_StatusConcurrent(t *testing.T) {
	m := testManager()

	start := make(chan struct{})
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		go func() {
			<-start
			m.Status()
			done <- struct{}{}
		}()
	}

	close(start)
	for i := 0; i < 100; i++ {
		<-done
	}
}
