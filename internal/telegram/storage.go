package telegram

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gotd/td/session"
	"gorm.io/gorm"
)

// sessionRow is the single-row table holding the MTProto session payload.
// Version is fixed to 1 so Save upserts instead of growing the table.
type sessionRow struct {
	Version int `gorm:"primaryKey"`
	Data    []byte
}

func (sessionRow) TableName() string { return "sessions" }

// Storage persists the gotd session payload in a database.
// It implements session.Storage.
type Storage struct {
	db *gorm.DB
}

var _ session.Storage = (*Storage)(nil)

// NewStorage creates the session store, migrating the sessions table.
func NewStorage(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate sessions table: %w", err)
	}
	return &Storage{db: db}, nil
}

// LoadSession returns the stored session payload, or session.ErrNotFound
// when no session has been saved yet.
func (s *Storage) LoadSession(ctx context.Context) ([]byte, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "version = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(row.Data) == 0 {
		return nil, session.ErrNotFound
	}
	return row.Data, nil
}

// StoreSession saves the session payload, overwriting any previous one.
func (s *Storage) StoreSession(ctx context.Context, data []byte) error {
	return s.db.WithContext(ctx).Save(&sessionRow{Version: 1, Data: data}).Error
}

// SeedSessionToken imports a previously exported session token into the
// storage. The token is the base64 form produced by ExportSessionToken.
// A session already in storage wins over the token: the stored one is
// fresher (auth key rotations are persisted there).
func SeedSessionToken(ctx context.Context, storage session.Storage, token string) error {
	if _, err := storage.LoadSession(ctx); err == nil {
		return nil
	} else if !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("check stored session: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("decode session token: %w", err)
	}

	var data session.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse session token: %w", err)
	}

	loader := session.Loader{Storage: storage}
	if err := loader.Save(ctx, &data); err != nil {
		return fmt.Errorf("seed session: %w", err)
	}
	return nil
}

// ExportSessionToken renders the stored session as a base64 token suitable
// for TG_SESSION_STRING on a future start.
func ExportSessionToken(ctx context.Context, storage session.Storage) (string, error) {
	loader := session.Loader{Storage: storage}
	data, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
