package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/helpify-project/pairlink/internal/database/models"
	"github.com/helpify-project/pairlink/internal/room"
)

var _ room.DeadlineStore = (*DeadlineStore)(nil)

// DeadlineStore keeps room deadlines in the room_deadlines table so expiry
// survives a restart.
type DeadlineStore struct {
	db *DB
}

func NewDeadlineStore(db *DB) *DeadlineStore {
	return &DeadlineStore{db: db}
}

func (s *DeadlineStore) Get(ctx context.Context, name string) (time.Time, bool, error) {
	var row models.RoomDeadline
	err := s.db.NewSelect().
		Model(&row).
		Where("room = ?", name).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("select deadline: %w", err)
	}
	return time.UnixMilli(row.ExpiresAt), true, nil
}

func (s *DeadlineStore) SetIfAbsent(ctx context.Context, name string, at time.Time) (bool, error) {
	row := &models.RoomDeadline{Room: name, ExpiresAt: at.UnixMilli()}
	res, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (room) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert deadline: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert deadline: %w", err)
	}
	return n > 0, nil
}

func (s *DeadlineStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.NewDelete().
		Model((*models.RoomDeadline)(nil)).
		Where("room = ?", name).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete deadline: %w", err)
	}
	return nil
}

func (s *DeadlineStore) Due(ctx context.Context, now time.Time, limit int) (rooms []string, err error) {
	q := s.db.NewSelect().
		Model((*models.RoomDeadline)(nil)).
		Column("room").
		Where("expires_at <= ?", now.UnixMilli()).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err = q.Scan(ctx, &rooms); err != nil {
		err = fmt.Errorf("select due deadlines: %w", err)
	}
	return
}
