package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LovationAdmin/giftlist-api/services"

	"github.com/lib/pq"
)

// Postgres implements the repository interfaces on top of lib/pq.
type Postgres struct {
	db *sql.DB
}

var (
	_ services.ItemRepository         = (*Postgres)(nil)
	_ services.ClaimRepository        = (*Postgres)(nil)
	_ services.GroupRepository        = (*Postgres)(nil)
	_ services.NotificationRepository = (*Postgres)(nil)
	_ services.UserRepository         = (*Postgres)(nil)
)

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// DB exposes the pool for maintenance tasks.
func (p *Postgres) DB() *sql.DB {
	return p.db
}

const (
	pqUniqueViolation  = "23505"
	pqInvalidTextInput = "22P02"
)

// mapWriteError turns unique violations into services.ErrConflict.
func mapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%s: %w", op, services.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isNoRow reports whether a single-row lookup found nothing. A malformed
// uuid can never match a row.
func isNoRow(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextInput {
		return true
	}
	return errors.Is(err, sql.ErrNoRows)
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
