/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package memstore is a reference session.Session backed by an
// in-memory SQLite database opened through the shared gorm wrapper. It
// exists for tests and local experimentation against the SQL driver
// core; production deployments talk to the real remote store instead.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	libgorm "github.com/sabouaram/valve/database/gorm"
	liberr "github.com/sabouaram/valve/errors"
	"github.com/sabouaram/valve/errs"
	"github.com/sabouaram/valve/sql/session"
)

type pointRow struct {
	UUID string `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex"`
}

func (pointRow) TableName() string { return "points" }

type archiveRow struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	PointUUID string    `gorm:"index:idx_point_stamp"`
	Stamp     time.Time `gorm:"index:idx_point_stamp"`
	Value     string
	State     int64
	Version   int64
}

func (archiveRow) TableName() string { return "archive" }

// defaultPageSize bounds a page when a statement carried no explicit
// LIMIT, mirroring the upstream's own bounded-page behavior.
const defaultPageSize = 500

// Store is the in-memory session.Session implementation.
type Store struct {
	db          libgorm.Database
	mu          sync.Mutex
	nextVersion int64
}

// New opens a fresh shared in-memory SQLite database and migrates the
// points/archive schema.
func New() (*Store, liberr.Error) {
	cfg := &libgorm.Config{
		Driver: libgorm.DriverSQLite,
		DSN:    "file::memory:?cache=shared",
		Name:   "valve-sql-memstore",
	}
	db, err := libgorm.New(cfg)
	if err != nil {
		return nil, err
	}
	if merr := db.GetDB().AutoMigrate(&pointRow{}, &archiveRow{}); merr != nil {
		return nil, errs.SQLConnectFailed.Errorf(merr.Error())
	}
	return &Store{db: db}, nil
}

// RegisterPoint seeds a point binding, as a real upstream's POINTS
// table would already hold one.
func (s *Store) RegisterPoint(ctx context.Context, id uuid.UUID, name string) liberr.Error {
	rec := pointRow{UUID: id.String(), Name: name}
	if err := s.db.GetDB().WithContext(ctx).Save(&rec).Error; err != nil {
		return errs.SQLSessionException.Errorf(err.Error())
	}
	return nil
}

// GetPointBindings resolves point names to UUIDs against the points
// table.
func (s *Store) GetPointBindings(ctx context.Context, names []string) (map[string]uuid.UUID, liberr.Error) {
	var recs []pointRow
	if err := s.db.GetDB().WithContext(ctx).Where("name IN ?", names).Find(&recs).Error; err != nil {
		return nil, errs.SQLSessionException.Errorf(err.Error())
	}
	out := make(map[string]uuid.UUID, len(recs))
	for _, r := range recs {
		id, perr := uuid.Parse(r.UUID)
		if perr != nil {
			continue
		}
		out[r.Name] = id
	}
	return out, nil
}

// Select runs one paged query against the archive table.
func (s *Store) Select(ctx context.Context, q *session.StoreQuery) (*session.StoreResponse, liberr.Error) {
	tx := s.db.GetDB().WithContext(ctx).Model(&archiveRow{}).Where("point_uuid = ?", q.Point.String())

	if q.At != nil {
		tx = tx.Where("stamp = ?", *q.At)
	}
	if q.NotBefore != nil {
		tx = tx.Where("stamp >= ?", *q.NotBefore)
	}
	if q.After != nil {
		tx = tx.Where("stamp > ?", *q.After)
	}
	if q.NotAfter != nil {
		tx = tx.Where("stamp <= ?", *q.NotAfter)
	}
	if q.Before != nil {
		tx = tx.Where("stamp < ?", *q.Before)
	}
	if q.AtVersion != nil {
		tx = tx.Where("version = ?", *q.AtVersion)
	}
	if q.NotBeforeVersion != nil {
		tx = tx.Where("version >= ?", *q.NotBeforeVersion)
	}
	if q.AfterVersion != nil {
		tx = tx.Where("version > ?", *q.AfterVersion)
	}
	if q.NotAfterVersion != nil {
		tx = tx.Where("version <= ?", *q.NotAfterVersion)
	}
	if q.BeforeVersion != nil {
		tx = tx.Where("version < ?", *q.BeforeVersion)
	}
	if q.NotNull {
		tx = tx.Where("value IS NOT NULL")
	}

	order := "stamp ASC"
	if q.Pull {
		order = "version ASC"
	}
	tx = tx.Order(order)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset := decodeOffset(q.Continuation)

	var recs []archiveRow
	if err := tx.Offset(offset).Limit(limit + 1).Find(&recs).Error; err != nil {
		return nil, errs.SQLSessionException.Errorf(err.Error())
	}

	complete := len(recs) <= limit
	if !complete {
		recs = recs[:limit]
	}

	rows := make([]session.PointRow, len(recs))
	for i, r := range recs {
		rows[i] = session.PointRow{Stamp: r.Stamp, Value: r.Value, State: r.State, Version: r.Version}
	}

	resp := &session.StoreResponse{Rows: rows, Complete: complete, Total: offset + len(rows)}
	if !complete {
		resp.Continuation = encodeOffset(offset + limit)
	}
	return resp, nil
}

// Update applies a batch of pending writes as upserts/deletes, each
// write bumping a store-wide monotonic version counter.
func (s *Store) Update(ctx context.Context, updates []session.PointUpdate) ([]error, liberr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]error, len(updates))
	for i, u := range updates {
		if u.Delete {
			if err := s.db.GetDB().WithContext(ctx).
				Where("point_uuid = ? AND stamp = ?", u.Point.String(), u.Stamp).
				Delete(&archiveRow{}).Error; err != nil {
				out[i] = err
			}
			continue
		}

		s.nextVersion++
		rec := archiveRow{PointUUID: u.Point.String(), Stamp: u.Stamp}
		if err := s.db.GetDB().WithContext(ctx).
			Where("point_uuid = ? AND stamp = ?", rec.PointUUID, rec.Stamp).
			Assign(archiveRow{Value: fmt.Sprint(u.Value), State: u.State, Version: s.nextVersion}).
			FirstOrCreate(&rec).Error; err != nil {
			out[i] = err
		}
	}
	return out, nil
}

// Disconnect closes the underlying database.
func (s *Store) Disconnect(ctx context.Context) liberr.Error {
	s.db.Close()
	return nil
}

// encodeOffset/decodeOffset implement the createQuery() continuation
// token as a decimal row offset. A real upstream's continuation is
// opaque; nothing outside this package inspects these bytes.
func encodeOffset(n int) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func decodeOffset(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	var n int
	fmt.Sscanf(string(b), "%d", &n)
	return n
}
