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

// Package session defines Session, the opaque remote point/time-series
// store collaborator: select, update, getPointBindings, disconnect.
// The wire-level remote store RPC stays behind it. Nothing in this
// package talks to a network; sql/paging and sql/driver depend only on
// this interface, and sql/session/memstore is the one concrete,
// in-pack implementation used by tests.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	liberr "github.com/sabouaram/valve/errors"
)

// SyncSpec carries the syncPred modifiers (CRONTAB/ELAPSED/STAMPS/
// TIME_LIMIT) a query may request.
type SyncSpec struct {
	Crontab   string
	Elapsed   string
	Stamps    string
	TimeLimit string
}

// StoreQuery is the upstream query built from a parsed Request: a
// point UUID, time bounds mapped onto at/notBefore/
// after/notAfter/before, and the pull/sync/interpolation/limit
// modifiers.
type StoreQuery struct {
	Point uuid.UUID

	At        *time.Time
	NotBefore *time.Time
	After     *time.Time
	NotAfter  *time.Time
	Before    *time.Time

	// AtVersion/NotBeforeVersion/... carry the same five bound shapes
	// for a VERSION predicate. STAMP and VERSION bounds are mutually
	// exclusive, so at most one bound family is ever populated on a
	// given query.
	AtVersion        *int64
	NotBeforeVersion *int64
	AfterVersion     *int64
	NotAfterVersion  *int64
	BeforeVersion    *int64

	Pull         bool
	Synced       bool
	NotNull      bool
	Sync         *SyncSpec
	Interpolated bool
	Extrapolated bool
	PolatorLimit time.Duration
	Limit        int

	// Continuation, when non-nil, is the createQuery() continuation
	// returned by the previous page's StoreResponse; Select uses it
	// in place of the bound fields above to fetch the next page.
	Continuation []byte
}

// PointRow is one ARCHIVE value as returned by the upstream store.
type PointRow struct {
	Stamp        time.Time
	Value        interface{}
	State        int64
	Version      int64
	Interpolated bool
	Extrapolated bool
}

// StoreResponse is one page of a paged Select response: the rows of
// this page, whether more pages remain, and (if not)
// the continuation token for the next Select call.
type StoreResponse struct {
	Rows         []PointRow
	Complete     bool
	Continuation []byte
	Total        int // total rows across this and prior pages, valid for COUNT(*)
}

// PointUpdate is one pending write queued by the SQL Connection
// facade.
type PointUpdate struct {
	Point uuid.UUID
	Stamp time.Time
	Value interface{}
	State int64
	// Delete marks this update as a deletion of the (Point, Stamp) pair
	// rather than an upsert.
	Delete bool
}

// Session is the opaque upstream collaborator: select/update against
// the ARCHIVE table, name<->UUID resolution against POINTS, and an
// explicit disconnect. Implementations must be safe only for
// single-threaded use; callers serialize access themselves.
type Session interface {
	// Select runs one paged query and returns its first/next page.
	Select(ctx context.Context, q *StoreQuery) (*StoreResponse, liberr.Error)

	// Update applies a batch of pending point writes in order. The
	// returned per-index errors (nil entries for successes) become
	// chained warnings on the SQL Connection; the overall liberr.Error
	// return is reserved for a session-level failure (e.g. the
	// connection dropped mid-batch).
	Update(ctx context.Context, updates []PointUpdate) ([]error, liberr.Error)

	// GetPointBindings resolves point names to UUIDs (populating the
	// PointCache on a cache miss) and reports names that do not exist.
	GetPointBindings(ctx context.Context, names []string) (map[string]uuid.UUID, liberr.Error)

	// Disconnect releases the upstream session. Safe to call more than
	// once.
	Disconnect(ctx context.Context) liberr.Error
}
