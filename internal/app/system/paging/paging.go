// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows returned by paged lists.
const PageSize = 50

// MaxPageSize caps the caller-supplied limit.
const MaxPageSize = 200

// Request carries the keyset position of a list call. At most one of
// Before and After is honored; Before wins.
type Request struct {
	Before string
	After  string
	Limit  int
}

// ParseRequest reads "before", "after" and "limit" from the query string.
// A missing or invalid limit becomes PageSize.
func ParseRequest(r *http.Request) Request {
	return Request{
		Before: query.Get(r, "before"),
		After:  query.Get(r, "after"),
		Limit:  parseLimit(query.Get(r, "limit")),
	}
}

func parseLimit(s string) int {
	if s == "" {
		return PageSize
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// size returns the effective page size of req.
func (req Request) size() int {
	if req.Limit < 1 {
		return PageSize
	}
	if req.Limit > MaxPageSize {
		return MaxPageSize
	}
	return req.Limit
}

// Page is one window of a keyset-paged list.
type Page[T any] struct {
	Items   []T    `json:"items"`
	HasPrev bool   `json:"has_prev"`
	HasNext bool   `json:"has_next"`
	Prev    string `json:"prev,omitempty"` // pass as ?before=
	Next    string `json:"next,omitempty"` // pass as ?after=
}

// Direction indicates the pagination direction.
type Direction int

const (
	Forward  Direction = iota // Default: sort ascending, use "gt" for cursor
	Backward                  // Sort descending, use "lt" for cursor
)

// KeysetConfig holds the result of configuring keyset pagination.
type KeysetConfig struct {
	Direction Direction
	SortOrder int // 1 for ascending, -1 for descending
	Cursor    *wafflemongo.Cursor
	Size      int
}

// ConfigureKeyset determines pagination direction and decodes the cursor.
// An undecodable cursor restarts from the first page.
func ConfigureKeyset(req Request) KeysetConfig {
	cfg := KeysetConfig{
		Direction: Forward,
		SortOrder: 1,
		Size:      req.size(),
	}

	if req.Before != "" {
		cfg.Direction = Backward
		cfg.SortOrder = -1
		if c, ok := wafflemongo.DecodeCursor(req.Before); ok {
			cfg.Cursor = &c
		}
	} else if req.After != "" {
		if c, ok := wafflemongo.DecodeCursor(req.After); ok {
			cfg.Cursor = &c
		}
	}

	return cfg
}

// ApplyToFind configures FindOptions with sort and a look-ahead limit of
// Size+1 rows.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string) {
	find.SetSort(bson.D{
		{Key: sortField, Value: cfg.SortOrder},
		{Key: "_id", Value: cfg.SortOrder},
	}).SetLimit(int64(cfg.Size + 1))
}

// KeysetWindow returns the cursor condition for the query filter.
// Returns nil if no cursor is set.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	dir := "gt"
	if cfg.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, cfg.Cursor.CI, cfg.Cursor.ID)
}

// Build turns the Size+1 rows fetched under cfg into a Page in ascending
// order. keyFn and idFn extract the sort key and ObjectID of a row.
//
// When going backwards an extra row means an older page exists, and a
// next page always exists. When going forwards an extra row means a next
// page exists, and a previous page exists only if a cursor was given.
func Build[T any](cfg KeysetConfig, rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) Page[T] {
	var p Page[T]
	extra := len(rows) > cfg.Size
	if extra {
		rows = rows[:cfg.Size]
	}

	if cfg.Direction == Backward {
		Reverse(rows)
		p.HasPrev = extra
		p.HasNext = true
	} else {
		p.HasNext = extra
		p.HasPrev = cfg.Cursor != nil
	}

	if rows == nil {
		rows = []T{}
	}
	p.Items = rows
	if len(rows) > 0 {
		first, last := rows[0], rows[len(rows)-1]
		if p.HasPrev {
			p.Prev = wafflemongo.EncodeCursor(keyFn(first), idFn(first))
		}
		if p.HasNext {
			p.Next = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
		}
	}
	return p
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
