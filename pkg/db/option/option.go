// Package option holds reusable gorm query modifiers.
package option

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/heraerp/hera/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

// QueryOption mutates a gorm statement.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type QueryOptionFunc func(*gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// ApplyPagination limits the statement to one page plus a look-ahead row and
// resumes after the cursor in page.PageToken. Rows are ordered by id, which is
// time-ordered for snowflake ids. Services run NormalizePage first, so a token
// that does not decode never reaches here.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := NormalizePageSize(page.PageSize)
		if after, err := CursorID(page.PageToken); err == nil && after != 0 {
			db = db.Where("id < ?", after)
		}
		return db.Order("id desc").Limit(size + 1)
	})
}

// NormalizePage clamps size and checks token. The returned page size is the
// one the look-ahead row is counted against.
func NormalizePage(token string, size int32) (pagination.Pagination, error) {
	token = strings.TrimSpace(token)
	if _, err := CursorID(token); err != nil {
		return pagination.Pagination{}, err
	}
	return pagination.Pagination{
		PageToken: token,
		PageSize:  NormalizePageSize(int(size)),
	}, nil
}

// CursorID returns the id a page token resumes after. An empty token yields 0.
func CursorID(token string) (snowflake.ID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return 0, err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(cursor.ID))
	if err != nil || id <= 0 {
		return 0, pagination.ErrInvalidPageToken
	}
	return id, nil
}

// NormalizePageSize clamps size into [1, MaxPageSize], defaulting when unset.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
