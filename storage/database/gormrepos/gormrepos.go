// Package gormrepos implements the core repositories with gorm.
package gormrepos

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/lanes-app/lanes/core"
)

const duplicateKeyErrorCode = "23505"

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == duplicateKeyErrorCode
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// trapNotFound maps gorm "record not found" to notFound.
func trapNotFound(err error, notFound error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// scanOne scans the first row of q into dest, or returns notFound.
func scanOne(q *gorm.DB, dest interface{}, notFound error, msg string) error {
	res := q.Limit(1).Scan(dest)
	if res.Error != nil {
		return errors.Wrap(res.Error, msg)
	}
	if res.RowsAffected == 0 {
		return notFound
	}
	return nil
}

// likePattern returns a case-insensitive LIKE pattern, to compare with LOWER(column).
func likePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}

func order(q *gorm.DB, ordering []core.DBOrdering, fallback string) *gorm.DB {
	if len(ordering) == 0 {
		return q.Order(fallback)
	}
	for _, ord := range ordering {
		q = q.Order(ord.String())
	}
	return q
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// likeExpr matches column against a likePattern.
func likeExpr(column string) string {
	return "LOWER(" + column + `) LIKE ? ESCAPE '\'`
}
