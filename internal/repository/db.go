package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when a write hits a unique index.
var ErrDuplicate = errors.New("duplicate key")

const uniqueViolation = "23505"

// dbProvider hands out the shared connection; *database.Handle satisfies it.
type dbProvider interface {
	DB(ctx context.Context) (*sqlx.DB, error)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching q literally.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
