package core

import (
	"context"
	"strings"
)

// Transactor runs fn inside a database transaction.
// Repositories called with the ctx handed to fn take part in the transaction;
// it is committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// AllowedOrderings drops the orderings on fields missing from allowed (json name -> column).
func AllowedOrderings(orderings []DBOrdering, allowed map[string]string) []DBOrdering {
	res := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := allowed[strings.ToLower(ord.Field)]; ok {
			res = append(res, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return res
}
