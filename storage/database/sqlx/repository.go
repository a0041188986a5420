// Package sqlxrepos implements the repositories over any SQL database sqlx supports.
// Queries are written with "?" placeholders and rebound to the driver's bind type.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

func getExec(def core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return def
}

// inTx runs fn within the caller's executor if any, or within a new transaction.
func inTx(ctx context.Context, db core.DB, svcExec []core.DBExecutor, fn func(exec core.DBExecutor) error) error {
	if len(svcExec) > 0 {
		return fn(svcExec[0])
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// query expands the slice args of `IN (?)` clauses and rebinds the placeholders.
func query(exec core.DBExecutor, q string, args ...interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return "", nil, err
	}
	return exec.Rebind(q), args, nil
}

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func rowsAffected(res sql.Result) (int, error) {
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting affected rows")
	}
	return int(cnt), nil
}

// where joins the conditions with AND.
func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
