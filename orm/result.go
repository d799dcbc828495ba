package orm

import (
	"database/sql"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
)

// Result 包装了执行的错误，出错的时候 LastInsertId 和 RowsAffected 都返回这个错误
type Result struct {
	err error
	res sql.Result
}

// LastInsertId Postgres 的驱动不支持，需要用 RETURNING
func (r Result) LastInsertId() (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.res == nil {
		return 0, errs.ErrNoResult
	}
	return r.res.LastInsertId()
}

func (r Result) RowsAffected() (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.res == nil {
		return 0, errs.ErrNoResult
	}
	return r.res.RowsAffected()
}

func (r Result) Err() error {
	return r.err
}

// resultOf 中间件可能篡改 Result，类型不对的时候当作没有结果
func resultOf(qr *QueryResult) Result {
	res, _ := qr.Result.(sql.Result)
	return Result{err: qr.Err, res: res}
}
