package orm

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInserter_Build(t *testing.T) {
	db := memoryDB(t)

	testCases := []struct {
		name      string
		q         QueryBuilder
		wantQuery *Query
		wantErr   error
	}{
		{
			// 不提供数据
			name:    "no value",
			q:       NewInserter[TestModel](db).Values(),
			wantErr: errs.ErrInsertZeroRow,
		},
		{
			name: "single values",
			q: NewInserter[TestModel](db).Values(
				&TestModel{
					Id:        1,
					FirstName: "Zheng",
					Age:       18,
					LastName:  &sql.NullString{String: "Tianyi", Valid: true},
				}),
			wantQuery: &Query{
				SQL:  "INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?);",
				Args: []any{int64(1), "Zheng", int8(18), &sql.NullString{String: "Tianyi", Valid: true}},
			},
		},
		{
			name: "multiple values",
			q: NewInserter[TestModel](db).Values(
				&TestModel{Id: 1, FirstName: "Zheng", Age: 18},
				&TestModel{Id: 2, FirstName: "Tom", Age: 16}),
			wantQuery: &Query{
				SQL: "INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?),(?,?,?,?);",
				Args: []any{int64(1), "Zheng", int8(18), (*sql.NullString)(nil),
					int64(2), "Tom", int8(16), (*sql.NullString)(nil)},
			},
		},
		{
			// 指定列
			name: "specify columns",
			q: NewInserter[TestModel](db).Columns("FirstName", "last_name").Values(
				&TestModel{
					Id:        1,
					FirstName: "Zheng",
					Age:       18,
					LastName:  &sql.NullString{String: "Tianyi", Valid: true},
				}),
			wantQuery: &Query{
				SQL:  "INSERT INTO `test_model` (`first_name`,`last_name`) VALUES (?,?);",
				Args: []any{"Zheng", &sql.NullString{String: "Tianyi", Valid: true}},
			},
		},
		{
			name:    "invalid columns",
			q:       NewInserter[TestModel](db).Columns("FirstName", "Invalid").Values(&TestModel{}),
			wantErr: errs.NewErrUnknownField("Invalid"),
		},
		{
			name: "upsert",
			q: NewInserter[TestModel](db).Values(&TestModel{Id: 1, FirstName: "Zheng", Age: 18}).
				OnDuplicateKey().Update(Assign("FirstName", "Z")),
			wantQuery: &Query{
				SQL:  "INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?) ON DUPLICATE KEY UPDATE `first_name`=?;",
				Args: []any{int64(1), "Zheng", int8(18), (*sql.NullString)(nil), "Z"},
			},
		},
		{
			name: "upsert invalid column",
			q: NewInserter[TestModel](db).Values(&TestModel{Id: 1}).
				OnDuplicateKey().Update(Assign("Invalid", "zheng")),
			wantErr: errs.NewErrUnknownField("Invalid"),
		},
		{
			name: "upsert use insert value",
			q: NewInserter[TestModel](db).Values(&TestModel{Id: 1, FirstName: "Zheng", Age: 18}).
				OnDuplicateKey().Update(C("FirstName"), C("LastName"), Assign("Age", C("Age").Add(1))),
			wantQuery: &Query{
				SQL:  "INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?) ON DUPLICATE KEY UPDATE `first_name`=VALUES(`first_name`),`last_name`=VALUES(`last_name`),`age`=`age` + ?;",
				Args: []any{int64(1), "Zheng", int8(18), (*sql.NullString)(nil), 1},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			query, err := tc.q.Build()
			assert.Equal(t, tc.wantErr, err)
			if err != nil {
				return
			}
			assert.Equal(t, tc.wantQuery, query)
		})
	}
}

func TestUpsert_OnConflict_Build(t *testing.T) {
	testCases := []struct {
		name      string
		dialect   Dialect
		q         func(db *DB) QueryBuilder
		wantQuery *Query
		wantErr   error
	}{
		{
			name:    "sqlite3 upsert",
			dialect: SQLite3,
			q: func(db *DB) QueryBuilder {
				return NewInserter[TestModel](db).Values(&TestModel{Id: 1, FirstName: "Zheng", Age: 18}).
					OnDuplicateKey().ConflictColumns("Id").Update(Assign("FirstName", "zheng"))
			},
			wantQuery: &Query{
				SQL:  "INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?) ON CONFLICT(`id`) DO UPDATE SET `first_name`=?;",
				Args: []any{int64(1), "Zheng", int8(18), (*sql.NullString)(nil), "zheng"},
			},
		},
		{
			name:    "sqlite3 conflict invalid column",
			dialect: SQLite3,
			q: func(db *DB) QueryBuilder {
				return NewInserter[TestModel](db).Values(&TestModel{Id: 1}).
					OnDuplicateKey().ConflictColumns("Invalid").Update(Assign("FirstName", "zheng"))
			},
			wantErr: errs.NewErrUnknownField("Invalid"),
		},
		{
			name:    "sqlite3 use insert value",
			dialect: SQLite3,
			q: func(db *DB) QueryBuilder {
				return NewInserter[TestModel](db).Values(&TestModel{Id: 1, FirstName: "Zheng", Age: 18}).
					OnDuplicateKey().ConflictColumns("Id").Update(C("FirstName"), C("LastName"))
			},
			wantQuery: &Query{
				SQL:  "INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?) ON CONFLICT(`id`) DO UPDATE SET `first_name`=excluded.`first_name`,`last_name`=excluded.`last_name`;",
				Args: []any{int64(1), "Zheng", int8(18), (*sql.NullString)(nil)},
			},
		},
		{
			name:    "postgres upsert",
			dialect: Postgres,
			q: func(db *DB) QueryBuilder {
				return NewInserter[TestModel](db).Values(&TestModel{Id: 1, FirstName: "Zheng", Age: 18}).
					OnDuplicateKey().ConflictColumns("Id").Update(C("FirstName"), Assign("Age", 20))
			},
			wantQuery: &Query{
				SQL:  `INSERT INTO "test_model" ("id","first_name","age","last_name") VALUES ($1,$2,$3,$4) ON CONFLICT("id") DO UPDATE SET "first_name"=excluded."first_name","age"=$5;`,
				Args: []any{int64(1), "Zheng", int8(18), (*sql.NullString)(nil), 20},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := memoryDB(t, DBWithDialect(tc.dialect))
			query, err := tc.q(db).Build()
			assert.Equal(t, tc.wantErr, err)
			if err != nil {
				return
			}
			assert.Equal(t, tc.wantQuery, query)
		})
	}
}

func TestInserter_Exec(t *testing.T) {
	testCases := []struct {
		name         string
		mock         func(mock sqlmock.Sqlmock)
		wantErr      error
		wantAffected int64
	}{
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?);").
					WillReturnError(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
		{
			name: "exec",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?);").
					WillReturnResult(sqlmock.NewResult(12, 1))
			},
			wantAffected: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := mockDB(t)
			tc.mock(mock)
			res := NewInserter[TestModel](db).Values(&TestModel{Id: 12, FirstName: "Tom"}).Exec(context.Background())
			assert.Equal(t, tc.wantErr, res.Err())
			if res.Err() != nil {
				return
			}
			affected, err := res.RowsAffected()
			require.NoError(t, err)
			assert.Equal(t, tc.wantAffected, affected)
			id, err := res.LastInsertId()
			require.NoError(t, err)
			assert.Equal(t, int64(12), id)
		})
	}
}
