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

func TestSelector_Build(t *testing.T) {
	db := memoryDB(t)
	type testCase struct {
		name    string
		q       QueryBuilder
		want    *Query
		wantErr error
	}
	tests := []testCase{
		{
			name: "no from",
			q:    NewSelector[TestModel](db),
			want: &Query{
				SQL: "SELECT * FROM `test_model`;",
			},
		},
		{
			name: "with from",
			q:    NewSelector[TestModel](db).From("`test_model`"),
			want: &Query{
				SQL: "SELECT * FROM `test_model`;",
			},
		},
		{
			name: "empty from",
			q:    NewSelector[TestModel](db).From(""),
			want: &Query{
				SQL: "SELECT * FROM `test_model`;",
			},
		},
		{
			name: "with db",
			q:    NewSelector[TestModel](db).From("`test_db`.`test_model`"),
			want: &Query{
				SQL: "SELECT * FROM `test_db`.`test_model`;",
			},
		},
		{
			name: "single and simple predicate",
			q:    NewSelector[TestModel](db).From("`test_model`").Where(C("Id").EQ(1)),
			want: &Query{
				SQL:  "SELECT * FROM `test_model` WHERE `id` = ?;",
				Args: []any{1},
			},
		},
		{
			name: "multiple predicates",
			q:    NewSelector[TestModel](db).Where(C("Age").GT(11), C("Age").LT(13)),
			want: &Query{
				SQL:  "SELECT * FROM `test_model` WHERE (`age` > ?) AND (`age` < ?);",
				Args: []any{11, 13},
			},
		},
		{
			// 使用 OR
			name: "or",
			q: NewSelector[TestModel](db).
				Where(C("Age").GT(18).Or(C("Age").LT(35))),
			want: &Query{
				SQL:  "SELECT * FROM `test_model` WHERE (`age` > ?) OR (`age` < ?);",
				Args: []any{18, 35},
			},
		},
		{
			// 使用 NOT
			name: "not",
			q:    NewSelector[TestModel](db).Where(Not(C("Age").GT(18))),
			want: &Query{
				SQL:  "SELECT * FROM `test_model` WHERE NOT (`age` > ?);",
				Args: []any{18},
			},
		},
		{
			name: "column name",
			q:    NewSelector[TestModel](db).Where(C("first_name").EQ("Tom")),
			want: &Query{
				SQL:  "SELECT * FROM `test_model` WHERE `first_name` = ?;",
				Args: []any{"Tom"},
			},
		},
		{
			name:    "invalid column",
			q:       NewSelector[TestModel](db).Where(C("Invalid").EQ(1)),
			wantErr: errs.NewErrUnknownField("Invalid"),
		},
		{
			name: "columns",
			q:    NewSelector[TestModel](db).Select(C("Id"), C("FirstName").As("name"), Count("Age").As("cnt")),
			want: &Query{
				SQL: "SELECT `id`,`first_name` AS `name`,COUNT(`age`) AS `cnt` FROM `test_model`;",
			},
		},
		{
			name: "raw",
			q:    NewSelector[TestModel](db).Select(Raw("COUNT(DISTINCT `first_name`)")).Where(Raw("`age` < ?", 18).AsPredicate()),
			want: &Query{
				SQL:  "SELECT COUNT(DISTINCT `first_name`) FROM `test_model` WHERE `age` < ?;",
				Args: []any{18},
			},
		},
		{
			name: "raw alias",
			q:    NewSelector[TestModel](db).Select(C("Id"), Raw("`age` + ?", 1).As("next_age")),
			want: &Query{
				SQL:  "SELECT `id`,`age` + ? AS `next_age` FROM `test_model`;",
				Args: []any{1},
			},
		},
		{
			name: "in",
			q:    NewSelector[TestModel](db).Where(C("Id").In(1, 2, 3)),
			want: &Query{
				SQL:  "SELECT * FROM `test_model` WHERE `id` IN (?,?,?);",
				Args: []any{1, 2, 3},
			},
		},
		{
			name: "empty in",
			q:    NewSelector[TestModel](db).Where(C("Id").In()),
			want: &Query{
				SQL: "SELECT * FROM `test_model` WHERE `id` IN (NULL);",
			},
		},
		{
			name: "is null",
			q:    NewSelector[TestModel](db).Where(C("LastName").IsNull()),
			want: &Query{
				SQL: "SELECT * FROM `test_model` WHERE `last_name` IS NULL;",
			},
		},
		{
			name: "group by having",
			q: NewSelector[TestModel](db).Select(C("Age"), Count("Id").As("cnt")).
				GroupBy(C("Age")).Having(Count("Id").GT(2)),
			want: &Query{
				SQL:  "SELECT `age`,COUNT(`id`) AS `cnt` FROM `test_model` GROUP BY `age` HAVING COUNT(`id`) > ?;",
				Args: []any{2},
			},
		},
		{
			name: "order by limit offset",
			q:    NewSelector[TestModel](db).OrderBy(Asc("Age"), Desc("Id")).Limit(10).Offset(20),
			want: &Query{
				SQL:  "SELECT * FROM `test_model` ORDER BY `age` ASC,`id` DESC LIMIT ? OFFSET ?;",
				Args: []any{10, 20},
			},
		},
		{
			name: "offset only",
			q:    NewSelector[TestModel](db).Offset(20),
			want: &Query{
				SQL:  "SELECT * FROM `test_model` LIMIT 18446744073709551615 OFFSET ?;",
				Args: []any{20},
			},
		},
		{
			name: "alias",
			q:    NewSelector[TestModel](db).Alias("t").Where(C("Id").EQ(1)),
			want: &Query{
				SQL:  "SELECT * FROM `test_model` AS `t` WHERE `t`.`id` = ?;",
				Args: []any{1},
			},
		},
		{
			name: "join",
			q: NewSelector[TestModel](db).Alias("t1").
				Join("INNER", &TestModel{}, "t2", C("t1.Id").EQ(C("t2.Age"))).
				Select(C("t1.FirstName"), C("t2.LastName")),
			want: &Query{
				SQL: "SELECT `t1`.`first_name`,`t2`.`last_name` FROM `test_model` AS `t1` INNER JOIN `test_model` AS `t2` ON `t1`.`id` = `t2`.`age`;",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := tt.q.Build()
			assert.Equal(t, tt.wantErr, err)
			if err != nil {
				return
			}
			assert.Equal(t, tt.want, query)
		})
	}
}

func TestSelector_Get(t *testing.T) {
	testCases := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantVal *TestModel
		wantErr error
	}{
		{
			name: "query error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT * FROM `test_model` WHERE `id` = ? LIMIT ?;").
					WithArgs(1, 1).WillReturnError(errors.New("query error"))
			},
			wantErr: errors.New("query error"),
		},
		{
			name: "no rows",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT * FROM `test_model` WHERE `id` = ? LIMIT ?;").
					WithArgs(1, 1).WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantErr: ErrNoRows,
		},
		{
			name: "unknown column",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT * FROM `test_model` WHERE `id` = ? LIMIT ?;").
					WithArgs(1, 1).WillReturnRows(sqlmock.NewRows([]string{"nickname"}).AddRow("Tom"))
			},
			wantErr: errs.NewErrUnknownColumn("nickname"),
		},
		{
			name: "get data",
			mock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "first_name", "age", "last_name"}).
					AddRow([]byte("1"), []byte("Da"), []byte("18"), []byte("Ming"))
				mock.ExpectQuery("SELECT * FROM `test_model` WHERE `id` = ? LIMIT ?;").
					WithArgs(1, 1).WillReturnRows(rows)
			},
			wantVal: &TestModel{
				Id:        1,
				FirstName: "Da",
				Age:       18,
				LastName:  &sql.NullString{String: "Ming", Valid: true},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := mockDB(t)
			tc.mock(mock)
			res, err := NewSelector[TestModel](db).Where(C("Id").EQ(1)).Get(context.Background())
			assert.Equal(t, tc.wantErr, err)
			if err != nil {
				return
			}
			assert.Equal(t, tc.wantVal, res)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSelector_GetMulti(t *testing.T) {
	db, mock := mockDB(t, DBUseReflectValuer())
	rows := sqlmock.NewRows([]string{"id", "first_name", "age", "last_name"}).
		AddRow(int64(1), "Da", int64(18), nil).
		AddRow(int64(2), "Xiao", int64(16), "Ming")
	mock.ExpectQuery("SELECT * FROM `test_model` WHERE `age` > ?;").WithArgs(10).WillReturnRows(rows)

	res, err := NewSelector[TestModel](db).Where(C("Age").GT(10)).GetMulti(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []*TestModel{
		{Id: 1, FirstName: "Da", Age: 18},
		{Id: 2, FirstName: "Xiao", Age: 16, LastName: &sql.NullString{String: "Ming", Valid: true}},
	}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelector_Rows(t *testing.T) {
	db, mock := mockDB(t)
	rows := sqlmock.NewRows([]string{"age", "cnt"}).AddRow(int64(18), int64(3))
	mock.ExpectQuery("SELECT `age`,COUNT(`id`) AS `cnt` FROM `test_model` GROUP BY `age`;").WillReturnRows(rows)

	res, err := NewSelector[TestModel](db).Select(C("Age"), Count("Id").As("cnt")).
		GroupBy(C("Age")).
		Decorate(func(row Row) (Row, error) {
			row["double"] = row["cnt"].(int64) * 2
			return row, nil
		}).
		Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Row{{"age": int64(18), "cnt": int64(3), "double": int64(6)}}, res)
}

func TestSelector_Middleware(t *testing.T) {
	var types []string
	mdl := func(next Handler) Handler {
		return func(ctx context.Context, qc *QueryContext) *QueryResult {
			types = append(types, qc.Type+":"+qc.Model.TableName)
			return next(ctx, qc)
		}
	}
	db, mock := mockDB(t, DBWithMiddlewares(mdl))
	mock.ExpectQuery("SELECT * FROM `test_model`;").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err := NewSelector[TestModel](db).GetMulti(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT:test_model"}, types)
}
