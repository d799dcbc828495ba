package prometheus

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cakephp/cakephp-sub067/orm"
)

type Article struct {
	Id    int64
	Title string
}

func TestMiddlewareBuilder_Build(t *testing.T) {
	reg := prometheus.NewRegistry()
	builder := MiddlewareBuilder{
		Namespace:  "cake",
		Subsystem:  "orm",
		Name:       "query_duration",
		Help:       "query duration in milliseconds",
		Registerer: reg,
	}
	mdb, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := orm.OpenDB(mdb, orm.DBWithMiddlewares(builder.Build()))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT .*").WillReturnRows(sqlmock.NewRows([]string{"id", "title"}).AddRow(1, "Go"))
	mock.ExpectExec("DELETE .*").WillReturnError(assert.AnError)

	ctx := context.Background()
	_, err = orm.NewSelector[Article](db).Get(ctx)
	require.NoError(t, err)
	err = orm.NewDeleter[Article](db).Exec(ctx).Err()
	assert.Equal(t, assert.AnError, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 1)
	assert.Equal(t, "cake_orm_query_duration", mfs[0].GetName())

	got := map[string]uint64{}
	for _, metric := range mfs[0].GetMetric() {
		labels := map[string]string{}
		for _, l := range metric.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		got[labels["type"]+" "+labels["table"]+" "+labels["status"]] = metric.GetSummary().GetSampleCount()
	}
	assert.Equal(t, map[string]uint64{
		"SELECT article ok":    1,
		"DELETE article error": 1,
	}, got)
}
