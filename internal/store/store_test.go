package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipapi-client/pkg/ipapi"
)

func decode(t *testing.T, s string) ipapi.Result {
	t.Helper()
	r, err := ipapi.DecodeResult([]byte(s))
	require.NoError(t, err)
	return *r
}

func TestSaveResultsSingleTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	recs := []Record{
		{Query: "1.1.1.1", Result: decode(t, `{"status":"success","query":"1.1.1.1","countryCode":"AU","lat":-33.49,"lon":143.21}`)},
		{Query: "bogus", Lang: "es", Result: decode(t, `{"status":"fail","message":"invalid query","query":"bogus"}`)},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO _ipapi_results")
	prep.ExpectExec().
		WithArgs("1.1.1.1", "", "1.1.1.1", "success", "AU", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("bogus", "es", "bogus", "fail", "", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := AttachDB(db).SaveResults(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveResultsRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO _ipapi_results")
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = AttachDB(db).SaveResults(context.Background(), []Record{{Query: "8.8.8.8"}})
	assert.EqualError(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveResultsEmptyIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	n, err := AttachDB(db).SaveResults(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrStatsAndTotals(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := AttachDB(db)

	mock.ExpectExec("UPDATE _ipapi_stats_total").WithArgs(3, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO _ipapi_stats_daily").WithArgs(3, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, st.IncrStats(context.Background(), 3, 1))

	mock.ExpectQuery("SELECT total_queries, total_fail FROM _ipapi_stats_total").
		WillReturnRows(sqlmock.NewRows([]string{"total_queries", "total_fail"}).AddRow(10, 2))
	mock.ExpectQuery("SELECT queries, fail FROM _ipapi_stats_daily").
		WillReturnRows(sqlmock.NewRows([]string{"queries", "fail"}))
	tot, err := st.GetTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Totals{Total: 10, TotalFail: 2}, *tot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrStatsSkipsZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, AttachDB(db).IncrStats(context.Background(), 0, 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveResultUpsertsOneRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO _ipapi_results").
		WithArgs("8.8.8.8", "ja", "8.8.8.8", "success", "US", 37.751, -97.822, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := Record{Query: "8.8.8.8", Lang: "ja", Result: decode(t, `{"status":"success","query":"8.8.8.8","countryCode":"US","lat":37.751,"lon":-97.822}`)}
	require.NoError(t, AttachDB(db).SaveResult(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}
