package summary

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdrop/pkg/errors"
)

type mockDB struct {
	db *sql.DB
}

func (m *mockDB) Query(ctx context.Context, query string) (*sql.Rows, error) {
	return m.db.QueryContext(ctx, query)
}

func (m *mockDB) QueryRow(ctx context.Context, query string, dest ...interface{}) error {
	return m.db.QueryRowContext(ctx, query).Scan(dest...)
}

func newMock(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(&mockDB{db: db}), mock
}

func TestDistributionSQL(t *testing.T) {
	query, err := DistributionSQL("P2P_COMMUNITIES", 0)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT community, COUNT(*) AS community_size FROM P2P_COMMUNITIES GROUP BY community ORDER BY community_size DESC, community ASC",
		query)

	query, err = DistributionSQL("P2P_COMMUNITIES", 10)
	require.NoError(t, err)
	assert.Contains(t, query, "LIMIT 10")
}

func TestDistributionSQLRejectsBadIdentifier(t *testing.T) {
	_, err := DistributionSQL("T; DROP TABLE X", 0)
	require.Error(t, err)
}

func TestDistribution(t *testing.T) {
	svc, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"COMMUNITY", "COMMUNITY_SIZE"}).
		AddRow(7, 120).
		AddRow(3, 45).
		AddRow(9, 45)
	mock.ExpectQuery("SELECT community, COUNT").WillReturnRows(rows)

	stats, err := svc.Distribution(context.Background(), "P2P_COMMUNITIES", 0)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, CommunityStat{Community: 7, Size: 120}, stats[0])
	assert.Equal(t, CommunityStat{Community: 3, Size: 45}, stats[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributionEmptyTable(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery("SELECT community, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"COMMUNITY", "COMMUNITY_SIZE"}))

	_, err := svc.Distribution(context.Background(), "P2P_COMMUNITIES", 0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNoResults, errors.GetErrorCode(err))
}

func TestMemberCount(t *testing.T) {
	svc, mock := newMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM P2P_COMMUNITIES`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT"}).AddRow(210))

	count, err := svc.MemberCount(context.Background(), "P2P_COMMUNITIES")
	require.NoError(t, err)
	assert.Equal(t, int64(210), count)
}

func TestRenderString(t *testing.T) {
	out := RenderString([]CommunityStat{
		{Community: 7, Size: 120},
		{Community: 3, Size: 45},
	})

	assert.Contains(t, out, "COMMUNITY")
	assert.Contains(t, out, "120")
	assert.Contains(t, out, "72.7%")
	assert.Contains(t, out, "2 communities, 165 members")
}

func TestRenderSharesUseGraphTotal(t *testing.T) {
	// A limited listing must compute shares against the whole graph, not
	// the displayed subset.
	var buf strings.Builder
	Render(&buf, []CommunityStat{
		{Community: 7, Size: 120},
		{Community: 3, Size: 45},
	}, 330, false)
	out := buf.String()

	assert.Contains(t, out, "36.4%")
	assert.NotContains(t, out, "72.7%")
	assert.Contains(t, out, "2 communities shown, covering 165 of 330 members")
}
