package integrity

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"integrity-service/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRenderQuery(t *testing.T) {
	spec := QuerySpec{
		SQL:         "SELECT * FROM ticket_sales WHERE total_amount < 0 {{scope}} ORDER BY id",
		ScopeFilter: "event_id = @scope_id",
	}

	t.Run("全量", func(t *testing.T) {
		for _, scope := range []string{"", "all", "  "} {
			query, args := RenderQuery(spec, scope)
			assert.Equal(t, "SELECT * FROM ticket_sales WHERE total_amount < 0  ORDER BY id", query)
			assert.Nil(t, args)
		}
	})

	t.Run("指定范围", func(t *testing.T) {
		query, args := RenderQuery(spec, "evt-1'; DROP TABLE events; --")
		assert.Equal(t, "SELECT * FROM ticket_sales WHERE total_amount < 0 AND (event_id = @scope_id) ORDER BY id", query)
		require.Len(t, args, 1)
		named, ok := args[0].(sql.NamedArg)
		require.True(t, ok)
		assert.Equal(t, "scope_id", named.Name)
		assert.Equal(t, "evt-1'; DROP TABLE events; --", named.Value)
	})
}

func TestNormalizeScope(t *testing.T) {
	assert.Equal(t, "all", NormalizeScope(""))
	assert.Equal(t, "evt-1", NormalizeScope(" evt-1 "))
	assert.False(t, IsScoped("all"))
	assert.True(t, IsScoped("evt-1"))
}

func TestGormQueryAdapter_Scoped(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	e1 := factory.CreateEvent()
	e2 := factory.CreateEvent()
	bad1 := factory.CreateTicketSale(e1.ID, testutil.WithSaleAmount(1, -5))
	factory.CreateTicketSale(e2.ID, testutil.WithSaleAmount(1, -7))
	factory.CreateTicketSale(e1.ID, testutil.WithSaleAmount(1, 5))

	rule, _ := DefaultCatalog().Get(RuleNegativeAmounts)
	adapter := NewGormQueryAdapter(tdb.DB)

	rows, err := adapter.Query(context.Background(), rule, "all")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = adapter.Query(context.Background(), rule, e1.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, bad1.ID, rows[0]["id"])
}

func TestGormQueryAdapter_QueryError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	rule, _ := DefaultCatalog().Get(RuleNegativeAmounts)
	_, err = NewGormQueryAdapter(db).Query(context.Background(), rule, "evt-1")

	var qerr *QueryExecutionError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, RuleNegativeAmounts, qerr.RuleID)
	assert.False(t, qerr.Timeout)
	assert.Contains(t, qerr.Error(), "connection refused")
}
