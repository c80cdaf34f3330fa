package spin

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryClaim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "postgres"))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	policy := Policy{MaxSpins: 1, Window: 24 * time.Hour}
	userID := uuid.New()

	mock.ExpectBegin()
	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)

	mock.ExpectQuery(`AND \$4 > 0\s+`+regexp.QuoteMeta(`AND (spin_window_start IS NULL OR spin_window_start <= $3 OR spins_today < $4)`)).
		WithArgs(sqlmock.AnyArg(), now, now.Add(-24*time.Hour), 1).
		WillReturnRows(sqlmock.NewRows([]string{"spins_today", "spin_window_start"}).AddRow(1, now))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE wallets`)).
		WillReturnRows(sqlmock.NewRows([]string{"spins_today", "spin_window_start"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT spins_today, spin_window_start FROM wallets`)).
		WillReturnRows(sqlmock.NewRows([]string{"spins_today", "spin_window_start"}).AddRow(1, now))
	mock.ExpectRollback()

	claim, err := repo.Claim(context.Background(), tx, userID, now, policy)
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, 1, claim.SpinsToday)
	assert.Equal(t, now, claim.WindowStart)

	limited, err := repo.Claim(context.Background(), tx, userID, now, policy)
	require.NoError(t, err)
	assert.Nil(t, limited)

	state, err := repo.Window(context.Background(), tx, userID)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, now, state.WindowStart)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
