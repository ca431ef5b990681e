package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/STTM-NSU/tradier-dashboard/internal/postgres"
)

// Runs only against a real database: POSTGRES_HOST must be set.
func TestPostgresRoundTrip(t *testing.T) {
	if os.Getenv("POSTGRES_HOST") == "" {
		t.Skip("POSTGRES_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.NewDB(ctx, postgres.NewConfigFromEnv().Setup())
	require.NoError(t, err)
	defer db.Close()

	p := NewPostgres(db)
	require.NoError(t, p.Migrate(ctx))

	tag := "test-" + time.Now().Format("150405.000000")
	require.NoError(t, p.Record(ctx, Entry{
		Action: ActionPlace, Account: "VA000001", Symbol: "SPY", Side: "buy", Qty: 1, Tag: tag,
	}))

	got, err := p.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tag, got[0].Tag)
	assert.Equal(t, ActionPlace, got[0].Action)
	assert.NotZero(t, got[0].ID)
}
