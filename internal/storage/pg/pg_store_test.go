package pg

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/storagetest"
	pkgtesting "github.com/DjordjeVuckovic/news-digest/pkg/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCtx  context.Context
	testPool *ConnectionPool
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	testCtx = context.Background()

	pg, err := pkgtesting.NewPGContainer(testCtx, pkgtesting.PGConfig{
		Database: "digest_test_db",
		Username: "test",
		Password: "test",
	})
	if err != nil {
		panic(err)
	}

	testPool, err = NewConnectionPool(testCtx, PoolConfig{ConnStr: pg.ConnString, ConnectRetries: 5})
	if err != nil {
		_ = pg.Terminate()
		panic(err)
	}

	code := m.Run()

	testPool.Close()
	_ = pg.Terminate()
	os.Exit(code)
}

func requirePool(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("postgres container not started in short mode")
	}
}

func truncateTable(t *testing.T) {
	t.Helper()
	_, err := testPool.GetConn().Exec(testCtx, "TRUNCATE TABLE records RESTART IDENTITY")
	if err != nil {
		t.Fatalf("failed to truncate table: %v", err)
	}
}

func TestStore_Conformance(t *testing.T) {
	requirePool(t)

	storagetest.RunConformance(t, func(t *testing.T) storage.RecordStore {
		truncateTable(t)
		return &Store{pool: testPool, db: testPool.GetConn()}
	})
}

func TestStore_NullStateIsTreatedAsPending(t *testing.T) {
	requirePool(t)
	truncateTable(t)
	s := NewStore(testPool)
	now := time.Now().UTC()

	_, err := testPool.GetConn().Exec(testCtx, `
		INSERT INTO records (url, title, source_name, discovered_at, extraction_state)
		VALUES ('https://legacy.example/1', 'Legacy', 'L', $1, NULL)`, now)
	require.NoError(t, err)

	due, err := s.DueForExtraction(testCtx, storage.DueQuery{
		Since:       now.Add(-time.Hour),
		Now:         now,
		MaxAttempts: 2,
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, record.Pending{}, due[0].State)
}

func TestStore_RejectsContentOnNonOkState(t *testing.T) {
	requirePool(t)
	truncateTable(t)

	_, err := testPool.GetConn().Exec(testCtx, `
		INSERT INTO records (url, discovered_at, extraction_state, content_text)
		VALUES ('https://bad.example/1', now(), 'skipped', 'text')`)
	assert.Error(t, err)
}
