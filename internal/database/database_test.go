package database

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"ideaboard/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEmbeddedMigrations(t *testing.T) {
	ms := Migrations()
	require.NotEmpty(t, ms)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "000001_init_schema", ms[0].String())
	for _, table := range []string{"users", "ideas", "votes", "comments", "flags"} {
		assert.Contains(t, ms[0].Up, "CREATE TABLE IF NOT EXISTS "+table)
		assert.Contains(t, ms[0].Down, "DROP TABLE IF EXISTS "+table)
	}
}

func TestParseMigrations(t *testing.T) {
	ms, err := ParseMigrations(fstest.MapFS{
		"000002_add_index.up.sql":   {Data: []byte("CREATE INDEX x ON t (a);")},
		"000002_add_index.down.sql": {Data: []byte("DROP INDEX x;")},
		"000001_create_t.up.sql":    {Data: []byte("CREATE TABLE t (a INT);")},
		"000001_create_t.down.sql":  {Data: []byte("DROP TABLE t;")},
		"README.md":                 {Data: []byte("ignored")},
	})
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "000001_create_t", ms[0].String())
	assert.Equal(t, "DROP INDEX x;", ms[1].Down)

	bad := map[string]fstest.MapFS{
		"missing down": {"000001_a.up.sql": {Data: []byte("SELECT 1")}},
		"no name":      {"000001.up.sql": {Data: []byte("SELECT 1")}, "000001.down.sql": {}},
		"bad version":  {"abc_a.up.sql": {}, "abc_a.down.sql": {}},
		"duplicate": {
			"1_a.up.sql": {}, "1_a.down.sql": {},
			"000001_b.up.sql": {}, "000001_b.down.sql": {},
		},
	}
	for name, fsys := range bad {
		_, err := ParseMigrations(fsys)
		assert.Error(t, err, name)
	}
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: NewGormLogger()})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestMigratorUpStatusDown(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	m := newMigrator(db, []Migration{
		{Version: 1, Name: "widgets", Up: "CREATE TABLE widgets (id INTEGER PRIMARY KEY)", Down: "DROP TABLE widgets"},
		{Version: 2, Name: "gadgets", Up: "CREATE TABLE gadgets (id INTEGER PRIMARY KEY)", Down: "DROP TABLE gadgets"},
	})

	status, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.Nil(t, status[0].AppliedAt)

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable("gadgets"))

	n, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	status, err = m.Status(ctx)
	require.NoError(t, err)
	assert.NotNil(t, status[1].AppliedAt)

	assert.Error(t, m.Down(ctx, 1), "older migrations cannot be reverted first")
	require.NoError(t, m.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("gadgets"))
	assert.Error(t, m.Down(ctx, 2))
}

func TestMigratorRejectsUnknownVersions(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	m := newMigrator(db, []Migration{
		{Version: 1, Name: "widgets", Up: "CREATE TABLE widgets (id INTEGER PRIMARY KEY)", Down: "DROP TABLE widgets"},
	})
	_, err := m.Up(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Create(&appliedMigration{Version: 7, Name: "from_the_future"}).Error)

	_, err = m.Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[7]")
}

func TestConnectSQLiteAndApplySchema(t *testing.T) {
	cfg := &config.Config{DBDriver: DriverSQLite, DatabaseURL: "file::memory:?cache=shared", DBMaxOpenConns: 4}
	db, err := Connect(cfg)
	require.NoError(t, err)

	require.NoError(t, ApplySchema(context.Background(), db, cfg))
	require.NoError(t, Ping(context.Background(), db))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 4, sqlDB.Stats().MaxOpenConnections)
}

func TestMigratorUp_Postgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: NewGormLogger()})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "schema_migrations" ORDER BY version`)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "schema_migrations"`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := NewMigrator(db).Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
