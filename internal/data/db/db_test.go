package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/studycards/internal/data/history"
	"github.com/yungbote/studycards/internal/platform/logger"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	svc, err := Open(Config{Driver: "sqlite3", DSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared", Silent: true}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	assert.Equal(t, DriverSQLite, svc.Driver())
	require.NoError(t, svc.AutoMigrate())
	require.NoError(t, svc.Ping(context.Background()))
	assert.True(t, svc.DB().Migrator().HasTable(&history.Entry{}))
}

func TestOpenRejectsBadConfig(t *testing.T) {
	_, err := Open(Config{Driver: "postgres"}, logger.Nop())
	assert.Error(t, err)

	_, err = Open(Config{Driver: "mysql", DSN: "x"}, logger.Nop())
	assert.Error(t, err)
}
