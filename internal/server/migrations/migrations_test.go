package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_RecordsTableIsAppendOnly(t *testing.T) {
	data, err := fs.ReadFile(Migrations, "00001_create_records.sql")
	require.NoError(t, err)

	sql := string(data)
	assert.Contains(t, sql, "CREATE TABLE records")
	assert.Contains(t, sql, "BEFORE UPDATE OR DELETE ON records")
	assert.True(t, strings.Contains(sql, "-- +goose Up"))
}
