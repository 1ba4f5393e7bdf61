package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("LEDGER_DIR", "/srv/ledger")

	assert.Equal(t, "/home/tester/data.db", expandPath("~/data.db"))
	assert.Equal(t, "/srv/ledger/data.db", expandPath("$LEDGER_DIR/data.db"))
	assert.Equal(t, "/tmp/data.db", expandPath("/tmp/data.db"))
}

func TestLoadRules(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("rules", []map[string]any{
		{"keyword": "electricity", "account": "5100"},
		{"keyword": "office supplies", "account": "6100"},
	})

	table, err := loadRules()
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "electricity", table[0].Keyword)
	assert.Equal(t, "5100", table[0].AccountID)
	assert.Equal(t, "office supplies", table[1].Keyword)
}

func TestLoadRulesEmpty(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	table, err := loadRules()
	require.NoError(t, err)
	assert.Empty(t, table)
}
