package pg

import (
	"testing"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/capacity"
	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnConfig(t *testing.T) {
	prober := NewProber(fleet.Config{
		Engine:         fleet.EnginePostgres,
		User:           "monitor",
		Password:       "p@ss word",
		TLS:            "disable",
		ConnectTimeout: 2 * time.Second,
		ExcludeSchemas: []string{"audit", " "},
	}, log.New())

	cfg, err := prober.ConnConfig("pg-1.internal")
	require.NoError(t, err)
	assert.Equal(t, "pg-1.internal", cfg.Host)
	assert.Equal(t, uint16(5432), cfg.Port)
	assert.Equal(t, "monitor", cfg.User)
	assert.Equal(t, "p@ss word", cfg.Password)
	assert.Equal(t, "postgres", cfg.Database)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Nil(t, cfg.TLSConfig)

	cfg, err = prober.ConnConfig("pg-2:6432")
	require.NoError(t, err)
	assert.Equal(t, "pg-2", cfg.Host)
	assert.Equal(t, uint16(6432), cfg.Port)

	assert.Equal(t, []string{"pg_catalog", "information_schema", "pg_toast", "audit"}, prober.excluded)
}

func TestConnConfig_PreferKeepsHostOnFallbacks(t *testing.T) {
	prober := NewProber(fleet.Config{Engine: fleet.EnginePostgres, User: "monitor"}, log.New())

	cfg, err := prober.ConnConfig("pg-3")
	require.NoError(t, err)
	for _, fb := range cfg.Fallbacks {
		assert.Equal(t, "pg-3", fb.Host)
		assert.Equal(t, uint16(5432), fb.Port)
	}
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "16.4", parseVersion("PostgreSQL 16.4 (Debian 16.4-1.pgdg120+1) on x86_64-pc-linux-gnu"))
	assert.Equal(t, "17", parseVersion("PostgreSQL 17devel on aarch64"))
	assert.Equal(t, "CockroachDB", parseVersion("CockroachDB"))
}

func TestParseLastValue(t *testing.T) {
	v, err := parseLastValue(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	s := "9223372036854775807"
	v, err = parseLastValue(&s)
	require.NoError(t, err)
	assert.Equal(t, s, v.String())

	bad := "x"
	_, err = parseLastValue(&bad)
	assert.Error(t, err)
}

func TestColumnType(t *testing.T) {
	always := "ALWAYS"
	assert.Equal(t, "integer", columnType("integer", nil))
	assert.Equal(t, "bigint generated always as identity", columnType("bigint", &always))

	empty := ""
	assert.Equal(t, "smallint", columnType("smallint", &empty))
}

func TestColumnType_IsNeverUnsigned(t *testing.T) {
	byDefault := "BY DEFAULT"
	for _, declared := range []string{
		columnType("integer", nil),
		columnType("bigint", &byDefault),
		columnType("smallint", nil),
	} {
		assert.False(t, capacity.IsUnsigned(declared), declared)
	}

	_, ceiling, err := capacity.ResolveType("integer", capacity.IsUnsigned(columnType("integer", nil)))
	require.NoError(t, err)
	pct, err := capacity.Percentage(ceiling, ceiling)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pct)
}
