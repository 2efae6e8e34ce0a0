package mysql_test

import (
	"context"
	"database/sql"
	"net"
	"testing"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/mysql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

const testSchema = `
CREATE TABLE accounts (
	id INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	email VARCHAR(255) NOT NULL
) AUTO_INCREMENT = 4294967295;

CREATE TABLE flags (
	id TINYINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(32)
) AUTO_INCREMENT = 200;

CREATE TABLE notes (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	body TEXT
);

CREATE TABLE plain (
	code CHAR(3) PRIMARY KEY
);
`

func setupMySQL(t *testing.T) (fleet.Config, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcmysql.Run(ctx,
		"mysql:8.0.36",
		tcmysql.WithDatabase("app"),
		tcmysql.WithUsername("monitor"),
		tcmysql.WithPassword("monitor"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "multiStatements=true")
	require.NoError(t, err)
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(ctx, testSchema)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	config := fleet.Config{
		Engine:         fleet.EngineMySQL,
		User:           "monitor",
		Password:       "monitor",
		ConnectTimeout: 10 * time.Second,
		FreshStats:     true,
	}
	return config, net.JoinHostPort(host, port.Port())
}

func TestMySQLAggregate(t *testing.T) {
	config, addr := setupMySQL(t)
	logger, _ := test.NewNullLogger()

	aggregator := fleet.NewAggregator(mysql.NewProber(config, logger), config, logger)
	report, err := aggregator.Aggregate(context.Background(), []string{addr, "127.0.0.1:1"})
	require.NoError(t, err)
	require.Len(t, report.Hosts, 1)
	assert.Equal(t, []string{"127.0.0.1:1"}, report.Unreachable)

	columns := report.Hosts[0].Columns
	require.Len(t, columns, 3)

	assert.Equal(t, "accounts", columns[0].Table)
	assert.Equal(t, 100.0, columns[0].Percentage)
	assert.True(t, columns[0].Unsigned)

	assert.Equal(t, "flags", columns[1].Table)
	assert.Equal(t, 78.43, columns[1].Percentage)

	assert.Equal(t, "notes", columns[2].Table)
	assert.Equal(t, "1", columns[2].Counter.String())
	assert.False(t, columns[2].Unsigned)
}
