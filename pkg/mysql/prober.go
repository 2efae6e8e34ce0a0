package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"
)

// Prober connects to MySQL and MariaDB hosts with the fleet-wide credentials.
type Prober struct {
	config   fleet.Config
	excluded []string
	logger   *log.Logger
}

func NewProber(config fleet.Config, logger *log.Logger) *Prober {
	return &Prober{
		config:   config,
		excluded: excludedSchemas(config.ExcludeSchemas),
		logger:   logger,
	}
}

// DriverConfig builds the go-sql-driver configuration for host.
func (p *Prober) DriverConfig(host string) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = p.config.User
	cfg.Passwd = p.config.Password
	cfg.Net = "tcp"
	cfg.Addr = p.config.Address(host)
	cfg.DBName = p.config.Database
	cfg.Timeout = p.config.ConnectTimeout
	cfg.ReadTimeout = p.config.ConnectTimeout
	cfg.InterpolateParams = true
	if p.config.TLS != "" {
		cfg.TLSConfig = p.config.TLS
	}
	return cfg
}

// Probe opens a single connection to host and runs the liveness check on it.
func (p *Prober) Probe(ctx context.Context, host string) (fleet.Session, error) {
	connector, err := mysql.NewConnector(p.DriverConfig(host))
	if err != nil {
		return nil, &fleet.ProbeError{Host: host, Err: err}
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, &fleet.ProbeError{Host: host, Err: err}
	}

	var up int
	if err := conn.QueryRowContext(ctx, Select1Query).Scan(&up); err != nil {
		conn.Close()
		db.Close()
		return nil, &fleet.ProbeError{Host: host, Err: fmt.Errorf("liveness check: %w", err)}
	}

	if p.config.FreshStats {
		if _, err := conn.ExecContext(ctx, FreshStatsQuery); err != nil {
			p.logger.Debugf("[mysql] %s: fresh statistics unavailable: %v", host, err)
		}
	}

	return &Session{
		host:     host,
		db:       db,
		conn:     conn,
		excluded: p.excluded,
		logger:   p.logger,
	}, nil
}

// Session is one live MySQL connection.
type Session struct {
	host     string
	db       *sql.DB
	conn     *sql.Conn
	excluded []string
	logger   *log.Logger
}

func (s *Session) Columns(ctx context.Context) ([]fleet.ColumnMeta, error) {
	query, args := withExclusions(columnsQueryTemplate, s.excluded)
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []fleet.ColumnMeta
	for rows.Next() {
		var c fleet.ColumnMeta
		if err := rows.Scan(&c.Schema, &c.Table, &c.Column, &c.DataType, &c.ColumnType); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (s *Session) Counters(ctx context.Context) ([]fleet.TableCounter, error) {
	query, args := withExclusions(countersQueryTemplate, s.excluded)
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counters []fleet.TableCounter
	for rows.Next() {
		var (
			schema, table string
			autoIncrement sql.NullString
			tableRows     sql.NullInt64
		)
		if err := rows.Scan(&schema, &table, &autoIncrement, &tableRows); err != nil {
			return nil, err
		}
		counter, err := parseCounter(schema, table, autoIncrement, tableRows)
		if err != nil {
			s.logger.Warnf("[mysql] %s: %v", s.host, err)
			continue
		}
		counters = append(counters, counter)
	}
	return counters, rows.Err()
}

func (s *Session) Close() error {
	connErr := s.conn.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return connErr
}

// parseCounter turns one INFORMATION_SCHEMA.TABLES row into a TableCounter.
// A NULL AUTO_INCREMENT yields a nil counter.
func parseCounter(schema, table string, autoIncrement sql.NullString, rows sql.NullInt64) (fleet.TableCounter, error) {
	counter := fleet.TableCounter{Schema: schema, Table: table}
	if rows.Valid {
		counter.Rows = rows.Int64
	}
	if !autoIncrement.Valid {
		return counter, nil
	}
	value, ok := new(big.Int).SetString(strings.TrimSpace(autoIncrement.String), 10)
	if !ok {
		return fleet.TableCounter{}, fmt.Errorf("%s.%s: unparseable AUTO_INCREMENT %q", schema, table, autoIncrement.String)
	}
	counter.AutoIncrement = value
	return counter, nil
}
