package pg

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

const defaultDatabase = "postgres"

// Prober connects to PostgreSQL hosts with the fleet-wide credentials.
type Prober struct {
	config   fleet.Config
	excluded []string
	logger   *log.Logger
}

func NewProber(config fleet.Config, logger *log.Logger) *Prober {
	excluded := append([]string{}, SystemSchemas...)
	for _, s := range config.ExcludeSchemas {
		if s = strings.TrimSpace(s); s != "" {
			excluded = append(excluded, s)
		}
	}
	return &Prober{config: config, excluded: excluded, logger: logger}
}

// ConnConfig builds the pgx connection configuration for host.
func (p *Prober) ConnConfig(host string) (*pgx.ConnConfig, error) {
	sslmode := p.config.TLS
	if sslmode == "" {
		sslmode = "prefer"
	}
	database := p.config.Database
	if database == "" {
		database = defaultDatabase
	}

	connConfig, err := pgx.ParseConfig(fmt.Sprintf("sslmode=%s application_name=autoinc-agent", sslmode))
	if err != nil {
		return nil, err
	}

	h, port, err := net.SplitHostPort(p.config.Address(host))
	if err != nil {
		return nil, err
	}
	portNumber, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", port, err)
	}

	connConfig.Host = h
	connConfig.Port = uint16(portNumber)
	connConfig.User = p.config.User
	connConfig.Password = p.config.Password
	connConfig.Database = database
	connConfig.ConnectTimeout = p.config.ConnectTimeout
	// sslmode=prefer expands into fallbacks that carry the parsed host.
	for _, fb := range connConfig.Fallbacks {
		fb.Host = h
		fb.Port = uint16(portNumber)
	}
	return connConfig, nil
}

// Probe opens one connection to host and runs the liveness check on it.
func (p *Prober) Probe(ctx context.Context, host string) (fleet.Session, error) {
	connConfig, err := p.ConnConfig(host)
	if err != nil {
		return nil, &fleet.ProbeError{Host: host, Err: err}
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		return nil, &fleet.ProbeError{Host: host, Err: err}
	}

	if _, err := conn.Exec(ctx, Select1Query); err != nil {
		conn.Close(context.Background())
		return nil, &fleet.ProbeError{Host: host, Err: fmt.Errorf("liveness check: %w", err)}
	}

	if version, err := PGVersion(ctx, conn); err == nil {
		p.logger.Debugf("[pg] %s: PostgreSQL %s", host, version)
	}

	return &Session{host: host, conn: conn, excluded: p.excluded}, nil
}

// Session is one live PostgreSQL connection.
type Session struct {
	host     string
	conn     *pgx.Conn
	excluded []string
}

func (s *Session) Columns(ctx context.Context) ([]fleet.ColumnMeta, error) {
	rows, err := s.conn.Query(ctx, ColumnsQuery, s.excluded)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (fleet.ColumnMeta, error) {
		var (
			c          fleet.ColumnMeta
			generation *string
		)
		err := row.Scan(&c.Schema, &c.Table, &c.Column, &c.DataType, &generation)
		c.ColumnType = columnType(c.DataType, generation)
		return c, err
	})
}

// columnType spells out the declared type from the catalog type and the
// identity generation. The column default is left out: it holds the sequence
// name, and PostgreSQL integers are always signed whatever that name says.
func columnType(dataType string, generation *string) string {
	if generation == nil || *generation == "" {
		return dataType
	}
	return dataType + " generated " + strings.ToLower(*generation) + " as identity"
}

func (s *Session) Counters(ctx context.Context) ([]fleet.TableCounter, error) {
	rows, err := s.conn.Query(ctx, CountersQuery, s.excluded)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (fleet.TableCounter, error) {
		var (
			c         fleet.TableCounter
			lastValue *string
			readable  bool
		)
		if err := row.Scan(&c.Schema, &c.Table, &c.Column, &lastValue, &readable, &c.Rows); err != nil {
			return c, err
		}
		if !readable {
			c.Unreadable = true
			return c, nil
		}
		counter, err := parseLastValue(lastValue)
		if err != nil {
			return c, fmt.Errorf("%s.%s.%s: %w", c.Schema, c.Table, c.Column, err)
		}
		c.AutoIncrement = counter
		return c, nil
	})
}

func (s *Session) Close() error {
	return s.conn.Close(context.Background())
}

func parseLastValue(lastValue *string) (*big.Int, error) {
	if lastValue == nil {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(*lastValue, 10)
	if !ok {
		return nil, fmt.Errorf("unparseable sequence value %q", *lastValue)
	}
	return value, nil
}
