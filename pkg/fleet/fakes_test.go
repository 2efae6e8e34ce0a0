package fleet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"
)

type fakeSession struct {
	columns     []ColumnMeta
	counters    []TableCounter
	columnsErr  error
	countersErr error
	delay       time.Duration
	closed      atomic.Bool
}

func (s *fakeSession) Columns(ctx context.Context) ([]ColumnMeta, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.columns, s.columnsErr
}

func (s *fakeSession) Counters(ctx context.Context) ([]TableCounter, error) {
	return s.counters, s.countersErr
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

// fakeProber hands out sessions per host; hosts without a session are unreachable.
type fakeProber struct {
	mu       sync.Mutex
	sessions map[string]*fakeSession
	delays   map[string]time.Duration
	probed   []string
}

func (p *fakeProber) Probe(ctx context.Context, host string) (Session, error) {
	p.mu.Lock()
	p.probed = append(p.probed, host)
	delay := p.delays[host]
	session, ok := p.sessions[host]
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, &ProbeError{Host: host, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}
	if !ok {
		return nil, &ProbeError{Host: host, Err: errors.New("connection refused")}
	}
	return session, nil
}

func counter(v string) *big.Int {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		panic("bad counter " + v)
	}
	return n
}

func singleColumnSession(schema, table, dataType, columnType, autoIncrement string) *fakeSession {
	return &fakeSession{
		columns:  []ColumnMeta{{Schema: schema, Table: table, Column: "id", DataType: dataType, ColumnType: columnType}},
		counters: []TableCounter{{Schema: schema, Table: table, AutoIncrement: counter(autoIncrement), Rows: 10}},
	}
}
