package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/dbtuneai/autoinc-agent/pkg/capacity"
	log "github.com/sirupsen/logrus"
)

type counterKey struct {
	schema string
	table  string
	column string
}

// Scan lists the auto-increment columns of a live session, correlates each
// with its counter and attaches the type ceiling. Percentages are left unset.
//
// Tables whose counter is null are skipped silently. A column with no counter
// row at all, or whose counter the role may not read, is logged as a
// *ScanError and skipped; an unknown column type is logged and falls back to
// the signed 32-bit ceiling. Only a failing query fails the whole scan.
func Scan(ctx context.Context, host string, session Session, logger log.FieldLogger) ([]ColumnObservation, error) {
	columns, err := session.Columns(ctx)
	if err != nil {
		return nil, &ScanError{Host: host, Err: fmt.Errorf("listing auto-increment columns: %w", err)}
	}
	if len(columns) == 0 {
		return []ColumnObservation{}, nil
	}

	counters, err := session.Counters(ctx)
	if err != nil {
		return nil, &ScanError{Host: host, Err: fmt.Errorf("listing table counters: %w", err)}
	}

	index := make(map[counterKey]TableCounter, len(counters))
	for _, c := range counters {
		index[counterKey{c.Schema, c.Table, c.Column}] = c
	}

	observations := make([]ColumnObservation, 0, len(columns))
	for _, col := range columns {
		counter, ok := index[counterKey{col.Schema, col.Table, col.Column}]
		if !ok {
			counter, ok = index[counterKey{col.Schema, col.Table, ""}]
		}
		if !ok {
			logger.Warn(&ScanError{
				Host:   host,
				Column: qualifiedName(col),
				Err:    errNoCounter,
			})
			continue
		}
		if counter.Unreadable {
			logger.Warn(&ScanError{
				Host:   host,
				Column: qualifiedName(col),
				Err:    errCounterUnreadable,
			})
			continue
		}
		if counter.AutoIncrement == nil {
			logger.Debugf("[scan] %s: %s has no counter yet, skipping", host, qualifiedName(col))
			continue
		}

		unsigned := capacity.IsUnsigned(col.ColumnType)
		category, ceiling, err := capacity.ResolveType(col.DataType, unsigned)
		var warning *capacity.UnknownTypeWarning
		if errors.As(err, &warning) {
			logger.WithFields(log.Fields{
				"host":   host,
				"column": qualifiedName(col),
			}).Warnf("[scan] %v", warning)
		}

		observations = append(observations, ColumnObservation{
			Host:       host,
			Schema:     col.Schema,
			Table:      col.Table,
			Column:     col.Column,
			DataType:   col.DataType,
			ColumnType: col.ColumnType,
			Category:   category,
			Unsigned:   unsigned,
			Counter:    counter.AutoIncrement,
			Rows:       counter.Rows,
			Ceiling:    ceiling,
		})
	}

	return observations, nil
}

func qualifiedName(col ColumnMeta) string {
	return col.Schema + "." + col.Table + "." + col.Column
}
