package pg

import (
	"context"
	"regexp"

	"github.com/jackc/pgx/v5"
)

const Select1Query = `
/*autoinc*/
SELECT 1;
`

const PGVersionQuery = `
/*autoinc*/
SELECT version();
`

// SystemSchemas are never scanned.
var SystemSchemas = []string{"pg_catalog", "information_schema", "pg_toast"}

// ColumnsQuery lists identity columns and serial columns backed by nextval().
const ColumnsQuery = `
/*autoinc*/
SELECT
	c.table_schema,
	c.table_name,
	c.column_name,
	c.data_type,
	CASE WHEN c.is_identity = 'YES' THEN c.identity_generation::text END
FROM information_schema.columns c
WHERE (c.is_identity = 'YES' OR c.column_default LIKE 'nextval(%')
	AND c.table_schema <> ALL($1::text[])
ORDER BY c.table_schema, c.table_name, c.ordinal_position;
`

// CountersQuery lists the last value of every sequence owned by a table
// column, keyed by that column. last_value is NULL until the sequence is
// first used, and also when the role may not read the sequence, which the
// readable column tells apart.
const CountersQuery = `
/*autoinc*/
SELECT
	tn.nspname,
	t.relname,
	a.attname,
	s.last_value::text,
	has_sequence_privilege(seq.oid, 'SELECT,USAGE') AS readable,
	GREATEST(t.reltuples, 0)::bigint
FROM pg_depend d
JOIN pg_class seq ON seq.oid = d.objid AND seq.relkind = 'S'
JOIN pg_namespace sn ON sn.oid = seq.relnamespace
JOIN pg_class t ON t.oid = d.refobjid
JOIN pg_namespace tn ON tn.oid = t.relnamespace
JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = d.refobjsubid
JOIN pg_sequences s ON s.schemaname = sn.nspname AND s.sequencename = seq.relname
WHERE d.classid = 'pg_class'::regclass
	AND d.refclassid = 'pg_class'::regclass
	AND d.deptype IN ('a', 'i')
	AND tn.nspname <> ALL($1::text[]);
`

var versionRegex = regexp.MustCompile(`PostgreSQL (\d+(?:\.\d+)?)`)

// PGVersion returns the server version, for example 16.4.
func PGVersion(ctx context.Context, conn *pgx.Conn) (string, error) {
	var version string
	if err := conn.QueryRow(ctx, PGVersionQuery).Scan(&version); err != nil {
		return "", err
	}
	return parseVersion(version), nil
}

func parseVersion(version string) string {
	matches := versionRegex.FindStringSubmatch(version)
	if len(matches) < 2 {
		return version
	}
	return matches[1]
}
