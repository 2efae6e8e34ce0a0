package mysql

import (
	"strings"
)

// Select1Query is the liveness check run right after connecting.
const Select1Query = `
/*autoinc*/
SELECT 1 AS dbIsUp;
`

// FreshStatsQuery stops MySQL 8 from answering information_schema lookups
// from its statistics cache. Older servers and MariaDB reject it.
const FreshStatsQuery = `SET SESSION information_schema_stats_expiry = 0`

// SystemSchemas are never scanned.
var SystemSchemas = []string{
	"information_schema",
	"innodb",
	"mysql",
	"performance_schema",
	"sys",
}

const columnsQueryTemplate = `
/*autoinc*/
SELECT
	TABLE_SCHEMA,
	TABLE_NAME,
	COLUMN_NAME,
	DATA_TYPE,
	COLUMN_TYPE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE EXTRA LIKE '%auto_increment%'
	AND TABLE_SCHEMA NOT IN ({{schemas}})
ORDER BY TABLE_SCHEMA, TABLE_NAME;
`

const countersQueryTemplate = `
/*autoinc*/
SELECT
	t.TABLE_SCHEMA,
	t.TABLE_NAME,
	CAST(t.AUTO_INCREMENT AS CHAR),
	t.TABLE_ROWS
FROM INFORMATION_SCHEMA.TABLES t
WHERE t.TABLE_TYPE = 'BASE TABLE'
	AND t.TABLE_SCHEMA NOT IN ({{schemas}})
	AND EXISTS (
		SELECT 1 FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = t.TABLE_SCHEMA
			AND c.TABLE_NAME = t.TABLE_NAME
			AND c.EXTRA LIKE '%auto_increment%'
	);
`

// excludedSchemas merges the system schemas with the configured ones,
// lowercased and without duplicates.
func excludedSchemas(extra []string) []string {
	seen := make(map[string]struct{}, len(SystemSchemas)+len(extra))
	out := make([]string, 0, len(SystemSchemas)+len(extra))
	for _, s := range append(append([]string{}, SystemSchemas...), extra...) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// withExclusions fills the NOT IN list of a query template with one
// placeholder per schema and returns the matching arguments.
func withExclusions(template string, schemas []string) (string, []any) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(schemas)), ",")
	args := make([]any, len(schemas))
	for i, s := range schemas {
		args[i] = s
	}
	return strings.Replace(template, "{{schemas}}", placeholders, 1), args
}
