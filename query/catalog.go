package query

// Catalog queries against information_schema. Schema and object names are
// bound as parameters and compared case-folded, matching the fold the cache
// keys and tenant resolver apply. Identifier validation has already run by
// the time these execute; the parameters exist so it never has to be the
// last line of defense.

const (
	pingSQL = `SELECT 1`

	listTablesSQL = `
SELECT table_name, table_type
FROM information_schema.tables
WHERE upper(table_schema) = $1
ORDER BY table_name`

	describeTableSQL = `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE upper(table_schema) = $1 AND upper(table_name) = $2
ORDER BY ordinal_position`

	listProceduresSQL = `
SELECT routine_name, routine_type, is_deterministic
FROM information_schema.routines
WHERE upper(routine_schema) = $1
ORDER BY routine_name`

	describeProcedureSQL = `
SELECT routine_name
FROM information_schema.routines
WHERE upper(routine_schema) = $1 AND upper(routine_name) = $2`

	procedureParametersSQL = `
SELECT p.parameter_name,
       p.ordinal_position,
       p.data_type,
       p.parameter_mode,
       p.character_maximum_length,
       p.numeric_precision,
       p.numeric_scale,
       p.parameter_default IS NOT NULL AS has_default
FROM information_schema.parameters p
JOIN information_schema.routines r
  ON r.specific_schema = p.specific_schema
 AND r.specific_name = p.specific_name
WHERE upper(r.routine_schema) = $1 AND upper(r.routine_name) = $2
ORDER BY p.ordinal_position`
)

// Row-scan targets for the catalog queries.

type tableRow struct {
	Name string `db:"table_name"`
	Type string `db:"table_type"`
}

type columnRow struct {
	Name     string `db:"column_name"`
	DataType string `db:"data_type"`
	Nullable string `db:"is_nullable"`
}

type procedureRow struct {
	Name          string `db:"routine_name"`
	Type          string `db:"routine_type"`
	Deterministic string `db:"is_deterministic"`
}

type parameterRow struct {
	Name       *string `db:"parameter_name"`
	Position   int     `db:"ordinal_position"`
	DataType   string  `db:"data_type"`
	Mode       string  `db:"parameter_mode"`
	Length     *int64  `db:"character_maximum_length"`
	Precision  *int64  `db:"numeric_precision"`
	Scale      *int64  `db:"numeric_scale"`
	HasDefault bool    `db:"has_default"`
}
