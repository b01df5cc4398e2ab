// Package sqlgen turns a loaded catalog into the ordered statements that
// materialize it: staging, vocabulary, canonical and association tables,
// followed by the rows that fill and link them.
package sqlgen

import (
	"catalogetl/internal/dialect"
)

// Stage groups statements for logging and metrics.
type Stage string

const (
	StageDrop       Stage = "ddl.drop"
	StagePreamble   Stage = "ddl.preamble"
	StageRawDDL     Stage = "ddl.raw"
	StageEnumDDL    Stage = "ddl.enum"
	StageSizeDDL    Stage = "ddl.sizes"
	StageCleanDDL   Stage = "ddl.clean"
	StageBridgeDDL  Stage = "ddl.bridge"
	StageForeignKey Stage = "ddl.fk"

	StageRawDML     Stage = "dml.raw"
	StageEnumDML    Stage = "dml.enum"
	StageSizeDML    Stage = "dml.sizes"
	StageCleanDML   Stage = "dml.clean"
	StageOneToOne   Stage = "dml.one_to_one"
	StageManyToMany Stage = "dml.many_to_many"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageDrop, StagePreamble, StageRawDDL, StageEnumDDL, StageSizeDDL, StageCleanDDL, StageBridgeDDL, StageForeignKey,
	StageRawDML, StageEnumDML, StageSizeDML, StageCleanDML, StageOneToOne, StageManyToMany,
}

// Statement is one parameterized SQL statement.
type Statement struct {
	Stage Stage
	// Table is the table the statement writes to.
	Table string
	SQL   string
	Args  []any
}

// Inline renders the statement with its arguments as literals, for scripts
// and debug logs.
func (s Statement) Inline(d dialect.Dialect) string {
	return dialect.Inline(d, s.SQL, s.Args)
}
