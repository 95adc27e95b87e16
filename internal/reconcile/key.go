package reconcile

import (
	"strings"

	"github.com/ginjaninja78/rebate-reconciler/internal/config"
	"github.com/ginjaninja78/rebate-reconciler/internal/tabular"
)

// Record is the projection of one input row.
//
// On the guess side Primary is the customer name and Secondary the fuzzy
// distributor name. On the truth side Primary is the fuse id and Secondary
// the true distributor name.
type Record struct {
	JoinKey   string
	Primary   string
	Secondary string
	Line      int
}

// Projector derives join keys and records from rows by position.
type Projector struct {
	keyColumns []int
	primary    int
	secondary  int
	separator  string
}

// NewProjector builds a Projector from the configured column layout.
func NewProjector(cols config.ColumnSettings) Projector {
	return Projector{
		keyColumns: append([]int(nil), cols.JoinKey...),
		primary:    cols.Primary,
		secondary:  cols.Secondary,
		separator:  cols.KeySeparator,
	}
}

// JoinKey concatenates the key fields in order. With an empty separator the
// key is plain concatenation, so distinct field splits can produce the same
// key. Callers must have shape-checked the row.
func (p Projector) JoinKey(fields []string) string {
	if len(p.keyColumns) == 1 {
		return fields[p.keyColumns[0]]
	}

	var b strings.Builder
	for i, pos := range p.keyColumns {
		if i > 0 {
			b.WriteString(p.separator)
		}
		b.WriteString(fields[pos])
	}
	return b.String()
}

// Project converts a row into a Record.
func (p Projector) Project(row tabular.Row) Record {
	return Record{
		JoinKey:   p.JoinKey(row.Fields),
		Primary:   row.Fields[p.primary],
		Secondary: row.Fields[p.secondary],
		Line:      row.Line,
	}
}

// ProjectAll converts every row of a table, preserving order.
func (p Projector) ProjectAll(table *tabular.Table) []Record {
	records := make([]Record, len(table.Rows))
	for i, row := range table.Rows {
		records[i] = p.Project(row)
	}
	return records
}

// Required returns every position the projector reads.
func (p Projector) Required() []int {
	positions := append([]int(nil), p.keyColumns...)
	return append(positions, p.primary, p.secondary)
}
