package domain

// Table is a batch of denormalized rows sharing one column list.
// Every value is a string; an absent value is "".
type Table struct {
	Columns []string
	Rows    [][]string
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) map[string]string {
	rec := make(map[string]string, len(t.Columns))
	for j, col := range t.Columns {
		rec[col] = t.Rows[i][j]
	}
	return rec
}

// Column returns the values of the named column, or nil if it does not exist.
func (t *Table) Column(name string) []string {
	idx := -1
	for j, col := range t.Columns {
		if col == name {
			idx = j
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// PlanColumn is one output column of a ColumnPlan.
type PlanColumn struct {
	// Name is the output column name.
	Name string

	// Prefix and Suffix identify the source family for de-indexed columns.
	// Prefix has its list indices removed, so "orders_0_items_2_sku" and
	// "orders_1_items_0_sku" share Prefix "orders_items" and Suffix "sku".
	// Both are empty for scalar columns.
	Prefix string
	Suffix string

	// Indexed is true for columns produced from an array-index family.
	Indexed bool
}

// ColumnPlan is the output schema of one collection.
// Scalar columns come first in first-seen order, then de-indexed columns in first-seen order.
type ColumnPlan struct {
	Columns []PlanColumn

	// Families lists the distinct de-indexed family prefixes in first-seen order.
	Families []string

	// SourceKeys is the number of distinct flat keys observed.
	SourceKeys int
}

// Names returns the output column names in order.
func (p ColumnPlan) Names() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// ScalarCount returns the number of scalar columns.
func (p ColumnPlan) ScalarCount() int {
	n := 0
	for _, c := range p.Columns {
		if !c.Indexed {
			n++
		}
	}
	return n
}
