package services

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// ParseFlatKey splits a flat key of the form <prefix>_<digits>_<suffix> on its
// last all-digit token, the innermost list index. Outer indices stay in the
// prefix, so "a_0_b_1_c" parses as ("a_0_b", 1, "c"). Keys without a digit
// token are scalar columns and return ok=false.
func ParseFlatKey(key string) (prefix string, index int, suffix string, ok bool) {
	tokens := strings.Split(key, domain.FlatKeySeparator)
	for i := len(tokens) - 1; i >= 0; i-- {
		if !isDigits(tokens[i]) {
			continue
		}
		n, err := strconv.Atoi(tokens[i])
		if err != nil {
			return "", 0, "", false
		}
		return strings.Join(tokens[:i], domain.FlatKeySeparator),
			n,
			strings.Join(tokens[i+1:], domain.FlatKeySeparator),
			true
	}
	return "", 0, "", false
}

// familyGroup drops the list indices from a key prefix, so every
// "orders_<i>_items" prefix falls in the "orders_items" group.
func familyGroup(prefix string) string {
	if !hasDigitToken(prefix) {
		return prefix
	}
	tokens := strings.Split(prefix, domain.FlatKeySeparator)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !isDigits(tok) {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, domain.FlatKeySeparator)
}

// family identifies one de-indexed column: every key sharing the de-indexed
// prefix and the suffix, whatever its indices.
type family struct {
	group  string
	suffix string
}

// PlanBuilder accumulates the column plan of a collection from its FlatRows.
// It is not safe for concurrent use.
type PlanBuilder struct {
	indexed  bool
	scalars  *domain.ColumnSet
	pairs    []family
	seen     map[family]struct{}
	families *domain.ColumnSet
	keys     *domain.ColumnSet
}

// NewPlanBuilder creates a builder. When indexed is false every key is
// treated as a scalar column, which is the plan of a flat collection.
func NewPlanBuilder(indexed bool) *PlanBuilder {
	return &PlanBuilder{
		indexed:  indexed,
		scalars:  domain.NewColumnSet(),
		seen:     make(map[family]struct{}),
		families: domain.NewColumnSet(),
		keys:     domain.NewColumnSet(),
	}
}

// Observe records the keys of row in first-seen order.
func (b *PlanBuilder) Observe(row domain.FlatRow) {
	for _, key := range row.Keys() {
		if b.keys.Has(key) {
			continue
		}
		b.keys.Add(key)

		if !b.indexed {
			b.scalars.Add(key)
			continue
		}
		prefix, _, suffix, ok := ParseFlatKey(key)
		if !ok {
			b.scalars.Add(key)
			continue
		}
		fam := family{group: familyGroup(prefix), suffix: suffix}
		if _, ok := b.seen[fam]; !ok {
			b.seen[fam] = struct{}{}
			b.pairs = append(b.pairs, fam)
		}
		b.families.Add(fam.group)
	}
}

// SourceKeys returns the number of distinct flat keys observed.
func (b *PlanBuilder) SourceKeys() int {
	return b.keys.Len()
}

// Build returns the column plan.
//
// A de-indexed column is named after its suffix, or after the last field of
// its prefix for lists of scalars. When that name is shared with a scalar
// column or another family it is namespaced with the de-indexed prefix. Any
// clash left after that gets a ~2, ~3... suffix in first-seen order.
func (b *PlanBuilder) Build() domain.ColumnPlan {
	plan := domain.ColumnPlan{
		Columns:    make([]domain.PlanColumn, 0, b.scalars.Len()+len(b.pairs)),
		Families:   b.families.Names(),
		SourceKeys: b.keys.Len(),
	}

	taken := domain.NewColumnSet()
	for _, name := range b.scalars.Names() {
		taken.Add(name)
		plan.Columns = append(plan.Columns, domain.PlanColumn{Name: name})
	}

	baseCount := make(map[string]int, len(b.pairs))
	for _, fam := range b.pairs {
		baseCount[fam.baseName()]++
	}

	for _, fam := range b.pairs {
		name := fam.baseName()
		if taken.Has(name) || baseCount[name] > 1 {
			name = fam.qualifiedName()
		}
		if taken.Has(name) {
			base := name
			for n := 2; taken.Has(name); n++ {
				name = fmt.Sprintf("%s~%d", base, n)
			}
		}
		taken.Add(name)
		plan.Columns = append(plan.Columns, domain.PlanColumn{
			Name:    name,
			Prefix:  fam.group,
			Suffix:  fam.suffix,
			Indexed: true,
		})
	}

	return plan
}

func (f family) baseName() string {
	if f.suffix != "" {
		return f.suffix
	}
	if i := strings.LastIndex(f.group, domain.FlatKeySeparator); i >= 0 && i+1 < len(f.group) {
		return f.group[i+1:]
	}
	return f.group
}

func (f family) qualifiedName() string {
	switch {
	case f.suffix == "":
		return f.group
	case f.group == "":
		return f.suffix
	default:
		return f.group + domain.FlatKeySeparator + f.suffix
	}
}

// DenormalizeStats summarises one Denormalize call.
type DenormalizeStats struct {
	RowsIn  int
	RowsOut int

	// Unplanned counts keys that had no column in the plan and were dropped.
	Unplanned int
}

// Denormalizer folds array-index column families into child rows.
type Denormalizer struct {
	plan    domain.ColumnPlan
	width   int
	scalars map[string]int
	columns map[family]int
	order   *domain.ColumnSet
}

// NewDenormalizer prepares lookups for plan.
func NewDenormalizer(plan domain.ColumnPlan) *Denormalizer {
	d := &Denormalizer{
		plan:    plan,
		width:   len(plan.Columns),
		scalars: make(map[string]int),
		columns: make(map[family]int),
		order:   domain.NewColumnSet(),
	}
	for i, col := range plan.Columns {
		if col.Indexed {
			d.columns[family{group: col.Prefix, suffix: col.Suffix}] = i
		} else {
			d.scalars[col.Name] = i
		}
	}
	for _, group := range plan.Families {
		d.order.Add(group)
	}
	return d
}

// listInstance holds the cells of one concrete list, such as "orders_1_items",
// keyed by element index. Covered elements enclose an inner list whose rows
// already carry their values.
type listInstance struct {
	prefix  string
	group   string
	path    []int
	cells   map[int][]cell
	covered map[int]bool
}

type cell struct {
	col   int
	value string
}

// Denormalize converts FlatRows into a table with the plan's columns.
//
// A row without indexed keys yields one output row. Otherwise every concrete
// list, in plan family order, yields one row per element present, in
// ascending index order. A row for an element of an inner list also carries
// the values of the enclosing list elements, so an item row keeps the fields
// of its order, and an enclosing element gets no row of its own. Families are
// stacked, never combined: a child row carries the parent scalars, its
// enclosing elements and its own family only.
func (d *Denormalizer) Denormalize(rows []domain.FlatRow) (*domain.Table, DenormalizeStats) {
	stats := DenormalizeStats{RowsIn: len(rows)}
	table := &domain.Table{
		Columns: d.plan.Names(),
		Rows:    make([][]string, 0, len(rows)),
	}

	for _, row := range rows {
		base := make([]string, d.width)
		lists := make(map[string]*listInstance)

		for _, key := range row.Keys() {
			value, _ := row.Get(key)
			if idx, ok := d.scalars[key]; ok {
				base[idx] = value
				continue
			}
			prefix, index, suffix, ok := ParseFlatKey(key)
			if !ok {
				stats.Unplanned++
				continue
			}
			group := familyGroup(prefix)
			col, ok := d.columns[family{group: group, suffix: suffix}]
			if !ok {
				stats.Unplanned++
				continue
			}
			list := lists[prefix]
			if list == nil {
				list = newListInstance(prefix, group)
				lists[prefix] = list
			}
			list.cells[index] = append(list.cells[index], cell{col: col, value: value})
		}

		if len(lists) == 0 {
			table.Rows = append(table.Rows, base)
			continue
		}
		for _, list := range lists {
			forEnclosing(list.prefix, lists, func(outer *listInstance, n int) {
				outer.covered[n] = true
			})
		}

		for _, list := range d.sortedLists(lists) {
			indices := make([]int, 0, len(list.cells))
			for i := range list.cells {
				indices = append(indices, i)
			}
			sort.Ints(indices)

			for _, i := range indices {
				if list.covered[i] {
					continue
				}
				out := make([]string, d.width)
				copy(out, base)
				forEnclosing(list.prefix, lists, func(outer *listInstance, n int) {
					for _, c := range outer.cells[n] {
						out[c.col] = c.value
					}
				})
				for _, c := range list.cells[i] {
					out[c.col] = c.value
				}
				table.Rows = append(table.Rows, out)
			}
		}
	}

	stats.RowsOut = len(table.Rows)
	return table, stats
}

func newListInstance(prefix, group string) *listInstance {
	list := &listInstance{
		prefix:  prefix,
		group:   group,
		cells:   make(map[int][]cell),
		covered: make(map[int]bool),
	}
	for _, tok := range strings.Split(prefix, domain.FlatKeySeparator) {
		if isDigits(tok) {
			n, _ := strconv.Atoi(tok)
			list.path = append(list.path, n)
		}
	}
	return list
}

// forEnclosing calls fn for every list element that encloses the list at
// prefix. For "a_0_b_2_c" those are element 0 of "a" and element 2 of "a_0_b".
func forEnclosing(prefix string, lists map[string]*listInstance, fn func(outer *listInstance, n int)) {
	tokens := strings.Split(prefix, domain.FlatKeySeparator)
	for i, tok := range tokens {
		if !isDigits(tok) {
			continue
		}
		outer, ok := lists[strings.Join(tokens[:i], domain.FlatKeySeparator)]
		if !ok {
			continue
		}
		n, _ := strconv.Atoi(tok)
		fn(outer, n)
	}
}

// sortedLists orders lists by plan family order, then by their outer indices.
func (d *Denormalizer) sortedLists(lists map[string]*listInstance) []*listInstance {
	out := make([]*listInstance, 0, len(lists))
	for _, l := range lists {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.group != b.group {
			return d.order.Index(a.group) < d.order.Index(b.group)
		}
		return slices.Compare(a.path, b.path) < 0
	})
	return out
}
