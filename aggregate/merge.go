package aggregate

// Merge folds every table into the first one and returns it. The other
// tables are consumed. Counts are summed per (path, date), so the order of
// tables does not change the result. Merge returns nil for no tables.
func Merge(tables ...*Table) *Table {
	if len(tables) == 0 {
		return nil
	}
	acc := tables[0]
	for _, t := range tables[1:] {
		acc.MergeFrom(t)
	}
	return acc
}
