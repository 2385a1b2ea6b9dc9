package domain

// RequiredColumn is a column a compiled query needs to read, spelled the way
// the query spelled it.
type RequiredColumn struct {
	Name string
}

// ProjectionList is the ordered list of storage column names to request from
// a scan, one per RequiredColumn.
type ProjectionList []string

// RequiredColumnsFromNames builds a required column list in the given order.
func RequiredColumnsFromNames(names ...string) []RequiredColumn {
	cols := make([]RequiredColumn, len(names))
	for i, n := range names {
		cols[i] = RequiredColumn{Name: n}
	}
	return cols
}
