package diff

// Row is one line of a side-by-side rendering. Removed lines only ever appear
// in Old, added lines only in New, unchanged lines in both.
type Row struct {
	Old *Line
	New *Line
}

// Rows returns the side-by-side alignment of the result. Within a change
// block, removed and added lines share rows pairwise.
func (r Result) Rows() []Row {
	out := make([]Row, len(r.rows))
	copy(out, r.rows)
	return out
}

func pairRows(old, new []Line) []Row {
	n := len(old)
	if len(new) > n {
		n = len(new)
	}
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		var row Row
		if i < len(old) {
			l := old[i]
			row.Old = &l
		}
		if i < len(new) {
			l := new[i]
			row.New = &l
		}
		rows = append(rows, row)
	}
	return rows
}
