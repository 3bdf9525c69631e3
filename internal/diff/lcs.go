package diff

// edit is one step of an edit script. a and b index into the old and new
// line slices; only the index relevant to kind is meaningful.
type edit struct {
	kind Kind
	a, b int
}

// editScript returns a shortest edit script turning a into b. The unchanged
// steps form a longest common subsequence of a and b (Myers, O(ND)).
// Within a change block removals are emitted before additions.
func editScript(a, b []string) []edit {
	// Common prefix and suffix never take part in the search.
	pre := 0
	for pre < len(a) && pre < len(b) && a[pre] == b[pre] {
		pre++
	}
	suf := 0
	for suf < len(a)-pre && suf < len(b)-pre && a[len(a)-1-suf] == b[len(b)-1-suf] {
		suf++
	}

	script := make([]edit, 0, len(a)+len(b))
	for i := 0; i < pre; i++ {
		script = append(script, edit{kind: KindUnchanged, a: i, b: i})
	}
	script = append(script, myers(a[pre:len(a)-suf], b[pre:len(b)-suf], pre)...)
	for i := 0; i < suf; i++ {
		script = append(script, edit{kind: KindUnchanged, a: len(a) - suf + i, b: len(b) - suf + i})
	}
	return script
}

// myers diffs the trimmed middle section; off is added to every index so the
// result addresses the untrimmed slices.
func myers(a, b []string, off int) []edit {
	n, m := len(a), len(b)
	switch {
	case n == 0 && m == 0:
		return nil
	case n == 0:
		out := make([]edit, m)
		for j := range b {
			out[j] = edit{kind: KindAdded, b: off + j}
		}
		return out
	case m == 0:
		out := make([]edit, n)
		for i := range a {
			out[i] = edit{kind: KindRemoved, a: off + i}
		}
		return out
	}

	max := n + m
	offset := max + 1
	v := make([]int, 2*max+3)
	var trace [][]int

search:
	for d := 0; d <= max; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				break search
			}
		}
	}

	// Walk the trace backwards to recover the path.
	rev := make([]edit, 0, n+m)
	x, y := n, m
	for d := len(trace) - 1; d >= 0; d-- {
		vd := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && vd[offset+k-1] < vd[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := vd[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			rev = append(rev, edit{kind: KindUnchanged, a: off + x - 1, b: off + y - 1})
			x--
			y--
		}
		if d > 0 {
			if x == prevX {
				rev = append(rev, edit{kind: KindAdded, b: off + y - 1})
			} else {
				rev = append(rev, edit{kind: KindRemoved, a: off + x - 1})
			}
		}
		x, y = prevX, prevY
	}

	out := make([]edit, len(rev))
	for i := range rev {
		out[i] = rev[len(rev)-1-i]
	}
	return normalizeBlocks(out)
}

// normalizeBlocks reorders each run of consecutive changes so that all
// removals come before all additions while keeping their relative order.
func normalizeBlocks(script []edit) []edit {
	out := make([]edit, 0, len(script))
	var adds []edit
	for _, e := range script {
		switch e.kind {
		case KindRemoved:
			out = append(out, e)
		case KindAdded:
			adds = append(adds, e)
		default:
			out = append(out, adds...)
			adds = adds[:0]
			out = append(out, e)
		}
	}
	return append(out, adds...)
}
