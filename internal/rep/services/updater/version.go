package updater

import (
	"strconv"
	"strings"
)

// newerVersion reports whether remote is strictly newer than local.
// Both strings are stripped of prefix, then compared numerically segment by
// segment; missing segments are implicitly zero. Non-numeric segments
// compare as zero.
func newerVersion(remote, local, prefix string) bool {
	if local == "" {
		return remote != ""
	}
	r := splitSegments(remote, prefix)
	l := splitSegments(local, prefix)

	n := len(r)
	if len(l) > n {
		n = len(l)
	}
	for i := 0; i < n; i++ {
		rv := segmentAt(r, i)
		lv := segmentAt(l, i)
		if rv != lv {
			return rv > lv
		}
	}
	return false
}

func splitSegments(v, prefix string) []int {
	v = strings.TrimPrefix(v, prefix)
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}

func segmentAt(segs []int, i int) int {
	if i < len(segs) {
		return segs[i]
	}
	return 0
}
