package wire

import (
	"strconv"
	"strings"
)

// Server version thresholds
const (
	// MinVersion is the oldest server version this transport talks to
	MinVersion = "2.3.6"

	// MinVersionFullUnicode is the first server version that stores
	// supplemental-plane codepoints without corrupting them
	MinVersionFullUnicode = "2.18.0"
)

// DescriptorVersion is the repository descriptor key carrying the server
// version
const DescriptorVersion = "jcr.repository.version"

// CompareVersions compares two dotted server version strings numerically,
// segment by segment. A -SNAPSHOT suffix is ignored. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as := versionSegments(a)
	bs := versionSegments(b)
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	}
	return 0
}

func versionSegments(v string) []int {
	v, _, _ = strings.Cut(v, "-")
	parts := strings.Split(v, ".")
	segments := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		segments = append(segments, n)
	}
	return segments
}
