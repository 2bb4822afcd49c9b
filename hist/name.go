package hist

import (
	"strconv"
	"sync/atomic"
)

var counter atomic.Uint64

// UniqueName returns prefix followed by a process-wide, strictly
// increasing suffix.
func UniqueName(prefix string) string {
	return prefix + "_" + strconv.FormatUint(counter.Add(1), 10)
}
