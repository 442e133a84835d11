package merge

import "time"

// SetNow overrides the executor's clock for tests in the external test package.
func SetNow(x *Executor, now func() time.Time) {
	x.now = now
}
