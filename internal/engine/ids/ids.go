// Package ids generates the process-wide identifiers used for graphs,
// module instances, and locally-created nodes before a remote id is
// known (spec.md §3, §4.4). Monotonic and lexicographically sortable,
// matching the oklog/ulid convention already pulled in for other
// identifiers in this dependency set.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// entropy is shared and mutex-guarded; ulid.ULID generation is not
// safe for concurrent use against a single io.Reader otherwise.
var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh ulid-based identifier string.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// GraphID, ModuleID and LocalNodeName are documentation aliases for
// New's return value at each call site (spec.md §3's graph id, §4.4's
// module instance id, and the label-to-name mapping §4.6 assigns
// before any remote id exists). All three share the same format.
func GraphID() string     { return New() }
func ModuleID() string    { return New() }
func LocalNodeName() string { return New() }
