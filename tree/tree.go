/*package tree provides the spatial index the coupling engine walks to find
receptor candidates near a source. Candidates are tagged with the rank that
owns them; traversals are resumable so a pass can pick up where it left off
after handling a batch of remote regions.
*/
package tree

import (
	"errors"

	"github.com/phil-mansfield/gomech/geom"
)

// Candidate is an ephemeral reference to a receptor: the rank that owns it
// and its index within that rank's receptor slice.
type Candidate struct {
	Rank, Index int
}

// Cursor marks a position within a partially completed traversal. The zero
// Cursor starts a fresh traversal.
type Cursor struct {
	n int
}

// ErrIndex reports an invalid result from the underlying index (the analogue
// of a negative neighbor count). It is fatal for the current step.
var ErrIndex = errors.New("tree: invalid index state")

// Index enumerates receptor candidates within a search radius of a point.
//
// Query resumes from cur and returns one batch of candidates along with the
// cursor for the next batch. done reports exhaustion; it is distinct from an
// error return, which is always fatal for the step. The same (center, radius)
// must be passed for every resumption of a traversal.
type Index interface {
	Query(center *geom.Vec, radius float64, cur Cursor) (
		cands []Candidate, next Cursor, done bool, err error,
	)
}
