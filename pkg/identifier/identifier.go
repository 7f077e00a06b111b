// Package identifier generates time-ordered item identifiers and maps
// them to sharded on-disk paths.
//
// Identifiers are snowflake-style 64-bit integers carrying a custom
// epoch, a node discriminator and a per-millisecond sequence, so IDs
// generated by one Service are unique and strictly increasing even
// under concurrent calls. Top-level items are bucketed into
// year/month directories decoded from the ID's timestamp; comment and
// carousel sub-entry identifiers already contain path separators and
// pass through unchanged.
package identifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Epoch is the generator epoch: 2025-01-01 00:00:00 UTC in Unix
// milliseconds. Changing it invalidates the sharding of every stored
// item, so it is a constant rather than configuration.
const Epoch int64 = 1735689600000

// Service produces identifiers and converts between identifiers and
// sharded paths. Safe for concurrent use.
type Service struct {
	node *snowflake.Node
}

// NewService creates a Service whose IDs carry the given node
// discriminator (0-1023). Each concurrently writing process must use a
// distinct node to keep IDs globally unique.
func NewService(node int64) (*Service, error) {
	snowflake.Epoch = Epoch

	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("failed to create ID generator: %w", err)
	}

	return &Service{node: n}, nil
}

// Generate returns a new unique identifier. IDs returned by successive
// calls on the same Service compare strictly increasing as integers
// (and as equal-length decimal strings).
func (s *Service) Generate() string {
	return s.node.Generate().String()
}

// Timestamp decodes the creation time embedded in a bare numeric
// identifier. Returns false for identifiers that are not numeric
// snowflakes (e.g. nested comment IDs).
func (s *Service) Timestamp(id string) (time.Time, bool) {
	return decodeTimestamp(id)
}

// ToPath expands a bare numeric identifier into its sharded
// year/month/id storage path. Identifiers that already contain path
// separators, or that are not numeric, are returned unchanged: those
// are comment or sub-entry identifiers whose location is fixed by
// their parent.
func (s *Service) ToPath(id string) string {
	if strings.Contains(id, "/") || !isNumeric(id) {
		return id
	}

	ts, ok := decodeTimestamp(id)
	if !ok {
		return id
	}

	// Month is deliberately unpadded ("2025/3/…"): the layout predates
	// this implementation and existing trees must keep resolving.
	return fmt.Sprintf("%d/%d/%s", ts.Year(), int(ts.Month()), id)
}

// FromPath collapses a sharded year/month/id path back to the bare
// identifier. Anything that is not a 3-segment all-numeric path passes
// through unchanged, so comment paths like "123/456" keep working as
// identifiers in their own right.
func (s *Service) FromPath(path string) string {
	toks := strings.Split(path, "/")
	if len(toks) == 3 && isNumeric(strings.Join(toks, "")) {
		return toks[2]
	}
	return path
}

func decodeTimestamp(id string) (time.Time, bool) {
	if !isNumeric(id) {
		return time.Time{}, false
	}

	parsed, err := snowflake.ParseString(id)
	if err != nil {
		return time.Time{}, false
	}

	ms := parsed.Time()
	return time.UnixMilli(ms).UTC(), true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
