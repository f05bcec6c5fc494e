package trace

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeTraceHash returns the sha256 hex digest of a canonical trace
// encoding (ExecutionTrace.CanonicalJSON output). Stable across runs of
// the same task file producing the same routing decisions, which is the
// point: two runs with an identical trace hash took an identical path.
func ComputeTraceHash(canonicalEncoding []byte) string {
	if len(canonicalEncoding) == 0 {
		return ""
	}
	sum := sha256.Sum256(canonicalEncoding)
	return hex.EncodeToString(sum[:])
}
