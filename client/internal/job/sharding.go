package job

import (
	"hash/fnv"
	"strconv"
)

// labelBuckets bounds the cardinality of per-kid metric labels.
const labelBuckets = 32

// ShardLabel maps a kid ID to one of labelBuckets stable metric labels.
func ShardLabel(kidID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(kidID))
	return strconv.FormatUint(uint64(h.Sum32()%labelBuckets), 10)
}
