package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/enricher/core"
)

// Key prefixes for different data types
const (
	documentPrefix       = "docrec"
	documentStatusPrefix = "docsta"
	checkpointPrefix     = "chkpt"
)

// statusCodes gives each status a one-byte tag for the status index.
var statusCodes = map[core.EnrichmentStatus]byte{
	core.StatusAwaiting:   1,
	core.StatusInProgress: 2,
	core.StatusDone:       3,
	core.StatusFailed:     4,
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeStatusKey generates a composite key for the status index.
// Format: prefix:status:discoveredAt:id
// Iterating one status prefix yields documents oldest-discovered first.
func makeStatusKey(status core.EnrichmentStatus, discoveredAt time.Time, id core.ID) []byte {
	prefix := makeStatusPrefix(status)
	buf := make([]byte, len(prefix)+16) // 8 bytes for timestamp + 8 bytes for ID
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(discoveredAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeStatusPrefix generates the partial key shared by one status.
// Format: prefix:status:
func makeStatusPrefix(status core.EnrichmentStatus) []byte {
	buf := make([]byte, 0, len(documentStatusPrefix)+3)
	buf = append(buf, documentStatusPrefix...)
	buf = append(buf, ':', statusCodes[status], ':')
	return buf
}

// idFromStatusKey extracts the document ID from a status index key.
func idFromStatusKey(key []byte) (core.ID, bool) {
	if len(key) < 8 {
		return 0, false
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:])), true
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointPrefix, name))
}
