package contentkit

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ETag computes the entity tag of stored bytes. Two entries with the same
// content, size and modification time share an ETag.
func ETag(data []byte, modTime time.Time) string {
	h := xxhash.New()
	_, _ = h.Write(data)
	_, _ = h.WriteString(strconv.FormatInt(modTime.UnixNano(), 36))
	return strconv.FormatUint(h.Sum64(), 16) + "-" + strconv.FormatInt(int64(len(data)), 16)
}

// CheckETag fails with ErrModified when md was obtained for a different
// version of the entry than the one currently stored.
func CheckETag(md *Metadata, current string) error {
	if md == nil || md.ETag == "" || md.ETag == current {
		return nil
	}
	return NewURIError("setcontent", md.URI, ErrModified)
}
