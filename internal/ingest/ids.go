package ingest

import (
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
	"github.com/minio/highwayhash"
)

// pageHashKey is fixed so hashes stay comparable across runs.
var pageHashKey = []byte("eidrag-page-content-hash-key-v01")

// PageHash returns the hex digest of a page's extracted text.
func PageHash(text string) string {
	sum := highwayhash.Sum([]byte(text), pageHashKey)
	return hex.EncodeToString(sum[:])
}

// PointID returns the stable identifier of chunk index of url.
func PointID(url string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url+"#chunk="+strconv.Itoa(index))).String()
}
