package payments

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTransactionID returns a display id such as txn_20260501120000_3f2a9c1b7d4e.
// Failed attempts get ids as unique as successful ones.
func NewTransactionID(prefix string) string {
	return prefix + "_" + time.Now().UTC().Format("20060102150405") + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// randHex returns 2*nBytes lowercase hex characters. crypto/rand.Read does
// not return an error since Go 1.24; it aborts the process instead.
func randHex(nBytes int) string {
	b := make([]byte, nBytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
