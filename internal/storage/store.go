// Package storage provides the durable key-value persistence backing the
// authentication session and, in the simulated backend, the user directory.
package storage

// Storage keys. Each value is a single JSON-encoded document.
const (
	KeySession = "auth.session"
	KeyUsers   = "auth.users"
)

// Store is durable key-value persistence. Get reports found=false for a
// missing key. Implementations must tolerate concurrent use.
type Store interface {
	Get(key string) (value []byte, found bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
}
