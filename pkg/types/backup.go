package types

import (
	"encoding/json"
	"strings"
)

// BackupKeyPrefix starts every backup key. The rest of the key is a
// timestamp whose layout sorts lexically in creation order.
const BackupKeyPrefix = "backup_"

// BackupTypeAuto tags records created by the scheduled trigger.
const BackupTypeAuto = "auto"

// BackupRecord is a point-in-time copy of both collections.
type BackupRecord struct {
	Key        string     `json:"-"`
	Categories []Category `json:"categories"`
	Links      []Link     `json:"links"`
	Timestamp  string     `json:"timestamp"`
	Type       string     `json:"type,omitempty"`
}

// BackupKey returns the store key for a backup taken at timestamp.
func BackupKey(timestamp string) string {
	return BackupKeyPrefix + timestamp
}

// IsBackupKey reports whether key names a backup record.
func IsBackupKey(key string) bool {
	return strings.HasPrefix(key, BackupKeyPrefix) && len(key) > len(BackupKeyPrefix)
}

// RestorePayload is a caller-supplied snapshot. Both fields are written to
// the store verbatim.
type RestorePayload struct {
	Categories json.RawMessage `json:"categories"`
	Links      json.RawMessage `json:"links"`
}
