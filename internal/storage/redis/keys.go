package redis

import "github.com/mcoot/securechat-go/internal/model"

// Key prefixes for all stored data
const (
	identityPrefix  = "sc:identity:"
	nameIndexPrefix = "sc:name_index:"
	markerPrefix    = "sc:conn_marker:"
	auditKey        = "sc:audit_log"
)

func identityKey(name model.Username) string {
	return identityPrefix + string(name)
}

// nameIndexKey is keyed on the folded (lowercase) name so uniqueness
// checks are case-insensitive
func nameIndexKey(name model.Username) string {
	return nameIndexPrefix + name.Fold()
}

func markerKey(name model.Username) string {
	return markerPrefix + string(name)
}
