package driver

import "errors"

// ErrKeyNotFound returned by KeyValueDB.Get when the key is absent
var ErrKeyNotFound = errors.New("key not found")

// IsUniqueViolation reports whether err was raised by a unique or primary key
// constraint, whichever driver produced it
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return isMySQLDuplicate(err) || isPGUniqueViolation(err) || isSQLiteDuplicate(err)
}
