// Package storage lays out a profile's directories and writes downloaded
// media into them.
//
// Layout (default root "users"):
//
//	users/<name>/stories/<02-January-2006>/<file>
//	users/<name>/stories/<file>                 chaos mode
//	users/<name>/highlights/<title>_<id>/<file>
//
// Duplicate detection is by file name only. Store.Exists rescans the scope
// directory on every call so files added during a run are seen.
package storage
