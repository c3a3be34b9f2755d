package util

import "strconv"

// Key layout: <ns>:page:<pageKey> / <ns>:ts:<pageKey> / <ns>:version.
// The ts value is decimal epoch millis; anything unparsable is treated as an
// entry without a timestamp.

func ContentKey(ns, page string) string { return ns + ":page:" + page }
func StampKey(ns, page string) string   { return ns + ":ts:" + page }
func VersionKey(ns string) string       { return ns + ":version" }

func ContentPrefix(ns string) string { return ns + ":page:" }
func StampPrefix(ns string) string   { return ns + ":ts:" }
func Prefix(ns string) string        { return ns + ":" }

// PageFromStampKey recovers the page key from a full ts storage key.
// ok=false when the key does not carry the expected prefix.
func PageFromStampKey(ns, key string) (string, bool) {
	p := StampPrefix(ns)
	if len(key) <= len(p) || key[:len(p)] != p {
		return "", false
	}
	return key[len(p):], true
}

// FormatMillis renders an epoch-millis timestamp the way it is persisted.
func FormatMillis(ms int64) string { return strconv.FormatInt(ms, 10) }

// ParseMillis parses a persisted timestamp value. ok=false marks the entry as
// having no usable timestamp (never fresh, excluded from eviction scoring).
func ParseMillis(s string) (int64, bool) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
