package database

import (
	"bytes"
)

var separator = []byte("/")

// Key is a full database key made of a bucket path and a record key. Stores
// backed by a flat key space use it to keep record kinds apart.
type Key struct {
	prefix, key []byte
}

// FullKey returns the bucket path followed by the record key.
func (k *Key) FullKey() []byte {
	keyPath := make([]byte, len(k.prefix)+len(k.key))
	copy(keyPath, k.prefix)
	copy(keyPath[len(k.prefix):], k.key)
	return keyPath
}

// Bucket names a group of records, such as headers or chain metadata.
type Bucket struct {
	path [][]byte
}

// MakeBucket returns the bucket with the given path.
func MakeBucket(path ...[]byte) *Bucket {
	return &Bucket{path: path}
}

// Key returns the key of a record inside the bucket.
func (b *Bucket) Key(key []byte) *Key {
	return &Key{prefix: b.prefix(), key: key}
}

// prefix returns the bucket path joined by separators, with a trailing
// separator so no bucket is a prefix of a sibling.
func (b *Bucket) prefix() []byte {
	return append(bytes.Join(b.path, separator), separator...)
}
