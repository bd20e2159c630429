// Package format defines the on-disk layout of a typedq log file: the two
// header slots, the framed records that follow them, and the optional snappy
// compression of record payloads. Headers and records are both protected by
// CRC32C.
package format

import "hash/crc32"

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// ComputeCRC32C returns the Castagnoli CRC of data. Headers checksum their
// leading bytes; records checksum the length, flags and payload.
func ComputeCRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}
