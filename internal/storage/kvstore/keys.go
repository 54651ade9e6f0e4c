package kvstore

import "encoding/binary"

// Key layout:
//
//	rec/<kind>/<id BE64>                 JSON record
//	idx/rally/<rally BE64><entry BE64>  empty, timing entries per rally
//	seq/<kind>                           badger sequence lease
const (
	recPrefix      = "rec/"
	rallyIdxPrefix = "idx/rally/"
	seqPrefix      = "seq/"
)

func kindPrefix(kind string) []byte {
	return []byte(recPrefix + kind + "/")
}

func recordKey(kind string, id int64) []byte {
	return binary.BigEndian.AppendUint64(kindPrefix(kind), uint64(id))
}

func rallyIndexPrefix(rallyID int64) []byte {
	return binary.BigEndian.AppendUint64([]byte(rallyIdxPrefix), uint64(rallyID))
}

func rallyIndexKey(rallyID, entryID int64) []byte {
	return binary.BigEndian.AppendUint64(rallyIndexPrefix(rallyID), uint64(entryID))
}

// entryIDFromIndexKey reads the trailing entry id of a rally index key.
func entryIDFromIndexKey(key []byte) int64 {
	return int64(binary.BigEndian.Uint64(key[len(key)-8:]))
}
