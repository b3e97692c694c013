package blockstore

import "encoding/binary"

// Bucket names, each namespacing a concern of the storage layer the way
// the teacher's dagio.go namespaces utxoDiffsBucketName /
// reachabilityDataBucketName / subnetworksBucketName.
var (
	bucketBlockInfo  = []byte("blockinfo")
	bucketBlockBytes = []byte("blockbytes")
	bucketHeights    = []byte("heights")
	bucketMeta       = []byte("meta")
	bucketTxDesc     = []byte("txdesc")
	bucketPoolTx     = []byte("pooltx")
	bucketPoolSeq    = []byte("poolseq")
)

var metaBestBlockKey = []byte("bestblockhash")
var metaPoolSeqCounterKey = []byte("poolseqcounter")

// heightKey encodes height as a big-endian 4-byte key so that a bucket
// cursor visits heights in ascending order, mirroring the teacher's
// BlockIndexKey convention of putting the order-significant field first.
func heightKey(height uint32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, height)
	return key
}

func heightFromKey(key []byte) uint32 {
	return binary.BigEndian.Uint32(key)
}

// poolSeqKey encodes a pool insertion sequence number as a big-endian
// 8-byte key, so a cursor over bucketPoolSeq visits entries in
// insertion order (oldest first).
func poolSeqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
