package blockstore

import (
	"bytes"
	"encoding/json"

	"github.com/ledgerforge/chaincore/chainstate"
	"github.com/ledgerforge/chaincore/wire"
	"github.com/pkg/errors"
)

// Metadata records (BlockInfo, TransactionDescriptor) are serialized as
// JSON, the same choice the teacher makes for its own small aggregate
// metadata record (dagio.go's serializeDAGState/deserializeDAGState).
// Bulk payloads (block bytes, pool transaction bytes) use the wire
// binary codec, matching dbStoreBlock's use of block.Bytes().

func serializeBlockInfo(info *chainstate.BlockInfo) ([]byte, error) {
	return json.Marshal(info)
}

func deserializeBlockInfo(data []byte) (*chainstate.BlockInfo, error) {
	var info chainstate.BlockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errors.Wrap(err, "corrupt block info")
	}
	return &info, nil
}

func serializeTransactionDescriptor(desc *chainstate.TransactionDescriptor) ([]byte, error) {
	return json.Marshal(desc)
}

func deserializeTransactionDescriptor(data []byte) (*chainstate.TransactionDescriptor, error) {
	var desc chainstate.TransactionDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, errors.Wrap(err, "corrupt transaction descriptor")
	}
	if desc.SpentBy == nil {
		desc.SpentBy = make(map[uint32]wire.OutPoint)
	}
	return &desc, nil
}

func serializeBlock(block *wire.MsgBlock) ([]byte, error) {
	return block.Bytes()
}

func deserializeBlock(data []byte) (*wire.MsgBlock, error) {
	return wire.BlockFromBytes(data)
}

func serializeTx(tx *wire.MsgTx) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeTx(data []byte) (*wire.MsgTx, error) {
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return &tx, nil
}
