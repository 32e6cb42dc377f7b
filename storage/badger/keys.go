package badger

import (
	"encoding/binary"

	"github.com/poiesic/fundlens/core"
)

// Key prefixes for different data types. Every prefix ends in ':' so no
// prefix is a prefix of another.
const (
	documentPrefix          = "doc:"
	documentFundPrefix      = "docfund:"
	ledgerPrefix            = "txn:"
	ledgerFundPrefix        = "txnfund:"
	ledgerDocumentPrefix    = "txndoc:"
	embeddingPrefix         = "emb:"
	embeddingVectorPrefix   = "embvec:"
	embeddingDocumentPrefix = "embdoc:"
	embeddingFundPrefix     = "embfund:"

	documentIDSeq  = "seq:doc"
	ledgerIDSeq    = "seq:txn"
	embeddingIDSeq = "seq:emb"

	schemaDimensionsKey = "meta:embedding_dims"
)

// makeKey appends big-endian IDs to prefix so keys sort by ID.
// Format: prefix + 8 bytes per ID
func makeKey(prefix string, ids ...core.ID) []byte {
	buf := make([]byte, len(prefix)+8*len(ids))
	offset := copy(buf, prefix)
	for _, id := range ids {
		binary.BigEndian.PutUint64(buf[offset:], uint64(id))
		offset += 8
	}
	return buf
}

// idFromKey reads the trailing ID of a composite key.
func idFromKey(key []byte) core.ID {
	if len(key) < 8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

func makeDocumentKey(id core.ID) []byte {
	return makeKey(documentPrefix, id)
}

// Format: prefix:fundID:documentID
func makeDocumentFundKey(fundID, documentID core.ID) []byte {
	return makeKey(documentFundPrefix, fundID, documentID)
}

func makeLedgerKey(id core.ID) []byte {
	return makeKey(ledgerPrefix, id)
}

// Format: prefix:fundID:entryID
func makeLedgerFundKey(fundID, entryID core.ID) []byte {
	return makeKey(ledgerFundPrefix, fundID, entryID)
}

// Format: prefix:documentID:entryID
func makeLedgerDocumentKey(documentID, entryID core.ID) []byte {
	return makeKey(ledgerDocumentPrefix, documentID, entryID)
}

func makeEmbeddingKey(id core.ID) []byte {
	return makeKey(embeddingPrefix, id)
}

func makeEmbeddingVectorKey(id core.ID) []byte {
	return makeKey(embeddingVectorPrefix, id)
}

// Format: prefix:documentID:embeddingID
func makeEmbeddingDocumentKey(documentID, embeddingID core.ID) []byte {
	return makeKey(embeddingDocumentPrefix, documentID, embeddingID)
}

// Format: prefix:fundID:embeddingID
func makeEmbeddingFundKey(fundID, embeddingID core.ID) []byte {
	return makeKey(embeddingFundPrefix, fundID, embeddingID)
}
