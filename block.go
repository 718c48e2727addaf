package car

import "github.com/ipfs/go-cid"

// Block is a single (CID, bytes) pair as read from or written to a CAR
// section. Every reader surface that materializes Bytes validates it
// against Cid unless Options.TrustedCAR is set; call ValidateBlock
// explicitly for a Block built some other way (e.g. by the Writer).
type Block struct {
	Cid   cid.Cid
	Bytes []byte
}
