package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Transaction attribute slots, as defined by the ledger. The stage attribute
// carries a 2-byte tag, the claimant attribute a 20-byte address. The asset
// id lives in one of two slots depending on its category.
const (
	AttrUsageClaimant    byte = 0x20
	AttrUsageTokenAsset  byte = 0x21
	AttrUsageNativeAsset byte = 0x22
	AttrUsageStage       byte = 0xa1
)

// Stage tag bytes carried in the first byte of the stage attribute data.
const (
	stageTagMark     byte = 0x50
	stageTagWithdraw byte = 0x51
	stageTagTransfer byte = 0x52
)

type WithdrawalStage int

const (
	StageNone WithdrawalStage = iota
	StageMark
	StageWithdraw
	StageTransfer
)

func (s WithdrawalStage) String() string {
	switch s {
	case StageMark:
		return "mark"
	case StageWithdraw:
		return "withdraw"
	case StageTransfer:
		return "transfer"
	default:
		return "none"
	}
}

// StageFromTag decodes the stage attribute data. Anything unrecognized maps
// to StageNone, which downstream treats as "no valid claim".
func StageFromTag(data []byte) WithdrawalStage {
	if len(data) == 0 {
		return StageNone
	}
	switch data[0] {
	case stageTagMark:
		return StageMark
	case stageTagWithdraw:
		return StageWithdraw
	case stageTagTransfer:
		return StageTransfer
	default:
		return StageNone
	}
}

type Outpoint struct {
	Txid string
	VOut uint32
}

func (k *Outpoint) FromString(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return fmt.Errorf("invalid outpoint string: %s", s)
	}
	k.Txid = parts[0]
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid vout string: %s", parts[1])
	}
	k.VOut = uint32(vout)
	return nil
}

func (k Outpoint) String() string {
	return fmt.Sprintf("%s:%d", k.Txid, k.VOut)
}

type Attribute struct {
	Usage byte
	Data  []byte
}

type TxOutput struct {
	AssetID   string // hex-encoded
	Amount    uint64
	Recipient string // hex-encoded address
}

// CandidateTx is the read-only view of a transaction proposed by the ledger.
// Inputs reference prior outputs; the ledger resolves them and enforces that
// referenced value equals declared output value, which verification
// double-checks.
type CandidateTx struct {
	Txid       string
	Attributes []Attribute
	Inputs     []Outpoint
	Outputs    []TxOutput
}

// Attribute returns the data of the first attribute with the given usage,
// or nil if absent.
func (t CandidateTx) Attribute(usage byte) []byte {
	for _, attr := range t.Attributes {
		if attr.Usage == usage {
			return attr.Data
		}
	}
	return nil
}

func (t CandidateTx) TotalOut() uint64 {
	var sum uint64
	for _, out := range t.Outputs {
		sum += out.Amount
	}
	return sum
}
