package domain

const (
	EventTopicWithdrawing = "faucet.withdrawing"
	EventTopicWithdrawn   = "faucet.withdrawn"
)

type Event interface {
	Topic() string
}

// Withdrawing is emitted when a Mark commits: the claimant has locked a
// rate-limit slot for amount units of the asset.
type Withdrawing struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	AssetID   string `json:"asset_id"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

func (e Withdrawing) Topic() string { return EventTopicWithdrawing }

// Withdrawn is emitted when a Withdraw or Transfer commits and value has
// actually moved to the claimant.
type Withdrawn struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	AssetID   string `json:"asset_id"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

func (e Withdrawn) Topic() string { return EventTopicWithdrawn }
