package matrix

import (
	"log/slog"

	"github.com/gagliardetto/solana-go"
)

// SlotFilled is emitted every time a user lands in a matrix slot,
// including slots filled during upline settlement.
type SlotFilled struct {
	SlotIndex uint8
	ChainID   uint32
	User      solana.PublicKey
	Owner     solana.PublicKey
}

// EventSink receives placement events. Implementations must not
// mutate ledger state; events fire before the transaction commits and
// are advisory only.
type EventSink interface {
	SlotFilled(e SlotFilled)
}

type slogSink struct {
	log *slog.Logger
}

// NewLogSink returns an EventSink that writes events to the logger.
func NewLogSink(log *slog.Logger) EventSink {
	return &slogSink{log: log}
}

func (s *slogSink) SlotFilled(e SlotFilled) {
	s.log.Info("slot filled",
		"slot", e.SlotIndex,
		"chain_id", e.ChainID,
		"user", e.User,
		"owner", e.Owner,
	)
}

type nopSink struct{}

func (nopSink) SlotFilled(SlotFilled) {}
