package matrix

import (
	"github.com/gagliardetto/solana-go"
)

// fillSlot places userKey into the owner's next open slot and reports
// which slot was filled and whether that completed the matrix. On
// completion the chain resets in place under a fresh ID from the
// global counter; the completed slots are not retained.
func (e *Engine) fillSlot(st *ProgramState, ownerKey solana.PublicKey, owner *UserAccount, userKey solana.PublicKey) (slotIdx uint8, completed bool) {
	slotIdx = owner.Chain.FilledSlots
	key := userKey
	owner.Chain.Slots[slotIdx] = &key
	owner.Chain.FilledSlots++

	e.sink.SlotFilled(SlotFilled{
		SlotIndex: slotIdx,
		ChainID:   owner.Chain.ID,
		User:      userKey,
		Owner:     ownerKey,
	})
	e.metrics.ObserveSlotFill(slotIdx)

	if owner.Chain.FilledSlots == 3 {
		owner.Chain.ID = st.NextChainID
		st.NextChainID++
		owner.Chain.Slots = [3]*solana.PublicKey{}
		owner.Chain.FilledSlots = 0
		e.metrics.ObserveCompletion()
		return slotIdx, true
	}
	return slotIdx, false
}
