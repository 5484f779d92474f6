package matrix

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/donutlabs/matrix/config"
	"github.com/donutlabs/matrix/ledger"
)

// Account discriminators follow the Anchor convention: the first 8
// bytes of sha256("account:<Name>") prefix every record.
var (
	ProgramStateDiscriminator = accountDiscriminator("ProgramState")
	UserAccountDiscriminator  = accountDiscriminator("UserAccount")
)

func accountDiscriminator(name string) [8]byte {
	h := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], h[:8])
	return d
}

// ProgramState is the singleton created at initialization.
// On-chain size: 8 (discriminator) + 81 bytes.
type ProgramState struct {
	Owner            solana.PublicKey // 32
	MultisigTreasury solana.PublicKey // 32
	NextUplineID     uint32           // 4
	NextChainID      uint32           // 4

	// Airdrop ledger lifecycle. One-way: once AirdropActive flips to
	// false it never flips back.
	AirdropActive        bool  // 1
	AirdropDeactivatedAt int64 // 8
}

const ProgramStateSize = 32 + 32 + 4 + 4 + 1 + 8

// UplineEntry is one stored ancestor: the ancestor's program account
// and the wallet that owns it.
type UplineEntry struct {
	PDA    solana.PublicKey
	Wallet solana.PublicKey
}

// ReferralUpline is the capped ancestor list copied from the referrer
// at registration time. Append-only; never mutated afterwards.
type ReferralUpline struct {
	ID      uint32
	Depth   uint8
	Entries []UplineEntry
}

// ReferralChain is the 3-slot matrix. Slots fill left to right; when
// FilledSlots reaches 3 the chain resets in place under a fresh ID.
type ReferralChain struct {
	ID          uint32
	Slots       [3]*solana.PublicKey
	FilledSlots uint8
}

// UserAccount is one registered participant.
// On-chain size: 8 (discriminator) + 562 bytes.
type UserAccount struct {
	IsRegistered bool              // 1
	Referrer     *solana.PublicKey // 1 + 32
	OwnerWallet  solana.PublicKey  // 32
	Upline       ReferralUpline    // 4 + 1 + 4 + n*64
	Chain        ReferralChain     // 4 + 3*33 + 1
	ReservedSol  uint64            // 8
}

const UserAccountSize = 1 +
	1 + 32 +
	32 +
	4 + 1 + 4 + config.MaxUplineDepth*(32+32) +
	4 + 3*(1+32) + 1 +
	8

func (s *ProgramState) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(ProgramStateDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	if err := enc.Encode(s.Owner); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.MultisigTreasury); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.NextUplineID); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.NextChainID); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.AirdropActive); err != nil {
		return nil, err
	}
	if err := enc.Encode(s.AirdropDeactivatedAt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func UnmarshalProgramState(data []byte) (*ProgramState, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("program state account too small: %d bytes", len(data))
	}
	if !bytes.Equal(data[:8], ProgramStateDiscriminator[:]) {
		return nil, fmt.Errorf("not a program state account")
	}
	dec := bin.NewBorshDecoder(data[8:])
	var s ProgramState
	if err := dec.Decode(&s.Owner); err != nil {
		return nil, err
	}
	if err := dec.Decode(&s.MultisigTreasury); err != nil {
		return nil, err
	}
	if err := dec.Decode(&s.NextUplineID); err != nil {
		return nil, err
	}
	if err := dec.Decode(&s.NextChainID); err != nil {
		return nil, err
	}
	if err := dec.Decode(&s.AirdropActive); err != nil {
		return nil, err
	}
	if err := dec.Decode(&s.AirdropDeactivatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (u *UserAccount) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(UserAccountDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	if err := enc.Encode(u.IsRegistered); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(u.Referrer != nil); err != nil {
		return nil, err
	}
	if u.Referrer != nil {
		if err := enc.Encode(*u.Referrer); err != nil {
			return nil, err
		}
	}
	if err := enc.Encode(u.OwnerWallet); err != nil {
		return nil, err
	}
	if err := enc.Encode(u.Upline.ID); err != nil {
		return nil, err
	}
	if err := enc.Encode(u.Upline.Depth); err != nil {
		return nil, err
	}
	if err := enc.Encode(u.Upline.Entries); err != nil {
		return nil, err
	}
	if err := enc.Encode(u.Chain.ID); err != nil {
		return nil, err
	}
	for _, slot := range u.Chain.Slots {
		if err := enc.WriteBool(slot != nil); err != nil {
			return nil, err
		}
		if slot != nil {
			if err := enc.Encode(*slot); err != nil {
				return nil, err
			}
		}
	}
	if err := enc.Encode(u.Chain.FilledSlots); err != nil {
		return nil, err
	}
	if err := enc.Encode(u.ReservedSol); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func UnmarshalUserAccount(data []byte) (*UserAccount, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("user account too small: %d bytes", len(data))
	}
	if !bytes.Equal(data[:8], UserAccountDiscriminator[:]) {
		return nil, fmt.Errorf("not a user account")
	}
	dec := bin.NewBorshDecoder(data[8:])
	var u UserAccount
	if err := dec.Decode(&u.IsRegistered); err != nil {
		return nil, err
	}
	hasReferrer, err := dec.ReadBool()
	if err != nil {
		return nil, err
	}
	if hasReferrer {
		var referrer solana.PublicKey
		if err := dec.Decode(&referrer); err != nil {
			return nil, err
		}
		u.Referrer = &referrer
	}
	if err := dec.Decode(&u.OwnerWallet); err != nil {
		return nil, err
	}
	if err := dec.Decode(&u.Upline.ID); err != nil {
		return nil, err
	}
	if err := dec.Decode(&u.Upline.Depth); err != nil {
		return nil, err
	}
	if err := dec.Decode(&u.Upline.Entries); err != nil {
		return nil, err
	}
	if len(u.Upline.Entries) > config.MaxUplineDepth {
		return nil, fmt.Errorf("upline has %d entries, max is %d", len(u.Upline.Entries), config.MaxUplineDepth)
	}
	if err := dec.Decode(&u.Chain.ID); err != nil {
		return nil, err
	}
	for i := range u.Chain.Slots {
		filled, err := dec.ReadBool()
		if err != nil {
			return nil, err
		}
		if filled {
			var key solana.PublicKey
			if err := dec.Decode(&key); err != nil {
				return nil, err
			}
			u.Chain.Slots[i] = &key
		}
	}
	if err := dec.Decode(&u.Chain.FilledSlots); err != nil {
		return nil, err
	}
	if err := dec.Decode(&u.ReservedSol); err != nil {
		return nil, err
	}
	return &u, nil
}

// loadUserAccount reads and deserializes a user record owned by the
// program from the transaction overlay.
func loadUserAccount(tx *ledger.Tx, programID, key solana.PublicKey) (*UserAccount, error) {
	acc, err := tx.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotRegistered, key)
	}
	if !acc.Owner.Equals(programID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSlotOwner, key)
	}
	user, err := UnmarshalUserAccount(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize user account %s: %w", key, err)
	}
	return user, nil
}

// storeUserAccount serializes a user record back into the transaction
// overlay, preserving the account's lamports.
func storeUserAccount(tx *ledger.Tx, programID, key solana.PublicKey, user *UserAccount) error {
	data, err := user.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize user account %s: %w", key, err)
	}
	acc, err := tx.Get(key)
	if err != nil {
		acc = &ledger.Account{Owner: programID}
	}
	acc.Owner = programID
	acc.Data = data
	return tx.Put(key, acc)
}
