// Package airdrop records matrix completions against the airdrop
// subledger: a per-wallet entry account and a per-week tally, keyed
// off a 36-week program lifecycle. Once the lifecycle ends the
// ledger deactivates permanently and notifications become no-ops.
package airdrop

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"

	"github.com/donutlabs/matrix/config"
	"github.com/donutlabs/matrix/ledger"
	"github.com/donutlabs/matrix/matrix"
)

var (
	ErrWrongStateAccount = errors.New("wrong airdrop state account")
	ErrWrongWeekAccount  = errors.New("wrong weekly record account")
	ErrBadStateData      = errors.New("airdrop state data malformed")
)

// State account layout. Only the fields the notifier touches are
// named; the rest of the record belongs to the airdrop program.
const (
	stateSize                 = 112
	stateCurrentWeekOffset    = 72
	stateStartTimestampOffset = 104
)

func accountTag(name string) [8]byte {
	h := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], h[:8])
	return d
}

var (
	userEntryTag  = accountTag("AirdropUser")
	weekRecordTag = accountTag("WeeklyData")
)

// UserEntry is a wallet's standing in the airdrop ledger.
type UserEntry struct {
	Wallet          solana.PublicKey
	TotalCompleted  uint64
	WeekCompleted   uint64
	LastWeekCounted uint8
}

const userEntrySize = 8 + 32 + 8 + 8 + 1

func EncodeUserEntry(e UserEntry) []byte {
	data := make([]byte, userEntrySize)
	copy(data[:8], userEntryTag[:])
	copy(data[8:40], e.Wallet.Bytes())
	binary.LittleEndian.PutUint64(data[40:48], e.TotalCompleted)
	binary.LittleEndian.PutUint64(data[48:56], e.WeekCompleted)
	data[56] = e.LastWeekCounted
	return data
}

func DecodeUserEntry(data []byte) (UserEntry, error) {
	if len(data) < userEntrySize || !bytes.Equal(data[:8], userEntryTag[:]) {
		return UserEntry{}, fmt.Errorf("not an airdrop user entry")
	}
	return UserEntry{
		Wallet:          solana.PublicKeyFromBytes(data[8:40]),
		TotalCompleted:  binary.LittleEndian.Uint64(data[40:48]),
		WeekCompleted:   binary.LittleEndian.Uint64(data[48:56]),
		LastWeekCounted: data[56],
	}, nil
}

// WeekRecord tallies completions for one lifecycle week.
type WeekRecord struct {
	Week        uint8
	Completions uint64
}

const weekRecordSize = 8 + 1 + 8

func EncodeWeekRecord(r WeekRecord) []byte {
	data := make([]byte, weekRecordSize)
	copy(data[:8], weekRecordTag[:])
	data[8] = r.Week
	binary.LittleEndian.PutUint64(data[9:17], r.Completions)
	return data
}

func DecodeWeekRecord(data []byte) (WeekRecord, error) {
	if len(data) < weekRecordSize || !bytes.Equal(data[:8], weekRecordTag[:]) {
		return WeekRecord{}, fmt.Errorf("not a weekly record")
	}
	return WeekRecord{
		Week:        data[8],
		Completions: binary.LittleEndian.Uint64(data[9:17]),
	}, nil
}

// EncodeState builds airdrop state data for fixtures and genesis.
func EncodeState(currentWeek uint8, startTimestamp int64) []byte {
	data := make([]byte, stateSize)
	data[stateCurrentWeekOffset] = currentWeek
	binary.LittleEndian.PutUint64(data[stateStartTimestampOffset:], uint64(startTimestamp))
	return data
}

func decodeState(data []byte) (currentWeek uint8, startTimestamp int64, err error) {
	if len(data) < stateSize {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrBadStateData, len(data))
	}
	currentWeek = data[stateCurrentWeekOffset]
	startTimestamp = int64(binary.LittleEndian.Uint64(data[stateStartTimestampOffset:]))
	return currentWeek, startTimestamp, nil
}

// DeriveStatePDA returns the airdrop program's state singleton.
func DeriveStatePDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("program_state")}, programID)
}

// DeriveUserEntryPDA returns a wallet's entry account.
func DeriveUserEntryPDA(programID, wallet solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("user_account"), wallet.Bytes()}, programID)
}

// DeriveWeekPDA returns the weekly record for a lifecycle week.
func DeriveWeekPDA(programID solana.PublicKey, week uint8) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("weekly_data"), {week}}, programID)
}

// Notifier applies completion notifications to the subledger.
type Notifier struct {
	log       *slog.Logger
	clock     clockwork.Clock
	programID solana.PublicKey
	statePDA  solana.PublicKey
}

var _ matrix.CompletionNotifier = (*Notifier)(nil)

func NewNotifier(log *slog.Logger, clock clockwork.Clock, programID solana.PublicKey) (*Notifier, error) {
	statePDA, _, err := DeriveStatePDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive airdrop state address: %w", err)
	}
	return &Notifier{log: log, clock: clock, programID: programID, statePDA: statePDA}, nil
}

// NotifyCompletion credits the beneficiary with one completed matrix
// in the current lifecycle week. When the lifecycle has run its
// course the matrix program's airdrop flag flips off permanently and
// every notification after that is a silent no-op. The last
// notification of a batch also rolls the current week forward if a
// boundary has passed.
func (n *Notifier) NotifyCompletion(ctx context.Context, tx *ledger.Tx, state *matrix.ProgramState, beneficiary solana.PublicKey, accounts matrix.AirdropAccounts, hint int, isLast bool) error {
	if !state.AirdropActive {
		return nil
	}
	if !accounts.State.Equals(n.statePDA) {
		return fmt.Errorf("%w: %s", ErrWrongStateAccount, accounts.State)
	}

	stateAcc, err := tx.Get(accounts.State)
	if err != nil {
		return fmt.Errorf("failed to read airdrop state: %w", err)
	}
	storedWeek, startTimestamp, err := decodeState(stateAcc.Data)
	if err != nil {
		return err
	}

	// Lifecycle check is lazy: the first notification after the final
	// week deactivates the ledger, one way, with a timestamp.
	now := n.clock.Now().Unix()
	elapsed := now - startTimestamp
	if storedWeek >= config.AirdropMaxWeeks || elapsed >= int64(config.AirdropMaxWeeks)*config.AirdropWeekDuration {
		state.AirdropActive = false
		state.AirdropDeactivatedAt = now
		n.log.Info("airdrop lifecycle complete, ledger deactivated", "week", storedWeek, "elapsed_seconds", elapsed)
		return nil
	}

	entryKey, err := n.resolveEntry(beneficiary, accounts.UserEntries, hint)
	if err != nil {
		return err
	}
	entryAcc, err := tx.Get(entryKey)
	if err != nil || !entryAcc.Owner.Equals(n.programID) {
		return fmt.Errorf("%w: %s", matrix.ErrUserNotRegisteredInAirdrop, beneficiary)
	}
	entry, err := DecodeUserEntry(entryAcc.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", matrix.ErrUserNotRegisteredInAirdrop, err)
	}

	if err := n.checkWeekAccounts(accounts, storedWeek); err != nil {
		return err
	}

	if entry.LastWeekCounted != storedWeek {
		entry.WeekCompleted = 0
		entry.LastWeekCounted = storedWeek
	}
	entry.TotalCompleted++
	entry.WeekCompleted++
	entryAcc.Data = EncodeUserEntry(entry)

	if err := n.tallyWeek(tx, accounts.CurrentWeek, storedWeek); err != nil {
		return err
	}

	if isLast {
		if err := n.rollWeek(tx, stateAcc, storedWeek, elapsed); err != nil {
			return err
		}
	}

	n.log.Debug("completion recorded",
		"beneficiary", beneficiary,
		"week", storedWeek,
		"total_completed", entry.TotalCompleted,
		"is_last", isLast,
	)
	return nil
}

// resolveEntry finds the beneficiary's entry account among the
// supplied candidates: the hinted position first, then a scan.
func (n *Notifier) resolveEntry(beneficiary solana.PublicKey, candidates []solana.PublicKey, hint int) (solana.PublicKey, error) {
	expected, _, err := DeriveUserEntryPDA(n.programID, beneficiary)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if hint >= 0 && hint < len(candidates) && candidates[hint].Equals(expected) {
		return expected, nil
	}
	for _, candidate := range candidates {
		if candidate.Equals(expected) {
			return expected, nil
		}
	}
	return solana.PublicKey{}, fmt.Errorf("%w: entry %s not supplied", matrix.ErrUserNotRegisteredInAirdrop, expected)
}

func (n *Notifier) checkWeekAccounts(accounts matrix.AirdropAccounts, week uint8) error {
	currentPDA, _, err := DeriveWeekPDA(n.programID, week)
	if err != nil {
		return err
	}
	if !accounts.CurrentWeek.Equals(currentPDA) {
		return fmt.Errorf("%w: %s is not week %d", ErrWrongWeekAccount, accounts.CurrentWeek, week)
	}
	next := week + 1
	if next > config.AirdropMaxWeeks {
		next = config.AirdropMaxWeeks
	}
	nextPDA, _, err := DeriveWeekPDA(n.programID, next)
	if err != nil {
		return err
	}
	if !accounts.NextWeek.Equals(nextPDA) {
		return fmt.Errorf("%w: %s is not week %d", ErrWrongWeekAccount, accounts.NextWeek, next)
	}
	return nil
}

func (n *Notifier) tallyWeek(tx *ledger.Tx, weekKey solana.PublicKey, week uint8) error {
	record := WeekRecord{Week: week}
	if tx.Exists(weekKey) {
		acc, err := tx.Get(weekKey)
		if err != nil {
			return err
		}
		record, err = DecodeWeekRecord(acc.Data)
		if err != nil {
			return err
		}
	}
	record.Completions++
	return tx.Put(weekKey, &ledger.Account{
		Owner: n.programID,
		Data:  EncodeWeekRecord(record),
	})
}

// rollWeek advances the stored current week to match elapsed time,
// capped at the final week. Runs once per batch, on the last
// notification.
func (n *Notifier) rollWeek(tx *ledger.Tx, stateAcc *ledger.Account, storedWeek uint8, elapsed int64) error {
	w := elapsed/config.AirdropWeekDuration + 1
	if w > int64(config.AirdropMaxWeeks) {
		w = int64(config.AirdropMaxWeeks)
	}
	week := uint8(w)
	if week > storedWeek {
		stateAcc.Data[stateCurrentWeekOffset] = week
		n.log.Info("airdrop week advanced", "from", storedWeek, "to", week)
	}
	return nil
}
