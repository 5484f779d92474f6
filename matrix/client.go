package matrix

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Client reads deployed program state over RPC.
type Client struct {
	rpc       RPCClient
	programID solana.PublicKey
}

// ProgramData is a full snapshot of the program's accounts.
type ProgramData struct {
	State *ProgramState
	Users []UserRecord
}

// UserRecord pairs a user account with its address.
type UserRecord struct {
	PubKey solana.PublicKey
	UserAccount
}

func NewClient(rpc RPCClient, programID solana.PublicKey) *Client {
	return &Client{rpc: rpc, programID: programID}
}

func (c *Client) ProgramID() solana.PublicKey {
	return c.programID
}

// GetProgramData fetches every program account and classifies it by
// discriminator. Accounts that fail to deserialize are skipped; a
// snapshot should not fail because one record is corrupt.
func (c *Client) GetProgramData(ctx context.Context) (*ProgramData, error) {
	out, err := c.rpc.GetProgramAccounts(ctx, c.programID)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("GetProgramAccounts returned empty result for program %s", c.programID)
	}

	data := &ProgramData{}
	for _, element := range out {
		raw := element.Account.Data.GetBinary()
		if len(raw) < 8 {
			continue
		}
		switch {
		case bytes.Equal(raw[:8], ProgramStateDiscriminator[:]):
			st, err := UnmarshalProgramState(raw)
			if err != nil {
				continue
			}
			data.State = st
		case bytes.Equal(raw[:8], UserAccountDiscriminator[:]):
			user, err := UnmarshalUserAccount(raw)
			if err != nil {
				continue
			}
			data.Users = append(data.Users, UserRecord{
				PubKey:      element.Pubkey,
				UserAccount: *user,
			})
		}
	}
	if data.State == nil {
		return nil, ErrNotInitialized
	}
	return data, nil
}

// GetProgramState fetches only the state singleton.
func (c *Client) GetProgramState(ctx context.Context) (*ProgramState, error) {
	statePDA, _, err := DeriveProgramStatePDA(c.programID)
	if err != nil {
		return nil, err
	}
	out, err := c.rpc.GetAccountInfo(ctx, statePDA)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch program state %s: %w", statePDA, err)
	}
	return UnmarshalProgramState(out.Value.Data.GetBinary())
}

// GetUser fetches the user record for a wallet.
func (c *Client) GetUser(ctx context.Context, wallet solana.PublicKey) (*UserRecord, error) {
	pda, _, err := DeriveUserAccountPDA(c.programID, wallet)
	if err != nil {
		return nil, err
	}
	out, err := c.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user account %s: %w", pda, err)
	}
	user, err := UnmarshalUserAccount(out.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}
	return &UserRecord{PubKey: pda, UserAccount: *user}, nil
}

// GetVaultBalance fetches the escrow vault's lamport balance.
func (c *Client) GetVaultBalance(ctx context.Context) (solana.PublicKey, uint64, error) {
	vault, _, err := DeriveProgramSolVaultPDA(c.programID)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	out, err := c.rpc.GetAccountInfo(ctx, vault)
	if err != nil {
		return vault, 0, fmt.Errorf("failed to fetch vault %s: %w", vault, err)
	}
	return vault, out.Value.Lamports, nil
}
