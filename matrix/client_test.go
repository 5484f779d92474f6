package matrix_test

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"github.com/donutlabs/matrix/matrix"
)

type mockRPC struct {
	accounts map[solana.PublicKey]*rpc.Account
}

func (m *mockRPC) GetAccountInfo(_ context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	acct, ok := m.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: acct}, nil
}

func (m *mockRPC) GetProgramAccounts(_ context.Context, _ solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	var out rpc.GetProgramAccountsResult
	for key, acct := range m.accounts {
		out = append(out, &rpc.KeyedAccount{Pubkey: key, Account: acct})
	}
	return out, nil
}

func clientFixture(t *testing.T) (*matrix.Client, *mockRPC, solana.PublicKey) {
	t.Helper()

	programID := solana.NewWallet().PublicKey()
	mock := &mockRPC{accounts: map[solana.PublicKey]*rpc.Account{}}

	statePDA, _, err := matrix.DeriveProgramStatePDA(programID)
	require.NoError(t, err)
	stateData, err := (&matrix.ProgramState{
		Owner:         solana.NewWallet().PublicKey(),
		NextUplineID:  5,
		NextChainID:   9,
		AirdropActive: true,
	}).Marshal()
	require.NoError(t, err)
	mock.accounts[statePDA] = &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(stateData)}

	return matrix.NewClient(mock, programID), mock, programID
}

func addUser(t *testing.T, mock *mockRPC, programID, wallet solana.PublicKey) solana.PublicKey {
	t.Helper()
	pda, _, err := matrix.DeriveUserAccountPDA(programID, wallet)
	require.NoError(t, err)
	data, err := (&matrix.UserAccount{
		IsRegistered: true,
		OwnerWallet:  wallet,
		Upline:       matrix.ReferralUpline{ID: 1, Depth: 1},
		Chain:        matrix.ReferralChain{ID: 1},
	}).Marshal()
	require.NoError(t, err)
	mock.accounts[pda] = &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)}
	return pda
}

func TestClient_GetProgramData(t *testing.T) {
	t.Parallel()

	client, mock, programID := clientFixture(t)
	walletA := solana.NewWallet().PublicKey()
	walletB := solana.NewWallet().PublicKey()
	addUser(t, mock, programID, walletA)
	addUser(t, mock, programID, walletB)

	// A corrupt record must not poison the snapshot.
	mock.accounts[solana.NewWallet().PublicKey()] = &rpc.Account{
		Data: rpc.DataBytesOrJSONFromBytes([]byte{1, 2, 3}),
	}

	data, err := client.GetProgramData(context.Background())
	require.NoError(t, err)
	require.NotNil(t, data.State)
	require.Equal(t, uint32(5), data.State.NextUplineID)
	require.Len(t, data.Users, 2)
}

func TestClient_GetProgramDataWithoutState(t *testing.T) {
	t.Parallel()

	programID := solana.NewWallet().PublicKey()
	mock := &mockRPC{accounts: map[solana.PublicKey]*rpc.Account{}}
	addUser(t, mock, programID, solana.NewWallet().PublicKey())

	_, err := matrix.NewClient(mock, programID).GetProgramData(context.Background())
	require.ErrorIs(t, err, matrix.ErrNotInitialized)
}

func TestClient_GetUser(t *testing.T) {
	t.Parallel()

	client, mock, programID := clientFixture(t)
	wallet := solana.NewWallet().PublicKey()
	pda := addUser(t, mock, programID, wallet)

	user, err := client.GetUser(context.Background(), wallet)
	require.NoError(t, err)
	require.Equal(t, pda, user.PubKey)
	require.Equal(t, wallet, user.OwnerWallet)

	_, err = client.GetUser(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
}

func TestClient_GetVaultBalance(t *testing.T) {
	t.Parallel()

	client, mock, programID := clientFixture(t)
	vault, _, err := matrix.DeriveProgramSolVaultPDA(programID)
	require.NoError(t, err)
	mock.accounts[vault] = &rpc.Account{Lamports: 777}

	gotVault, lamports, err := client.GetVaultBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, vault, gotVault)
	require.Equal(t, uint64(777), lamports)
}
