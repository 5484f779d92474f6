package matrix

import (
	"github.com/gagliardetto/solana-go"
)

// DeriveProgramStatePDA returns the singleton state account address.
func DeriveProgramStatePDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		[]byte("program_state"),
	}
	return solana.FindProgramAddress(seeds, programID)
}

// DeriveUserAccountPDA returns the user record address for a wallet.
func DeriveUserAccountPDA(programID, wallet solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		[]byte("user_account"),
		wallet.Bytes(),
	}
	return solana.FindProgramAddress(seeds, programID)
}

// DeriveProgramSolVaultPDA returns the escrow vault that holds
// reserved deposits until the matching slot-3 payout.
func DeriveProgramSolVaultPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	seeds := [][]byte{
		[]byte("program_sol_vault"),
	}
	return solana.FindProgramAddress(seeds, programID)
}
