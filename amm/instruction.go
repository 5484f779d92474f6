package amm

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/donutlabs/matrix/matrix"
)

// SwapInstructionDiscriminator tags the pool program's swap handler:
// sha256("global:swap")[0..8].
var SwapInstructionDiscriminator = [8]byte{248, 198, 158, 145, 225, 117, 135, 200}

// BuildSwapInstruction assembles the wire instruction a deployment
// submits to the live pool. Account order is fixed by the pool
// program; the twelve writable accounts come first, then the signing
// wallet and the two programs read-only.
func BuildSwapInstruction(ammProgram, vaultProgram solana.PublicKey, env matrix.SwapEnv, amountIn, minimumOut uint64) *solana.GenericInstruction {
	data := make([]byte, 0, 8+8+8)
	data = append(data, SwapInstructionDiscriminator[:]...)
	data = binary.LittleEndian.AppendUint64(data, amountIn)
	data = binary.LittleEndian.AppendUint64(data, minimumOut)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(env.Pool, true, false),
		solana.NewAccountMeta(env.UserWSOLAccount, true, false),
		solana.NewAccountMeta(env.UserTokenAccount, true, false),
		solana.NewAccountMeta(env.AVault, true, false),
		solana.NewAccountMeta(env.BVault, true, false),
		solana.NewAccountMeta(env.ATokenVault, true, false),
		solana.NewAccountMeta(env.BTokenVault, true, false),
		solana.NewAccountMeta(env.AVaultLPMint, true, false),
		solana.NewAccountMeta(env.BVaultLPMint, true, false),
		solana.NewAccountMeta(env.AVaultLP, true, false),
		solana.NewAccountMeta(env.BVaultLP, true, false),
		solana.NewAccountMeta(env.ProtocolTokenBFee, true, false),
		solana.NewAccountMeta(env.UserWallet, false, true),
		solana.NewAccountMeta(vaultProgram, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}

	return solana.NewInstruction(ammProgram, accounts, data)
}
