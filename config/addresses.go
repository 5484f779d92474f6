package config

import (
	"github.com/gagliardetto/solana-go"
)

// Addresses is the fixed allow-list the program validates every
// registration against. Any caller-supplied pool, vault, mint, or
// program account that does not match its entry here is rejected.
type Addresses struct {
	Pool              solana.PublicKey
	AVault            solana.PublicKey
	AVaultLP          solana.PublicKey
	AVaultLPMint      solana.PublicKey
	ATokenVault       solana.PublicKey
	BVault            solana.PublicKey
	BVaultLP          solana.PublicKey
	BVaultLPMint      solana.PublicKey
	BTokenVault       solana.PublicKey
	TokenMint         solana.PublicKey
	WSOLMint          solana.PublicKey
	VaultProgram      solana.PublicKey
	AmmProgram        solana.PublicKey
	ProtocolTokenBFee solana.PublicKey

	ChainlinkProgram solana.PublicKey
	SolUsdFeed       solana.PublicKey

	MultisigTreasury      solana.PublicKey
	AuthorizedInitializer solana.PublicKey
}

// FixedAddresses returns the allow-list for the given environment. The
// pool account set is a single deployment; only the Chainlink addresses
// vary by network.
func FixedAddresses(netCfg *NetworkConfig) Addresses {
	return Addresses{
		Pool:              solana.MustPublicKeyFromBase58(PoolAddress),
		AVault:            solana.MustPublicKeyFromBase58(AVault),
		AVaultLP:          solana.MustPublicKeyFromBase58(AVaultLP),
		AVaultLPMint:      solana.MustPublicKeyFromBase58(AVaultLPMint),
		ATokenVault:       solana.MustPublicKeyFromBase58(ATokenVault),
		BVault:            solana.MustPublicKeyFromBase58(BVault),
		BVaultLP:          solana.MustPublicKeyFromBase58(BVaultLP),
		BVaultLPMint:      solana.MustPublicKeyFromBase58(BVaultLPMint),
		BTokenVault:       solana.MustPublicKeyFromBase58(BTokenVault),
		TokenMint:         solana.MustPublicKeyFromBase58(TokenMint),
		WSOLMint:          solana.MustPublicKeyFromBase58(WSOLMint),
		VaultProgram:      solana.MustPublicKeyFromBase58(VaultProgram),
		AmmProgram:        solana.MustPublicKeyFromBase58(AmmProgram),
		ProtocolTokenBFee: solana.MustPublicKeyFromBase58(ProtocolTokenBFee),

		ChainlinkProgram: netCfg.ChainlinkProgram,
		SolUsdFeed:       netCfg.SolUsdFeed,

		MultisigTreasury:      solana.MustPublicKeyFromBase58(MultisigTreasury),
		AuthorizedInitializer: solana.MustPublicKeyFromBase58(AuthorizedInitializer),
	}
}
