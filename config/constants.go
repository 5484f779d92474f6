package config

const (
	// Mainnet constants.
	MainnetSolanaRPCURL     = "https://api.mainnet-beta.solana.com"
	MainnetMatrixProgramID  = "6XoW7rrA651gNMXmMXtu9GqBRSSCgh41B6YCGzPd9d3h"
	MainnetAirdropProgramID = "BQy1rRHFACsvMvccCptTiHgK7Kv8fWvMRp6g2optDHHT"
	MainnetChainlinkProgram = "cjg3oHmg9uuPsP8D6g29NWvhySJkdYdAo9D25PRbKXJ"
	MainnetSolUsdFeed       = "CH31Xns5z3M1cTAbKW34jcxPPciazARpijcHj9rxtemt"

	// Devnet constants.
	DevnetSolanaRPCURL     = "https://api.devnet.solana.com"
	DevnetMatrixProgramID  = "6XoW7rrA651gNMXmMXtu9GqBRSSCgh41B6YCGzPd9d3h"
	DevnetAirdropProgramID = "BQy1rRHFACsvMvccCptTiHgK7Kv8fWvMRp6g2optDHHT"
	DevnetChainlinkProgram = "HEvSKofvBgfaexv23kMabbYqxasxU3mQ4ibBMEmJWHny"
	DevnetSolUsdFeed       = "99B2bTijsU6f1GCT73HmdR7HCFFjGMBcPZY6jZ96ynrR"

	// Meteora pool account set. The program is deployed against a single
	// fixed pool, so these do not vary by environment.
	PoolAddress       = "FrQ5KsAgjCe3FFg6ZENri8feDft54tgnATxyffcasuxU"
	AVault            = "4ndfcH16GKY76bzDkKfyVwHMoF8oY75KES2VaAhUYksN"
	AVaultLP          = "CocstBGbeDVyTJWxbWs4docwWapVADAo1xXQSh9RfPMz"
	AVaultLPMint      = "6f2FVX5UT5uBtgknc8fDj119Z7DQoLJeKRmBq7j1zsVi"
	ATokenVault       = "6m1wvYoPrwjAnbuGMqpMoodQaq4VnZXRjrzufXnPSjmj"
	BVault            = "FERjPVNEa7Udq8CEv68h6tPL46Tq7ieE49HrE2wea3XT"
	BVaultLP          = "HJNs8hPTzs9i6AVFkRDDMFVEkrrUoV7H7LDZHdCWvxn7"
	BVaultLPMint      = "BvoAjwEDhpLzs3jtu4H72j96ShKT5rvZE9RP1vgpfSM"
	BTokenVault       = "HZeLxbZ9uHtSpwZC3LBr4Nubd14iHwz7bRSghRZf5VCG"
	TokenMint         = "F1vCKXMix75KigbwZUXkVU97NiE1H2ToopttH67ydqvq"
	WSOLMint          = "So11111111111111111111111111111111111111112"
	VaultProgram      = "24Uqj9JCLxUeoC3hGfh5W3s9FM9uCHDS2SG3LYwBpyTi"
	AmmProgram        = "Eo7WjKq67rjJQSZxS6z3YkapzY3eMj6Xy8X5EQVn5UaB"
	ProtocolTokenBFee = "88fLv3iEY7ubFCjwCzfzA7FsPG8xSBFicSPS8T8fX4Kq"

	// Admin keys.
	MultisigTreasury      = "9kfwkhwRmjRdcUKd8YBXJKnE5Yux9k111uUSN8zbNCYh"
	AuthorizedInitializer = "6psmWBYCLTVbX31Aq7BDRCHpd33EN5ihtTWQbb4quDy6"
)

const (
	// MinimumUSDDeposit is the USD floor for a referred registration,
	// expressed with 8 decimals (Chainlink format): 10 USD.
	MinimumUSDDeposit uint64 = 10_00000000

	// MaxPriceFeedAge is the oldest feed round accepted before falling
	// back to DefaultSolPriceUSD, in seconds.
	MaxPriceFeedAge int64 = 86400

	// DefaultSolPriceUSD is used when the feed is stale: $100 with 8
	// decimals.
	DefaultSolPriceUSD int64 = 100_00000000

	// MaxUplineDepth bounds the stored ancestor list and the settlement
	// walk.
	MaxUplineDepth = 6

	// VaultAAccountsCount is the number of vault A accounts expected at
	// the front of the trailing account list.
	VaultAAccountsCount = 4

	// AirdropMaxWeeks is the airdrop ledger's lifecycle bound.
	AirdropMaxWeeks = 36

	// AirdropWeekDuration is the length of one airdrop epoch in seconds.
	AirdropWeekDuration int64 = 7 * 24 * 3600
)
