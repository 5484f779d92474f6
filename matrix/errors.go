package matrix

import "errors"

// Validation failures. Caller-supplied accounts must match the fixed
// allow-list exactly.
var (
	ErrNotAuthorized             = errors.New("not authorized")
	ErrInvalidPoolAddress        = errors.New("invalid pool address")
	ErrInvalidVaultAddress       = errors.New("invalid vault address")
	ErrInvalidVaultAAddresses    = errors.New("invalid vault A addresses")
	ErrInvalidTokenMintAddress   = errors.New("invalid token mint address")
	ErrInvalidVaultProgram       = errors.New("invalid vault program")
	ErrInvalidAmmProgram         = errors.New("invalid amm program")
	ErrInvalidProtocolFeeAccount = errors.New("invalid protocol fee account")
	ErrInvalidChainlinkProgram   = errors.New("invalid chainlink program")
	ErrInvalidPriceFeed          = errors.New("invalid price feed")
	ErrInvalidWSOLMint           = errors.New("invalid wsol mint")
)

// Precondition failures.
var (
	ErrAlreadyRegistered     = errors.New("user already registered")
	ErrReferrerNotRegistered = errors.New("referrer is not registered")
	ErrInsufficientDeposit   = errors.New("deposit below minimum")
	ErrMissingVaultAAccounts = errors.New("missing vault A accounts")
	ErrMissingOracleAccounts = errors.New("missing oracle accounts")
	ErrMissingUplineAccount  = errors.New("missing upline account")
	ErrSlotNotRegistered     = errors.New("slot account is not registered")
	ErrInvalidSlotOwner      = errors.New("slot account has wrong owner")
	ErrPaymentWalletInvalid  = errors.New("payment wallet is not a system account")
	ErrNotInitialized        = errors.New("program state not initialized")
	ErrAlreadyInitialized    = errors.New("program state already initialized")
)

// Chain integrity failures. Any of these aborts the whole registration.
var (
	ErrInvalidUplineOrder   = errors.New("upline accounts out of order")
	ErrInvalidUplineWallet  = errors.New("upline wallet does not match stored entry")
	ErrDuplicateUplineEntry = errors.New("duplicate upline entry")
	ErrUnusedDeposit        = errors.New("deposit was not fully allocated")
)

// External collaborator failures.
var (
	ErrPriceFeedRead              = errors.New("price feed read failed")
	ErrSwapFailed                 = errors.New("swap produced no tokens")
	ErrBurnFailed                 = errors.New("token burn failed")
	ErrWrapSolFailed              = errors.New("wrapping sol failed")
	ErrUnwrapSolFailed            = errors.New("unwrapping sol failed")
	ErrSolReserveFailed           = errors.New("reserving sol for escrow failed")
	ErrReferrerPaymentFailed      = errors.New("referrer payout failed")
	ErrUserNotRegisteredInAirdrop = errors.New("user not registered in airdrop ledger")
	ErrAirdropNotifyFailed        = errors.New("airdrop completion notification failed")
)
