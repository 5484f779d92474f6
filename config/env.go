package config

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

const (
	EnvMainnetBeta = "mainnet-beta"
	EnvMainnet     = "mainnet"
	EnvDevnet      = "devnet"
	EnvLocalnet    = "localnet"
)

var (
	ErrInvalidEnvironment = fmt.Errorf("invalid environment")
)

type NetworkConfig struct {
	SolanaRPCURL     string
	MatrixProgramID  solana.PublicKey
	AirdropProgramID solana.PublicKey
	ChainlinkProgram solana.PublicKey
	SolUsdFeed       solana.PublicKey
}

func NetworkConfigForEnv(env string) (*NetworkConfig, error) {
	var config *NetworkConfig
	switch env {
	case EnvMainnetBeta, EnvMainnet:
		matrixProgramID, err := solana.PublicKeyFromBase58(MainnetMatrixProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse matrix program ID: %w", err)
		}
		airdropProgramID, err := solana.PublicKeyFromBase58(MainnetAirdropProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse airdrop program ID: %w", err)
		}
		chainlinkProgram, err := solana.PublicKeyFromBase58(MainnetChainlinkProgram)
		if err != nil {
			return nil, fmt.Errorf("failed to parse chainlink program ID: %w", err)
		}
		solUsdFeed, err := solana.PublicKeyFromBase58(MainnetSolUsdFeed)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SOL/USD feed address: %w", err)
		}
		config = &NetworkConfig{
			SolanaRPCURL:     MainnetSolanaRPCURL,
			MatrixProgramID:  matrixProgramID,
			AirdropProgramID: airdropProgramID,
			ChainlinkProgram: chainlinkProgram,
			SolUsdFeed:       solUsdFeed,
		}
	case EnvDevnet, EnvLocalnet:
		matrixProgramID, err := solana.PublicKeyFromBase58(DevnetMatrixProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse matrix program ID: %w", err)
		}
		airdropProgramID, err := solana.PublicKeyFromBase58(DevnetAirdropProgramID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse airdrop program ID: %w", err)
		}
		chainlinkProgram, err := solana.PublicKeyFromBase58(DevnetChainlinkProgram)
		if err != nil {
			return nil, fmt.Errorf("failed to parse chainlink program ID: %w", err)
		}
		solUsdFeed, err := solana.PublicKeyFromBase58(DevnetSolUsdFeed)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SOL/USD feed address: %w", err)
		}
		config = &NetworkConfig{
			SolanaRPCURL:     DevnetSolanaRPCURL,
			MatrixProgramID:  matrixProgramID,
			AirdropProgramID: airdropProgramID,
			ChainlinkProgram: chainlinkProgram,
			SolUsdFeed:       solUsdFeed,
		}
	default:
		return nil, ErrInvalidEnvironment
	}

	rpcURL := os.Getenv("MATRIX_SOLANA_RPC_URL")
	if rpcURL != "" {
		config.SolanaRPCURL = rpcURL
	}

	return config, nil
}
