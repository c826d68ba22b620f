package blockchain

import (
	"context"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// LamportsPerSol is the SOL base-unit scale.
const LamportsPerSol = 1_000_000_000

// SolanaClient handles Solana blockchain interactions: balance reads and SOL
// transfers signed by the server wallet.
type SolanaClient struct {
	rpcClient    *rpc.Client
	network      string
	serverWallet *solana.Wallet
}

// NewSolanaClient creates a new Solana client. rpcURL overrides the public
// endpoint for the chosen network when non-empty.
func NewSolanaClient(network, rpcURL, privateKey string) *SolanaClient {
	if rpcURL == "" {
		switch network {
		case "mainnet-beta":
			rpcURL = "https://api.mainnet-beta.solana.com"
		case "devnet":
			rpcURL = "https://api.devnet.solana.com"
		case "testnet":
			rpcURL = "https://api.testnet.solana.com"
		default:
			rpcURL = "https://api.devnet.solana.com"
		}
	}

	client := &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		network:   network,
	}

	// Initialize server wallet if private key is provided
	if privateKey != "" {
		wallet, err := solana.WalletFromPrivateKeyBase58(privateKey)
		if err != nil {
			log.Printf("Warning: Failed to load server wallet: %v", err)
		} else {
			client.serverWallet = wallet
			log.Printf("Server wallet loaded: %s", wallet.PublicKey())
		}
	}

	return client
}

// ValidateWalletAddress checks that the address is a well-formed Solana
// public key.
func (c *SolanaClient) ValidateWalletAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

// ServerWalletAddress returns the address paying platform-side transfers, or
// an empty string if no key was configured.
func (c *SolanaClient) ServerWalletAddress() string {
	if c.serverWallet == nil {
		return ""
	}
	return c.serverWallet.PublicKey().String()
}

// CanSignFor reports whether this client holds key material for the address.
// Only the server wallet's key is ever loaded here; user keys stay in their
// wallet adapters.
func (c *SolanaClient) CanSignFor(address string) bool {
	return c.serverWallet != nil && c.serverWallet.PublicKey().String() == address
}

// GetBalance returns a wallet's SOL balance.
func (c *SolanaClient) GetBalance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	pubKey, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid wallet address %s: %w", wallet, err)
	}

	result, err := c.rpcClient.GetBalance(ctx, pubKey, rpc.CommitmentFinalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance for %s: %w", wallet, err)
	}

	return decimal.NewFromInt(int64(result.Value)).Div(decimal.NewFromInt(LamportsPerSol)), nil
}

// Transfer sends amount SOL from payer to destination. Only the server wallet
// can sign here, so payer must be the server wallet address; user-held keys
// live in the wallet adapters, not in this client.
func (c *SolanaClient) Transfer(ctx context.Context, payer, destination string, amount decimal.Decimal) (string, error) {
	if c.serverWallet == nil {
		return "", fmt.Errorf("no server wallet configured")
	}
	if !c.CanSignFor(payer) {
		return "", fmt.Errorf("no key material for payer %s", payer)
	}

	toPubKey, err := solana.PublicKeyFromBase58(destination)
	if err != nil {
		return "", fmt.Errorf("invalid destination address %s: %w", destination, err)
	}

	lamports := amount.Mul(decimal.NewFromInt(LamportsPerSol)).IntPart()
	if lamports <= 0 {
		return "", fmt.Errorf("transfer amount too small: %s SOL", amount)
	}

	recent, err := c.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(
				uint64(lamports),
				c.serverWallet.PublicKey(),
				toPubKey,
			).Build(),
		},
		recent.Value.Blockhash,
		solana.TransactionPayer(c.serverWallet.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.serverWallet.PublicKey()) {
			return &c.serverWallet.PrivateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := c.rpcClient.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	log.Printf("Transferred %s SOL to %s (tx %s)", amount, destination, sig)
	return sig.String(), nil
}
