package oracle

import (
	"context"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaConfirmer checks oracle attestation signatures against the Solana
// cluster.
type SolanaConfirmer struct {
	rpcClient    *rpc.Client
	network      string
	serverWallet *solana.Wallet
}

// NewSolanaConfirmer creates a confirmer for the given network
func NewSolanaConfirmer(network, privateKey string) *SolanaConfirmer {
	var rpcURL string
	switch network {
	case "mainnet-beta":
		rpcURL = rpc.MainNetBeta_RPC
	case "devnet":
		rpcURL = rpc.DevNet_RPC
	case "testnet":
		rpcURL = rpc.TestNet_RPC
	default:
		rpcURL = rpc.DevNet_RPC
	}

	c := &SolanaConfirmer{
		rpcClient: rpc.New(rpcURL),
		network:   network,
	}

	// The wallet is only needed when the gateway requires signed status
	// queries; attestation checks work without it.
	if privateKey != "" {
		wallet, err := solana.WalletFromPrivateKeyBase58(privateKey)
		if err != nil {
			log.Printf("Warning: Failed to load server wallet: %v", err)
		} else {
			c.serverWallet = wallet
			log.Printf("Server wallet loaded: %s", wallet.PublicKey())
		}
	}

	return c
}

// Confirmed reports whether the attestation transaction reached at least
// confirmed commitment. A missing signature is not an error; the transaction
// may simply not have landed yet.
func (c *SolanaConfirmer) Confirmed(ctx context.Context, signature string) (bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false, fmt.Errorf("invalid attestation signature %q: %w", signature, err)
	}

	out, err := c.rpcClient.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return false, fmt.Errorf("failed to query signature status: %w", err)
	}

	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return false, nil
	}

	st := out.Value[0]
	if st.Err != nil {
		return false, fmt.Errorf("attestation transaction failed on chain: %v", st.Err)
	}

	return st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		st.ConfirmationStatus == rpc.ConfirmationStatusFinalized, nil
}
