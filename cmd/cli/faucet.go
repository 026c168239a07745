package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/poolledger/internal/adapter/chain"
)

// faucetCmd mints test tokens to an address through the signing gateway.
// Only development gateways accept mints.
func faucetCmd() *cobra.Command {
	var gatewayURL, apiKey string
	var decimals int32
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "faucet <address> <amount>",
		Short: "Mint test tokens to an address (development gateways only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			client, err := chain.NewGatewayClient(chain.GatewayConfig{
				BaseURL:       gatewayURL,
				APIKey:        apiKey,
				Timeout:       timeout,
				TokenDecimals: decimals,
				MaxRetries:    1,
			}, nil, zerolog.Nop())
			if err != nil {
				return err
			}

			txHash, err := client.Mint(cmd.Context(), args[0], amount, "faucet:"+uuid.NewString())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), txHash)
			return nil
		},
	}

	cmd.Flags().StringVar(&gatewayURL, "gateway", envOr("GATEWAY_URL", "http://localhost:8545"), "Signing gateway URL")
	cmd.Flags().StringVar(&apiKey, "gateway-key", os.Getenv("GATEWAY_API_KEY"), "Signing gateway API key")
	cmd.Flags().Int32Var(&decimals, "decimals", 18, "Token decimals")
	cmd.Flags().DurationVar(&timeout, "gateway-timeout", 2*time.Minute, "Gateway request timeout")
	return cmd
}
