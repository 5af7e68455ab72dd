package main

import (
	"context"
	"encoding/json"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spf13/cobra"

	"github.com/bardlex/coinrpc/pkg/coin"
	"github.com/bardlex/coinrpc/pkg/errors"
)

func (c *cli) rawCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <method> [params...]",
		Short: "Send any method; each param is read as JSON, or as a string if it is not JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.withService(func(ctx context.Context, svc *coin.Service, args []string) (any, error) {
			return svc.Raw(ctx, args[0], parseParams(args[1:])...)
		}),
	}
}

// parseParams reads each argument as a JSON value, falling back to a plain
// string so that addresses and hashes need no quoting.
func parseParams(args []string) []any {
	params := make([]any, len(args))
	for i, arg := range args {
		if json.Valid([]byte(arg)) {
			params[i] = json.RawMessage(arg)
		} else {
			params[i] = arg
		}
	}
	return params
}

func (c *cli) getBlockCountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "getblockcount",
		Short: "Print the height of the best chain",
		Args:  cobra.NoArgs,
		RunE: c.withService(func(ctx context.Context, svc *coin.Service, _ []string) (any, error) {
			return svc.GetBlockCount(ctx)
		}),
	}
}

func (c *cli) getBestBlockHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "getbestblockhash",
		Short: "Print the hash of the best block",
		Args:  cobra.NoArgs,
		RunE: c.withService(func(ctx context.Context, svc *coin.Service, _ []string) (any, error) {
			return svc.GetBestBlockHash(ctx)
		}),
	}
}

func (c *cli) getBlockChainInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "getblockchaininfo",
		Short: "Print chain state",
		Args:  cobra.NoArgs,
		RunE: c.withService(func(ctx context.Context, svc *coin.Service, _ []string) (any, error) {
			return svc.GetBlockChainInfo(ctx)
		}),
	}
}

func (c *cli) getBlockCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "getblock <hash>",
		Short: "Print a block as hex, or decoded with --verbose",
		Args:  cobra.ExactArgs(1),
		RunE: c.withService(func(ctx context.Context, svc *coin.Service, args []string) (any, error) {
			hash, err := parseHash("getblock", args[0])
			if err != nil {
				return nil, err
			}
			block, err := svc.GetBlock(ctx, hash, verbose)
			if err != nil || block == nil {
				return nil, err
			}
			if verbose {
				return block.Info, nil
			}
			return block.Hex, nil
		}),
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Decode the block")
	return cmd
}

func (c *cli) getRawMempoolCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "getrawmempool",
		Short: "Print mempool transaction ids, or every entry with --verbose",
		Args:  cobra.NoArgs,
		RunE: c.withService(func(ctx context.Context, svc *coin.Service, _ []string) (any, error) {
			pool, err := svc.GetRawMempool(ctx, verbose)
			if err != nil {
				return nil, err
			}
			if !pool.Verbose {
				return pool.TxIDs, nil
			}
			return mempoolView(pool), nil
		}),
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print full mempool entries")
	return cmd
}

func (c *cli) getRawTransactionCommand() *cobra.Command {
	var verbosity int

	cmd := &cobra.Command{
		Use:   "getrawtransaction <txid>",
		Short: "Print a transaction as hex, or decoded with --verbosity 1",
		Args:  cobra.ExactArgs(1),
		RunE: c.withService(func(ctx context.Context, svc *coin.Service, args []string) (any, error) {
			txid, err := parseHash("getrawtransaction", args[0])
			if err != nil {
				return nil, err
			}
			tx, err := svc.GetRawTransaction(ctx, txid, verbosity)
			if err != nil || tx == nil {
				return nil, err
			}
			if tx.Info != nil {
				return tx.Info, nil
			}
			return tx.Hex, nil
		}),
	}
	cmd.Flags().IntVar(&verbosity, "verbosity", coin.RawTxHex, "0 for hex, 1 for decoded")
	return cmd
}

func (c *cli) getBalanceCommand() *cobra.Command {
	var (
		account   string
		minConf   int
		watchOnly bool
		cmd       *cobra.Command
	)

	cmd = &cobra.Command{
		Use:   "getbalance",
		Short: "Print the wallet balance",
		Args:  cobra.NoArgs,
		RunE: c.withService(func(ctx context.Context, svc *coin.Service, _ []string) (any, error) {
			var includeWatchOnly *bool
			if cmd.Flags().Changed("watchonly") {
				includeWatchOnly = &watchOnly
			}
			balance, err := svc.GetBalance(ctx, account, minConf, includeWatchOnly)
			if err != nil {
				return nil, err
			}
			return coinAmount(balance), nil
		}),
	}
	cmd.Flags().StringVar(&account, "account", "", "Account name, every account when blank")
	cmd.Flags().IntVar(&minConf, "minconf", 1, "Minimum confirmations")
	cmd.Flags().BoolVar(&watchOnly, "watchonly", false, "Include watch-only addresses")
	return cmd
}

func (c *cli) listAddressGroupingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "listaddressgroupings",
		Short: "Print wallet addresses grouped by common ownership",
		Args:  cobra.NoArgs,
		RunE: c.withService(func(ctx context.Context, svc *coin.Service, _ []string) (any, error) {
			groups, err := svc.ListAddressGroupings(ctx)
			if err != nil {
				return nil, err
			}
			return groupingsView(groups), nil
		}),
	}
}

func (c *cli) validateAddressCommand() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "validateaddress <address>",
		Short: "Ask the daemon about an address, or decode it offline with --local",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				return printJSON(cmd.OutOrStdout(), c.decodeAddress(args[0]))
			}
			return c.withService(func(ctx context.Context, svc *coin.Service, args []string) (any, error) {
				return svc.ValidateAddress(ctx, args[0])
			})(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Decode with the coin's address prefixes instead of asking the daemon")
	return cmd
}

func (c *cli) decodeAddress(address string) addressView {
	conn := c.cfg.Connection()
	addr, err := c.cfg.CoinParams().DecodeAddress(address, conn.Network)
	if err != nil {
		return addressView{Address: address, Error: err.Error()}
	}
	return addressView{
		Address:      addr.EncodeAddress(),
		IsValid:      true,
		ScriptPubKey: scriptHex(addr),
	}
}

func parseHash(op, s string) (string, error) {
	hash, err := chainhash.NewHashFromStr(s)
	if err != nil || len(s) != 2*chainhash.HashSize {
		return "", errors.NewUsageError(op, "expected a 64 character hex hash").
			WithContext("hash", s)
	}
	return hash.String(), nil
}
