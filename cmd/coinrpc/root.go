package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bardlex/coinrpc/internal/config"
	"github.com/bardlex/coinrpc/pkg/coin"
	"github.com/bardlex/coinrpc/pkg/log"
	"github.com/bardlex/coinrpc/pkg/retry"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

// Flag names shared by every subcommand
const (
	flagCoin     = "coin"
	flagNetwork  = "network"
	flagURL      = "url"
	flagUser     = "user"
	flagPassword = "password"
	flagTimeout  = "timeout"
	flagRetries  = "retries"
	flagLogLevel = "log-level"
)

type cli struct {
	cfg    *config.Config
	logger *log.Logger

	coin     string
	network  string
	url      string
	user     string
	password string
	timeout  time.Duration
	retries  int
	logLevel string
}

// NewCommand builds the coinrpc command tree. Environment variables provide
// defaults; flags override them.
func NewCommand(version string) *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:               "coinrpc",
		Short:             "Query a Bitcoin, Litecoin or Dogecoin daemon over JSON-RPC",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.load,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.coin, flagCoin, "bitcoin", "Coin: bitcoin, litecoin or dogecoin (env COIN)")
	flags.StringVar(&c.network, flagNetwork, "main", "Network: main or test (env COIN_NETWORK)")
	flags.StringVar(&c.url, flagURL, "", "Daemon URL, defaults to the coin's local port (env COIN_RPC_URL)")
	flags.StringVar(&c.user, flagUser, "", "RPC user (env COIN_RPC_USER)")
	flags.StringVar(&c.password, flagPassword, "", "RPC password (env COIN_RPC_PASSWORD)")
	flags.DurationVar(&c.timeout, flagTimeout, 30*time.Second, "Timeout of a single RPC round trip")
	flags.IntVar(&c.retries, flagRetries, 3, "Attempts for calls that fail in transport")
	flags.StringVar(&c.logLevel, flagLogLevel, "warn", "Log level written to stderr")

	cmd.AddCommand(
		c.rawCommand(),
		c.getBlockCountCommand(),
		c.getBestBlockHashCommand(),
		c.getBlockChainInfoCommand(),
		c.getBlockCommand(),
		c.getRawMempoolCommand(),
		c.getRawTransactionCommand(),
		c.getBalanceCommand(),
		c.listAddressGroupingsCommand(),
		c.validateAddressCommand(),
	)
	return cmd
}

// load reads the environment and applies the flags the user set.
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed(flagCoin) {
		cfg.Coin = c.coin
	}
	if flags.Changed(flagNetwork) {
		cfg.Network = c.network
	}
	if flags.Changed(flagURL) {
		cfg.RPCURL = c.url
	}
	if flags.Changed(flagUser) {
		cfg.RPCUser = c.user
	}
	if flags.Changed(flagPassword) {
		cfg.RPCPassword = c.password
	}
	if flags.Changed(flagTimeout) {
		cfg.RPCTimeout = c.timeout
	}
	if flags.Changed(flagRetries) {
		cfg.RPCRetries = c.retries
	}
	if flags.Changed(flagLogLevel) || os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = c.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = log.NewWithWriter(cmd.ErrOrStderr(), "coinrpc", cmd.Root().Version, cfg.LogLevel, "text")
	return nil
}

func (c *cli) connect() (*coin.Service, func(), error) {
	retryConfig := retry.TransportConfig()
	retryConfig.MaxAttempts = c.cfg.RPCRetries

	svc, transport, err := coin.Dial(c.cfg.CoinParams(), c.cfg.Connection(), &rpc.HTTPOptions{
		Timeout: c.cfg.RPCTimeout,
		Retry:   retryConfig,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	c.logger.Debug("dialed daemon", "daemon", svc.String())
	return svc, transport.Close, nil
}

// serviceFunc runs one daemon query and returns the value to print.
type serviceFunc func(ctx context.Context, svc *coin.Service, args []string) (any, error)

// withService adapts fn into a cobra RunE that connects, runs and prints.
func (c *cli) withService(fn serviceFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, closeTransport, err := c.connect()
		if err != nil {
			return err
		}
		defer closeTransport()

		v, err := fn(cmd.Context(), svc, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v)
	}
}
