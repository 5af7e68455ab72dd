// Package coin implements the typed daemon operations shared by Bitcoin and
// the daemons derived from it.
package coin

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/bardlex/coinrpc/pkg/errors"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

// Params holds the fixed per-coin values. Coins differ only here; every
// operation is shared.
type Params struct {
	Name        string
	LongName    string
	Symbol      string
	MainNetPort int
	TestNetPort int

	mainNet *chaincfg.Params
	testNet *chaincfg.Params
}

// Bitcoin returns the Bitcoin Core parameters.
func Bitcoin() Params {
	main := chaincfg.MainNetParams
	test := chaincfg.TestNet3Params
	return Params{
		Name:        "bitcoin",
		LongName:    "Bitcoin",
		Symbol:      "BTC",
		MainNetPort: 8332,
		TestNetPort: 18332,
		mainNet:     &main,
		testNet:     &test,
	}
}

// Litecoin returns the Litecoin Core parameters.
func Litecoin() Params {
	main := chaincfg.MainNetParams
	main.Name = "litecoin"
	main.Net = wire.BitcoinNet(0xdbb6c0fb)
	main.PubKeyHashAddrID = 0x30
	main.ScriptHashAddrID = 0x32
	main.PrivateKeyID = 0xb0
	main.Bech32HRPSegwit = "ltc"

	test := chaincfg.TestNet3Params
	test.Name = "litecoin-testnet"
	test.Net = wire.BitcoinNet(0xf1c8d2fd)
	test.PubKeyHashAddrID = 0x6f
	test.ScriptHashAddrID = 0x3a
	test.PrivateKeyID = 0xef
	test.Bech32HRPSegwit = "tltc"

	return Params{
		Name:        "litecoin",
		LongName:    "Litecoin",
		Symbol:      "LTC",
		MainNetPort: 9332,
		TestNetPort: 19332,
		mainNet:     &main,
		testNet:     &test,
	}
}

// Dogecoin returns the Dogecoin Core parameters.
func Dogecoin() Params {
	main := chaincfg.MainNetParams
	main.Name = "dogecoin"
	main.Net = wire.BitcoinNet(0xc0c0c0c0)
	main.PubKeyHashAddrID = 0x1e
	main.ScriptHashAddrID = 0x16
	main.PrivateKeyID = 0x9e
	main.Bech32HRPSegwit = ""

	test := chaincfg.TestNet3Params
	test.Name = "dogecoin-testnet"
	test.Net = wire.BitcoinNet(0xdcb7c1fc)
	test.PubKeyHashAddrID = 0x71
	test.ScriptHashAddrID = 0xc4
	test.PrivateKeyID = 0xf1
	test.Bech32HRPSegwit = ""

	return Params{
		Name:        "dogecoin",
		LongName:    "Dogecoin",
		Symbol:      "DOGE",
		MainNetPort: 22555,
		TestNetPort: 44555,
		mainNet:     &main,
		testNet:     &test,
	}
}

// Lookup returns the parameters for a coin name or ticker symbol.
func Lookup(name string) (Params, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bitcoin", "btc", "":
		return Bitcoin(), nil
	case "litecoin", "ltc":
		return Litecoin(), nil
	case "dogecoin", "doge":
		return Dogecoin(), nil
	default:
		return Params{}, errors.NewUsageError("lookup_coin", fmt.Sprintf("unknown coin %q", name))
	}
}

// DefaultURL returns the local daemon URL for network.
func (p Params) DefaultURL(network rpc.Network) string {
	port := p.MainNetPort
	if network == rpc.TestNet {
		port = p.TestNetPort
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

// Resolve fills in the daemon URL from the network when conn leaves it blank.
func (p Params) Resolve(conn rpc.ConnectionParameters) rpc.ConnectionParameters {
	if strings.TrimSpace(conn.URL) == "" {
		conn.URL = p.DefaultURL(conn.Network)
	}
	return conn
}

// ChainParams returns the address encoding parameters for network.
func (p Params) ChainParams(network rpc.Network) *chaincfg.Params {
	if network == rpc.TestNet {
		return p.testNet
	}
	return p.mainNet
}

var (
	registerOnce sync.Once
	registerErr  error
)

// registerNets makes the non-Bitcoin segwit prefixes known to btcutil's
// address decoder. The registry is process wide; the first call's outcome
// is returned on every call.
func registerNets() error {
	registerOnce.Do(func() {
		var nets []*chaincfg.Params
		for _, p := range []Params{Litecoin(), Dogecoin()} {
			nets = append(nets, p.mainNet, p.testNet)
		}
		registerErr = registerParams(nets)
	})
	return registerErr
}

// registerParams registers every net and joins the failures, typically
// chaincfg.ErrDuplicateNet when another package claimed the same magic.
func registerParams(nets []*chaincfg.Params) error {
	var errs []error
	for _, net := range nets {
		if err := chaincfg.Register(net); err != nil {
			errs = append(errs, errors.Wrap(err, errors.ErrorTypeInternal, "register_net",
				"chain parameters not registered").WithContext("net", net.Name))
		}
	}
	return stderrors.Join(errs...)
}

// DecodeAddress parses addr and checks it belongs to this coin and network.
func (p Params) DecodeAddress(addr string, network rpc.Network) (btcutil.Address, error) {
	net := p.ChainParams(network)
	if net == nil {
		return nil, errors.NewUsageError("decode_address", "coin parameters are not initialized")
	}

	regErr := registerNets()
	decoded, err := btcutil.DecodeAddress(strings.TrimSpace(addr), net)
	if err != nil {
		se := errors.Wrap(err, errors.ErrorTypeUsage, "decode_address", "invalid address").
			WithContext("coin", p.Name)
		if regErr != nil {
			se = se.WithContext("registration", regErr.Error())
		}
		return nil, se
	}
	if !decoded.IsForNet(net) {
		return nil, errors.NewUsageError("decode_address",
			fmt.Sprintf("address is not a %s %s address", p.LongName, network))
	}
	return decoded, nil
}

func (p Params) String() string {
	return p.LongName
}
