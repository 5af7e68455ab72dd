package rpc

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bardlex/coinrpc/pkg/errors"
)

// Network selects the daemon's chain.
type Network int

const (
	// MainNet is the production chain
	MainNet Network = iota
	// TestNet is the public test chain
	TestNet
)

// String returns the short network name
func (n Network) String() string {
	switch n {
	case MainNet:
		return "main"
	case TestNet:
		return "test"
	default:
		return "unknown"
	}
}

// ParseNetwork parses a network name. An empty name means MainNet.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "main", "mainnet":
		return MainNet, nil
	case "test", "testnet", "testnet3", "testnet4":
		return TestNet, nil
	default:
		return MainNet, errors.NewUsageError("parse_network", fmt.Sprintf("unknown network %q", s))
	}
}

// ConnectionParameters identify and authenticate a daemon. They are fixed at
// construction and never modified afterwards.
type ConnectionParameters struct {
	URL            string
	User           string
	Password       string
	Network        Network
	WalletPassword string
}

// Endpoint splits URL into the host[:port][/path] form used by the HTTP client
// and reports whether TLS is required. A URL without a scheme is plain HTTP.
func (c ConnectionParameters) Endpoint() (string, bool, error) {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return "", false, errors.NewUsageError("endpoint", "daemon URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrorTypeUsage, "endpoint", "invalid daemon URL").
			WithContext("url", c.URL)
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return "", false, errors.NewUsageError("endpoint", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return "", false, errors.NewUsageError("endpoint", "daemon URL has no host")
	}

	return u.Host + strings.TrimSuffix(u.Path, "/"), u.Scheme == "https", nil
}

// String describes the connection without its secrets.
func (c ConnectionParameters) String() string {
	return fmt.Sprintf("%s@%s (%s)", c.User, c.URL, c.Network)
}
