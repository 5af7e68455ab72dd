package coin

import (
	"context"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/bardlex/coinrpc/pkg/mapper"
	"github.com/bardlex/coinrpc/pkg/rpc"
)

// BackupWallet copies the wallet file to destination on the daemon host.
func (s *Service) BackupWallet(ctx context.Context, destination string) error {
	return exec(ctx, s, "backupwallet", rpc.Value(destination))
}

// DumpPrivKey reveals the private key of address in WIF.
func (s *Service) DumpPrivKey(ctx context.Context, address string) (string, error) {
	return call(ctx, s, mapper.String, "dumpprivkey", rpc.Value(address))
}

// DumpWallet writes every wallet key to filename on the daemon host.
func (s *Service) DumpWallet(ctx context.Context, filename string) error {
	return exec(ctx, s, "dumpwallet", rpc.Value(filename))
}

// EncryptWallet encrypts the wallet with passphrase. Older daemons stop
// after encrypting and return a notice.
func (s *Service) EncryptWallet(ctx context.Context, passphrase string) (string, error) {
	return call(ctx, s, reason, "encryptwallet", rpc.Value(passphrase))
}

// GetAccount returns the account address belongs to.
func (s *Service) GetAccount(ctx context.Context, address string) (string, error) {
	return call(ctx, s, mapper.String, "getaccount", rpc.Value(address))
}

// GetAccountAddress returns the current receiving address of account.
func (s *Service) GetAccountAddress(ctx context.Context, account string) (string, error) {
	return call(ctx, s, mapper.String, "getaccountaddress", rpc.Value(account))
}

// GetAddressesByAccount lists the addresses of account.
func (s *Service) GetAddressesByAccount(ctx context.Context, account string) ([]string, error) {
	return call(ctx, s, mapper.List(mapper.String), "getaddressesbyaccount", rpc.Value(account))
}

// GetBalance returns the balance of account with at least minConf
// confirmations. A blank account means every account.
func (s *Service) GetBalance(ctx context.Context, account string, minConf int, includeWatchOnly *bool) (btcutil.Amount, error) {
	return call(ctx, s, mapper.Amount, "getbalance",
		rpc.Value(orWildcard(account)), rpc.Value(minConf), rpc.Opt(includeWatchOnly))
}

// GetNewAddress creates a receiving address, in account when it is not blank.
func (s *Service) GetNewAddress(ctx context.Context, account string) (string, error) {
	return call(ctx, s, mapper.String, "getnewaddress", rpc.OptString(account))
}

// GetRawChangeAddress creates a change address.
func (s *Service) GetRawChangeAddress(ctx context.Context) (string, error) {
	return call(ctx, s, mapper.String, "getrawchangeaddress")
}

// GetReceivedByAccount returns the total received by account.
func (s *Service) GetReceivedByAccount(ctx context.Context, account string, minConf int) (btcutil.Amount, error) {
	return call(ctx, s, mapper.Amount, "getreceivedbyaccount", rpc.Value(account), rpc.Value(minConf))
}

// GetReceivedByAddress returns the total received by address.
func (s *Service) GetReceivedByAddress(ctx context.Context, address string, minConf int) (btcutil.Amount, error) {
	return call(ctx, s, mapper.Amount, "getreceivedbyaddress", rpc.Value(address), rpc.Value(minConf))
}

// GetTransaction returns a wallet transaction.
func (s *Service) GetTransaction(ctx context.Context, txid string, includeWatchOnly *bool) (*btcjson.GetTransactionResult, error) {
	return call(ctx, s, mapper.Object[btcjson.GetTransactionResult], "gettransaction",
		rpc.Value(txid), rpc.Opt(includeWatchOnly))
}

// GetUnconfirmedBalance returns the unconfirmed wallet balance.
func (s *Service) GetUnconfirmedBalance(ctx context.Context) (btcutil.Amount, error) {
	return call(ctx, s, mapper.Amount, "getunconfirmedbalance")
}

// GetWalletInfo returns the wallet state.
func (s *Service) GetWalletInfo(ctx context.Context) (*WalletInfo, error) {
	return call(ctx, s, mapper.Object[WalletInfo], "getwalletinfo")
}

// ImportAddress watches address without its key.
func (s *Service) ImportAddress(ctx context.Context, address, label string, rescan bool) error {
	return exec(ctx, s, "importaddress", rpc.Value(address), rpc.Value(label), rpc.Value(rescan))
}

// ImportPrivKey adds a WIF key to the wallet.
func (s *Service) ImportPrivKey(ctx context.Context, privKey, label string, rescan bool) error {
	return exec(ctx, s, "importprivkey", rpc.Value(privKey), rpc.Value(label), rpc.Value(rescan))
}

// ImportWallet imports keys from a dump file on the daemon host.
func (s *Service) ImportWallet(ctx context.Context, filename string) error {
	return exec(ctx, s, "importwallet", rpc.Value(filename))
}

// KeyPoolRefill tops up the key pool to newSize keys.
func (s *Service) KeyPoolRefill(ctx context.Context, newSize uint32) error {
	return exec(ctx, s, "keypoolrefill", rpc.Value(newSize))
}

// ListAccounts returns the balance of every account.
func (s *Service) ListAccounts(ctx context.Context, minConf int, includeWatchOnly *bool) (map[string]btcutil.Amount, error) {
	return call(ctx, s, mapper.DecimalMap, "listaccounts", rpc.Value(minConf), rpc.Opt(includeWatchOnly))
}

// ListAddressGroupings returns the wallet addresses grouped by common
// ownership. Groups keep the daemon's order, including groups left empty
// because no tuple in them was complete.
func (s *Service) ListAddressGroupings(ctx context.Context) ([][]AddressGrouping, error) {
	return call(ctx, s, addressGroupings, "listaddressgroupings")
}

// ListLockUnspent returns the outputs locked with LockUnspent.
func (s *Service) ListLockUnspent(ctx context.Context) ([]TxInput, error) {
	return call(ctx, s, mapper.List(mapper.Decode[TxInput]), "listlockunspent")
}

// ListReceivedByAccount returns the amounts received per account.
func (s *Service) ListReceivedByAccount(ctx context.Context, minConf int, includeEmpty bool, includeWatchOnly *bool) ([]btcjson.ListReceivedByAccountResult, error) {
	return call(ctx, s, mapper.List(mapper.Decode[btcjson.ListReceivedByAccountResult]), "listreceivedbyaccount",
		rpc.Value(minConf), rpc.Value(includeEmpty), rpc.Opt(includeWatchOnly))
}

// ListReceivedByAddress returns the amounts received per address.
func (s *Service) ListReceivedByAddress(ctx context.Context, minConf int, includeEmpty bool, includeWatchOnly *bool) ([]btcjson.ListReceivedByAddressResult, error) {
	return call(ctx, s, mapper.List(mapper.Decode[btcjson.ListReceivedByAddressResult]), "listreceivedbyaddress",
		rpc.Value(minConf), rpc.Value(includeEmpty), rpc.Opt(includeWatchOnly))
}

// ListSinceBlock returns the wallet transactions after blockHash. A blank
// hash lists every transaction.
func (s *Service) ListSinceBlock(ctx context.Context, blockHash string, targetConfirmations int, includeWatchOnly *bool) (*btcjson.ListSinceBlockResult, error) {
	return call(ctx, s, mapper.Object[btcjson.ListSinceBlockResult], "listsinceblock",
		rpc.Value(orWildcard(blockHash)), rpc.Value(targetConfirmations), rpc.Opt(includeWatchOnly))
}

// ListTransactions returns up to count wallet transactions of account,
// skipping the first from. A blank account means every account.
func (s *Service) ListTransactions(ctx context.Context, account string, count, from int, includeWatchOnly *bool) ([]btcjson.ListTransactionsResult, error) {
	return call(ctx, s, mapper.List(mapper.Decode[btcjson.ListTransactionsResult]), "listtransactions",
		rpc.Value(orWildcard(account)), rpc.Value(count), rpc.Value(from), rpc.Opt(includeWatchOnly))
}

// ListUnspent returns the wallet outputs with between minConf and maxConf
// confirmations, limited to addresses when it is not empty.
func (s *Service) ListUnspent(ctx context.Context, minConf, maxConf int, addresses []string) ([]btcjson.ListUnspentResult, error) {
	if addresses == nil {
		addresses = []string{}
	}
	return call(ctx, s, mapper.List(mapper.Decode[btcjson.ListUnspentResult]), "listunspent",
		rpc.Value(minConf), rpc.Value(maxConf), rpc.Value(addresses))
}

// LockUnspent locks outputs against spending, or unlocks them when unlock is
// true. OutPoints builds outputs from a ListUnspent reply.
func (s *Service) LockUnspent(ctx context.Context, unlock bool, outputs []TxInput) (bool, error) {
	if outputs == nil {
		outputs = []TxInput{}
	}
	return call(ctx, s, mapper.Bool, "lockunspent", rpc.Value(unlock), rpc.Value(outputs))
}

// Move transfers amount between two wallet accounts.
func (s *Service) Move(ctx context.Context, fromAccount, toAccount string, amount btcutil.Amount, minConf int, comment string) (bool, error) {
	return call(ctx, s, mapper.Bool, "move",
		rpc.Value(fromAccount), rpc.Value(toAccount), rpc.Value(amount.ToBTC()),
		rpc.Value(minConf), rpc.OptString(comment))
}

// SendFrom sends amount from account to address and returns the txid.
func (s *Service) SendFrom(ctx context.Context, fromAccount, toAddress string, amount btcutil.Amount, minConf int, comment, commentTo string) (string, error) {
	c, to := comments(comment, commentTo)
	return call(ctx, s, mapper.String, "sendfrom",
		rpc.Value(fromAccount), rpc.Value(toAddress), rpc.Value(amount.ToBTC()),
		rpc.Value(minConf), c, to)
}

// SendMany pays several addresses from account in one transaction.
func (s *Service) SendMany(ctx context.Context, fromAccount string, amounts map[string]btcutil.Amount, minConf int, comment string) (string, error) {
	return call(ctx, s, mapper.String, "sendmany",
		rpc.Value(fromAccount), rpc.Value(toBTC(amounts)), rpc.Value(minConf), rpc.OptString(comment))
}

// SendToAddress pays amount to address and returns the txid.
func (s *Service) SendToAddress(ctx context.Context, address string, amount btcutil.Amount, comment, commentTo string) (string, error) {
	c, to := comments(comment, commentTo)
	return call(ctx, s, mapper.String, "sendtoaddress",
		rpc.Value(address), rpc.Value(amount.ToBTC()), c, to)
}

// SetAccount assigns address to account.
func (s *Service) SetAccount(ctx context.Context, address, account string) error {
	return exec(ctx, s, "setaccount", rpc.Value(address), rpc.Value(account))
}

// SetTxFee sets the wallet fee per kilobyte.
func (s *Service) SetTxFee(ctx context.Context, amount btcutil.Amount) (bool, error) {
	return call(ctx, s, mapper.Bool, "settxfee", rpc.Value(amount.ToBTC()))
}

// SignMessage signs message with the key of address.
func (s *Service) SignMessage(ctx context.Context, address, message string) (string, error) {
	return call(ctx, s, mapper.String, "signmessage", rpc.Value(address), rpc.Value(message))
}

// WalletLock forgets the wallet decryption key.
func (s *Service) WalletLock(ctx context.Context) error {
	return exec(ctx, s, "walletlock")
}

// WalletPassphrase unlocks the wallet for timeoutSeconds.
func (s *Service) WalletPassphrase(ctx context.Context, passphrase string, timeoutSeconds int) error {
	return exec(ctx, s, "walletpassphrase", rpc.Value(passphrase), rpc.Value(timeoutSeconds))
}

// WalletPassphraseChange re-encrypts the wallet with a new passphrase.
func (s *Service) WalletPassphraseChange(ctx context.Context, oldPassphrase, newPassphrase string) error {
	return exec(ctx, s, "walletpassphrasechange", rpc.Value(oldPassphrase), rpc.Value(newPassphrase))
}
