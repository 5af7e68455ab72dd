package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bardlex/coinrpc/pkg/errors"
)

const testHash = "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"

type daemonCall struct {
	Method string
	Params string
}

type fakeDaemon struct {
	mu      sync.Mutex
	results map[string]string
	errors  map[string]string
	calls   []daemonCall
}

func (d *fakeDaemon) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if user, pass, ok := r.BasicAuth(); !ok || user != "rpcuser" || pass != "rpcpass" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
		ID     json.RawMessage `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	d.mu.Lock()
	d.calls = append(d.calls, daemonCall{Method: req.Method, Params: string(req.Params)})
	result, ok := d.results[req.Method]
	rpcErr := d.errors[req.Method]
	d.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case rpcErr != "":
		fmt.Fprintf(w, `{"result":null,"error":%s,"id":%s}`, rpcErr, req.ID)
	case ok:
		fmt.Fprintf(w, `{"result":%s,"error":null,"id":%s}`, result, req.ID)
	default:
		fmt.Fprintf(w, `{"result":null,"error":{"code":-32601,"message":"Method not found"},"id":%s}`, req.ID)
	}
}

func (d *fakeDaemon) Calls() []daemonCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]daemonCall(nil), d.calls...)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"COIN", "COIN_NETWORK", "COIN_RPC_URL", "COIN_RPC_USER", "COIN_RPC_PASSWORD", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func newDaemon(t *testing.T, results map[string]string) (*fakeDaemon, string) {
	t.Helper()
	clearEnv(t)
	d := &fakeDaemon{results: results, errors: map[string]string{}}
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)
	return d, srv.URL
}

func execute(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--url", url, "--user", "rpcuser", "--password", "rpcpass", "--retries", "1"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSimpleCommands(t *testing.T) {
	tests := []struct {
		args   []string
		method string
		params string
		want   string
	}{
		{[]string{"getblockcount"}, "getblockcount", `[]`, "840000\n"},
		{[]string{"getbestblockhash"}, "getbestblockhash", `[]`, `"` + testHash + `"` + "\n"},
		{[]string{"getbalance"}, "getbalance", `["*",1]`, "1.50000000\n"},
		{[]string{"getbalance", "--account", "savings", "--minconf", "6", "--watchonly"}, "getbalance", `["savings",6,true]`, "1.50000000\n"},
		{[]string{"getbalance", "--watchonly=false"}, "getbalance", `["*",1,false]`, "1.50000000\n"},
		{[]string{"raw", "getblockhash", "0"}, "getblockhash", `[0]`, `"` + testHash + `"` + "\n"},
		{[]string{"raw", "validateaddress", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}, "validateaddress", `["1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"]`, ""},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			d, url := newDaemon(t, map[string]string{
				"getblockcount":    `840000`,
				"getbestblockhash": `"` + testHash + `"`,
				"getblockhash":     `"` + testHash + `"`,
				"getbalance":       `1.5`,
				"validateaddress":  `{"isvalid":true}`,
			})

			out, err := execute(t, url, tt.args...)
			if err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			if tt.want != "" && out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}

			calls := d.Calls()
			if len(calls) != 1 || calls[0].Method != tt.method || calls[0].Params != tt.params {
				t.Errorf("calls = %+v, want %s %s", calls, tt.method, tt.params)
			}
		})
	}
}

func TestGetBlockVerbose(t *testing.T) {
	d, url := newDaemon(t, map[string]string{
		"getblock": `{"hash":"` + testHash + `","height":0,"tx":["4a5e1e"],"time":1231006505,"size":285,"confirmations":1}`,
	})

	out, err := execute(t, url, "getblock", testHash, "--verbose")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if calls := d.Calls(); len(calls) != 1 || calls[0].Params != `["`+testHash+`",true]` {
		t.Errorf("calls = %+v", calls)
	}

	var block map[string]any
	if err := json.Unmarshal([]byte(out), &block); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if block["hash"] != testHash || block["size"] != float64(285) {
		t.Errorf("block = %v", block)
	}
	if !strings.Contains(out, "\n  \"hash\"") {
		t.Errorf("expected indented output, got %s", out)
	}
}

func TestUsageErrorsSkipDaemon(t *testing.T) {
	tests := [][]string{
		{"getblock", "not-a-hash"},
		{"getblock", "abcd"},
		{"getrawtransaction", testHash, "--verbosity", "2"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			d, url := newDaemon(t, nil)

			_, err := execute(t, url, args...)
			if !errors.IsType(err, errors.ErrorTypeUsage) {
				t.Fatalf("expected usage error, got %v", err)
			}
			if calls := d.Calls(); len(calls) != 0 {
				t.Errorf("daemon should not be called, got %+v", calls)
			}
		})
	}
}

func TestDaemonError(t *testing.T) {
	d, url := newDaemon(t, nil)
	d.errors["getrawtransaction"] = `{"code":-5,"message":"No such mempool or blockchain transaction"}`

	_, err := execute(t, url, "getrawtransaction", testHash)
	if !errors.IsType(err, errors.ErrorTypeProtocol) {
		t.Fatalf("expected protocol error, got %v", err)
	}
	if code, ok := errors.RPCCode(err); !ok || code != -5 {
		t.Errorf("RPCCode() = %d, %v", code, ok)
	}
	if calls := d.Calls(); len(calls) != 1 || calls[0].Params != `["`+testHash+`",0]` {
		t.Errorf("calls = %+v", calls)
	}
}

func TestGetRawMempoolVerbose(t *testing.T) {
	_, url := newDaemon(t, map[string]string{
		"getrawmempool": `{"` + testHash + `":{"size":191,"vsize":110,"weight":437,"fee":0.0001,"modifiedfee":0.0001,"time":1700000000,"height":820000,` +
			`"descendantcount":1,"descendantsize":110,"descendantfees":10000,"ancestorcount":1,"ancestorsize":110,"ancestorfees":10000,` +
			`"wtxid":"` + testHash + `","fees":{"base":0.0001,"modified":0.0001,"ancestor":0.0001,"descendant":0.0001},` +
			`"depends":[],"spentby":[],"bip125-replaceable":false,"unbroadcast":false}}`,
	})

	out, err := execute(t, url, "getrawmempool", "--verbose")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	for _, want := range []string{`"txid": "` + testHash + `"`, `"fee": 0.00010000`, `"vsize": 110`, `"depends": []`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestListAddressGroupings(t *testing.T) {
	_, url := newDaemon(t, map[string]string{
		"listaddressgroupings": `[[["1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",0.5,"main"]],[["1BoatSLRHtKNngkdXEeobR76b53LETtpyT",0]]]`,
	})

	out, err := execute(t, url, "listaddressgroupings")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}

	var groups [][]map[string]any
	if err := json.Unmarshal([]byte(out), &groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0][0]["account"] != "main" || groups[0][0]["balance"] != 0.5 {
		t.Errorf("groups = %v", groups)
	}
	if _, ok := groups[1][0]["account"]; ok {
		t.Error("missing account should be omitted")
	}
}

func TestValidateAddressLocal(t *testing.T) {
	tests := []struct {
		args   []string
		valid  bool
		script string
	}{
		{[]string{"validateaddress", "--local", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}, true, "76a91462e907b15cbf27d5425399ebf6f0fb50ebb88f1888ac"},
		{[]string{"validateaddress", "--local", "--coin", "dogecoin", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"}, false, ""},
		{[]string{"validateaddress", "--local", "garbage"}, false, ""},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			d, url := newDaemon(t, nil)

			out, err := execute(t, url, tt.args...)
			if err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			var view addressView
			if err := json.Unmarshal([]byte(out), &view); err != nil {
				t.Fatal(err)
			}
			if view.IsValid != tt.valid || view.ScriptPubKey != tt.script {
				t.Errorf("view = %+v", view)
			}
			if !tt.valid && view.Error == "" {
				t.Error("expected an error message for an invalid address")
			}
			if calls := d.Calls(); len(calls) != 0 {
				t.Errorf("local decode should not call the daemon, got %+v", calls)
			}
		})
	}
}

func TestInvalidFlags(t *testing.T) {
	_, url := newDaemon(t, nil)

	if _, err := execute(t, url, "--coin", "monero", "getblockcount"); err == nil {
		t.Error("expected unknown coin to fail")
	}
	if _, err := execute(t, url, "--network", "regtest-ish", "getblockcount"); err == nil {
		t.Error("expected unknown network to fail")
	}
}

func TestParseParams(t *testing.T) {
	got := parseParams([]string{"1", "true", `{"a":1}`, "addr", `"quoted"`})
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `[1,true,{"a":1},"addr","quoted"]` {
		t.Errorf("parseParams() = %s", raw)
	}
}
