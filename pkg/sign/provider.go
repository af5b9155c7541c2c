// Package sign fetches security signatures for whitelisted commands from an
// external sign server.
package sign

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ZentaChain/ntlink/pkg/wire"
)

const defaultTimeout = 10 * time.Second

var ErrSignServer = errors.New("sign server rejected request")

// DefaultCommands is the set of commands the server refuses unsigned
var DefaultCommands = []string{
	"trpc.o3.ecdh_access.EcdhAccess.SsoEstablishShareKey",
	"trpc.o3.ecdh_access.EcdhAccess.SsoSecureAccess",
	"trpc.o3.report.Report.SsoReport",
	"MessageSvc.PbSendMsg",
	"wtlogin.trans_emp",
	"wtlogin.login",
	"wtlogin.exchange_emp",
	"trpc.login.ecdh.EcdhService.SsoKeyExchange",
	"trpc.login.ecdh.EcdhService.SsoNTLoginPasswordLogin",
	"trpc.login.ecdh.EcdhService.SsoNTLoginEasyLogin",
	"trpc.login.ecdh.EcdhService.SsoNTLoginPasswordLoginNewDevice",
	"trpc.login.ecdh.EcdhService.SsoNTLoginEasyLoginUnusualDevice",
	"trpc.login.ecdh.EcdhService.SsoNTLoginPasswordLoginUnusualDevice",
	"trpc.login.ecdh.EcdhService.SsoNTLoginRefreshTicket",
	"trpc.login.ecdh.EcdhService.SsoNTLoginRefreshA2",
	"OidbSvcTrpcTcp.0x11ec_1",
	"OidbSvcTrpcTcp.0x758_1",
	"OidbSvcTrpcTcp.0x7c1_1",
	"OidbSvcTrpcTcp.0x7c2_5",
	"OidbSvcTrpcTcp.0x10db_1",
	"OidbSvcTrpcTcp.0x8a1_7",
	"OidbSvcTrpcTcp.0x89a_0",
	"OidbSvcTrpcTcp.0x89a_15",
	"OidbSvcTrpcTcp.0x88d_0",
	"OidbSvcTrpcTcp.0x88d_14",
	"OidbSvcTrpcTcp.0x112a_1",
	"OidbSvcTrpcTcp.0x587_74",
	"OidbSvcTrpcTcp.0x1100_1",
	"OidbSvcTrpcTcp.0x1102_1",
	"OidbSvcTrpcTcp.0x1103_1",
	"OidbSvcTrpcTcp.0x1107_1",
	"OidbSvcTrpcTcp.0x1105_1",
	"OidbSvcTrpcTcp.0xf88_1",
	"OidbSvcTrpcTcp.0xf89_1",
	"OidbSvcTrpcTcp.0xf57_1",
	"OidbSvcTrpcTcp.0xf57_106",
	"OidbSvcTrpcTcp.0xf57_9",
	"OidbSvcTrpcTcp.0xf55_1",
	"OidbSvcTrpcTcp.0xf67_1",
	"OidbSvcTrpcTcp.0xf67_5",
	"OidbSvcTrpcTcp.0x6d9_4",
}

// DefaultURL returns the public sign endpoint for a client version
func DefaultURL(appClientVersion uint32) string {
	return fmt.Sprintf("https://sign.lagrangecore.org/api/sign/%d", appClientVersion)
}

type signRequest struct {
	Cmd string `json:"cmd"`
	Seq uint32 `json:"seq"`
	Src string `json:"src"`
}

type signResponse struct {
	Value struct {
		Sign  string `json:"sign"`
		Token string `json:"token"`
		Extra string `json:"extra"`
	} `json:"value"`
}

// Provider posts packet bodies to a sign server
type Provider struct {
	url       string
	client    *http.Client
	whitelist map[string]struct{}
}

// NewProvider creates a provider for url. A nil commands list uses
// DefaultCommands; a nil client gets a short timeout.
func NewProvider(url string, commands []string, client *http.Client) *Provider {
	if commands == nil {
		commands = DefaultCommands
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	wl := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		wl[c] = struct{}{}
	}
	return &Provider{url: url, client: client, whitelist: wl}
}

func (p *Provider) IsWhitelisted(command string) bool {
	_, ok := p.whitelist[command]
	return ok
}

// Sign asks the server for the signature bundle of one packet
func (p *Provider) Sign(ctx context.Context, uin int64, command string, sequence uint32, body []byte) (*wire.SecInfo, error) {
	payload, err := json.Marshal(signRequest{Cmd: command, Seq: sequence, Src: hex.EncodeToString(body)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrSignServer, resp.StatusCode)
	}

	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sign response: %w", err)
	}

	info := &wire.SecInfo{}
	for _, f := range []struct {
		name string
		src  string
		dst  *[]byte
	}{
		{"sign", out.Value.Sign, &info.Sign},
		{"token", out.Value.Token, &info.Token},
		{"extra", out.Value.Extra, &info.Extra},
	} {
		b, err := hex.DecodeString(f.src)
		if err != nil {
			return nil, fmt.Errorf("%w: bad %s hex", ErrSignServer, f.name)
		}
		*f.dst = b
	}

	log.Printf("🔏 [sign] signed %s seq=%d for %d", command, sequence, uin)
	return info, nil
}
