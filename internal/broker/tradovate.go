package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bingolead/retracement-engine/internal/strategy"
	"github.com/bingolead/retracement-engine/pkg/utils"
)

// TradovateAdapter is a thin REST client over the five Tradovate
// endpoints the engine needs: token issuance/renewal, account lookup,
// position lookup, and order placement. Grounded on tradovate_api.py's
// ensure_account_id/find_account_id lazy-resolve-and-cache pattern and
// the teacher's http.Client-with-timeout RPC style.
type TradovateAdapter struct {
	baseURL    string
	symbol     string
	credential Credential
	httpClient *http.Client
	logger     *zap.Logger
	tokens     *TokenManager

	mu        sync.Mutex
	accountID int
}

// Credential is the payload Tradovate's accesstokenrequest endpoint
// expects; fields are opaque to the adapter beyond being marshaled as-is.
type Credential struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	AppID      string `json:"appId"`
	AppVersion string `json:"appVersion"`
	CID        string `json:"cid"`
	Sec        string `json:"sec"`
}

// NewTradovateAdapter constructs an adapter against baseURL (e.g.
// "https://demo.tradovateapi.com/v1") for the given contract symbol. It
// performs the initial token request synchronously, matching the
// original's token_manager start-up sequence, then starts the
// background refresh loop.
func NewTradovateAdapter(ctx context.Context, baseURL, symbol string, cred Credential, refreshInterval time.Duration, logger *zap.Logger) (*TradovateAdapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &TradovateAdapter{
		baseURL:    baseURL,
		symbol:     symbol,
		credential: cred,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Named("broker.tradovate"),
	}

	token, err := a.requestAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker: initial token request: %w", err)
	}
	a.tokens = NewTokenManager(token, a, refreshInterval, logger)
	a.tokens.Start(ctx)
	return a, nil
}

// Stop ends the background token refresh loop.
func (a *TradovateAdapter) Stop() { a.tokens.Stop() }

func (a *TradovateAdapter) requestAccessToken(ctx context.Context) (string, error) {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := a.doJSON(ctx, http.MethodPost, "/auth/accesstokenrequest", "", a.credential, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// RenewToken implements Renewer for the TokenManager's refresh loop.
func (a *TradovateAdapter) RenewToken(ctx context.Context, current string) (string, error) {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := a.doJSON(ctx, http.MethodGet, "/auth/renewaccesstoken", current, nil, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// ensureAccountID lazily resolves and caches the account id for the
// adapter's symbol, mirroring ensure_account_id/find_account_id.
func (a *TradovateAdapter) ensureAccountID(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.accountID != 0 {
		return a.accountID, nil
	}

	var accounts []struct {
		ID int `json:"id"`
	}
	path := fmt.Sprintf("/account/list?name=%s", a.symbol)
	if err := a.doJSON(ctx, http.MethodGet, path, a.tokens.Token(), nil, &accounts); err != nil {
		return 0, err
	}
	if len(accounts) == 0 {
		return 0, fmt.Errorf("broker: no account found for symbol %s", a.symbol)
	}
	a.accountID = accounts[0].ID
	return a.accountID, nil
}

// EnterPosition places a single-contract market order in the given
// direction.
func (a *TradovateAdapter) EnterPosition(ctx context.Context, quantity int, side strategy.Side) error {
	accountID, err := a.ensureAccountID(ctx)
	if err != nil {
		return err
	}

	action := "Buy"
	if side == strategy.Short {
		action = "Sell"
	}
	order := map[string]interface{}{
		"accountSpec": a.symbol,
		"accountId":   accountID,
		"action":      action,
		"symbol":      a.symbol,
		"orderQty":    quantity,
		"orderType":   "Market",
		"isAutomated": true,
		"clOrdId":     utils.GenerateOrderID(),
	}

	var result map[string]interface{}
	if err := a.doJSON(ctx, http.MethodPost, "/order/placeorder", a.tokens.Token(), order, &result); err != nil {
		return fmt.Errorf("broker: place order: %w", err)
	}
	return nil
}

// NetPosition returns this account's current net signed position in the
// adapter's symbol.
func (a *TradovateAdapter) NetPosition(ctx context.Context) (int, error) {
	accountID, err := a.ensureAccountID(ctx)
	if err != nil {
		return 0, err
	}

	var positions []struct {
		AccountID int `json:"accountId"`
		NetPos    int `json:"netPos"`
	}
	if err := a.doJSON(ctx, http.MethodGet, "/position/list", a.tokens.Token(), nil, &positions); err != nil {
		return 0, fmt.Errorf("broker: list positions: %w", err)
	}

	net := 0
	for _, p := range positions {
		if p.AccountID == accountID {
			net += p.NetPos
		}
	}
	return net, nil
}

func (a *TradovateAdapter) doJSON(ctx context.Context, method, path, bearer string, body interface{}, out interface{}) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("broker: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("broker: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("broker: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("broker: %s %s returned status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("broker: decode response: %w", err)
	}
	return nil
}
