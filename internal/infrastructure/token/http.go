package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/drip-labs/dripd/internal/core/ports"
)

const transferEndpoint = "/transfer"

type transferRequest struct {
	AssetID string `json:"asset_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  uint64 `json:"amount"`
}

type transferResponse struct {
	Ok bool `json:"ok"`
}

type httpTransfer struct {
	transferURL string
	client      *http.Client
}

// NewHTTPTransfer returns a token transfer capability backed by the token
// contract bridge at the given base URL.
func NewHTTPTransfer(baseURL string) (ports.TokenTransfer, error) {
	if len(baseURL) == 0 {
		return nil, fmt.Errorf("token transfer URL is required")
	}
	transferURL, err := url.JoinPath(baseURL, transferEndpoint)
	if err != nil {
		return nil, err
	}
	return &httpTransfer{
		transferURL: transferURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (t *httpTransfer) Transfer(
	ctx context.Context, assetID, from, to string, amount uint64,
) (bool, error) {
	body, err := json.Marshal(transferRequest{
		AssetID: assetID,
		From:    from,
		To:      to,
		Amount:  amount,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, t.transferURL, bytes.NewReader(body),
	)
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("transfer request failed: %w", err)
	}
	// nolint:errcheck
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("transfer request failed with status %d", resp.StatusCode)
	}

	var result transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to parse transfer response: %w", err)
	}
	return result.Ok, nil
}

type unsupportedTransfer struct{}

// NewUnsupportedTransfer returns a transfer capability that fails every
// call. It backs deployments without a token contract bridge: token-claim
// transfers stay queued until an operator configures one.
func NewUnsupportedTransfer() ports.TokenTransfer {
	return unsupportedTransfer{}
}

func (unsupportedTransfer) Transfer(
	_ context.Context, assetID, _, _ string, _ uint64,
) (bool, error) {
	return false, fmt.Errorf("no token transfer bridge configured for asset %s", assetID)
}
