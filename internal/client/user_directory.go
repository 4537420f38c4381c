package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashora/settlement-service/internal/domain"
)

// HTTPUserDirectory resolves a user's registered payout wallet from the user
// service. Callers snapshot the result; this client never caches, so a stale
// read cannot leak into an order.
type HTTPUserDirectory struct {
	Address string
	client  *http.Client
}

func NewHTTPUserDirectory(address string, timeout time.Duration) *HTTPUserDirectory {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPUserDirectory{
		Address: address,
		client:  &http.Client{Timeout: timeout},
	}
}

type registeredWalletResponse struct {
	Address string `json:"address"`
	Error   string `json:"error"`
}

func (d *HTTPUserDirectory) RegisteredWalletAddress(userID string, chain domain.Chain) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%s/wallet?chain=%s",
		d.Address, url.PathEscape(userID), url.QueryEscape(string(chain)))

	response, err := d.client.Get(endpoint)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	responseBodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}

	var body registeredWalletResponse
	if err := json.Unmarshal(responseBodyBytes, &body); err != nil {
		return "", err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		if body.Error != "" {
			return "", errors.New(body.Error)
		}
		return "", fmt.Errorf("user service returned status %d", response.StatusCode)
	}
	if body.Address == "" {
		return "", fmt.Errorf("no registered %s wallet for user %s", chain, userID)
	}
	return body.Address, nil
}
