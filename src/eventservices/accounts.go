package eventservices

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tradepanel/src/eventmodels"
)

// FetchAccounts retrieves the directory of accounts the user may
// select.
func FetchAccounts(baseURL string, token string) ([]eventmodels.AccountDirectoryEntry, error) {
	url := fmt.Sprintf("%s/accounts", baseURL)

	bytes, err := fetch(url, token)
	if err != nil {
		return nil, fmt.Errorf("FetchAccounts: %w", err)
	}

	var accounts []eventmodels.AccountDirectoryEntry
	if err := json.Unmarshal(bytes, &accounts); err != nil {
		return nil, fmt.Errorf("FetchAccounts: failed to parse response: %w", err)
	}

	return accounts, nil
}

// FetchAccountConfig retrieves the risk parameters of one account,
// addressed by its persistent identifier.
func FetchAccountConfig(baseURL string, token string, persistentID string) (*eventmodels.AccountConfig, error) {
	url := fmt.Sprintf("%s/accounts/%s", baseURL, persistentID)

	bytes, err := fetch(url, token)
	if err != nil {
		return nil, fmt.Errorf("FetchAccountConfig: %w", err)
	}

	var config eventmodels.AccountConfig
	if err := json.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("FetchAccountConfig: failed to parse response: %w", err)
	}

	return &config, nil
}

func fetch(url string, token string) ([]byte, error) {
	client := http.Client{
		Timeout: 10 * time.Second,
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: failed to create request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))

	res, err := client.Do(req)
	if err != nil {
		return nil, eventmodels.NewTransportError("fetch", err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, eventmodels.NewTransportError(fmt.Sprintf("fetch %s", url), fmt.Errorf("unexpected status: %s", res.Status))
	}

	bytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: failed to read response body: %w", err)
	}

	return bytes, nil
}
