package baidu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const DefaultTokenURL = "https://aip.baidubce.com/oauth/2.0/token"

// Credential is the bearer token obtained from the client-credentials grant.
// It is fetched once and shared read-only by every request.
type Credential struct {
	AccessToken string
}

func (c Credential) Valid() bool {
	return c.AccessToken != ""
}

// Exchange trades an API key pair for an access token.
func Exchange(ctx context.Context, client *http.Client, tokenURL, apiKey, secretKey string) (Credential, error) {
	if apiKey == "" || secretKey == "" {
		return Credential{}, errors.New("api key and secret key are required")
	}

	if client == nil {
		client = http.DefaultClient
	}

	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {apiKey},
		"client_secret": {secretKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	var token TokenResponse

	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return Credential{}, fmt.Errorf("decode token response (status %d): %w", resp.StatusCode, err)
	}

	if token.Error != "" {
		return Credential{}, fmt.Errorf("token exchange rejected: %s: %s", token.Error, token.ErrorDescription)
	}

	if token.AccessToken == "" {
		return Credential{}, fmt.Errorf("token response without access_token (status %d)", resp.StatusCode)
	}

	return Credential{AccessToken: token.AccessToken}, nil
}
