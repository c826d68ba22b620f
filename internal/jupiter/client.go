package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://quote-api.jup.ag/v6"

// Client talks to the Jupiter swap aggregator API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
	}
}

// Quote is a priced route for a swap, valid only briefly. Callers must fetch
// a fresh quote immediately before execution.
type Quote struct {
	InputMint   string          `json:"inputMint"`
	OutputMint  string          `json:"outputMint"`
	InAmount    decimal.Decimal `json:"-"`
	OutAmount   decimal.Decimal `json:"-"`
	SlippageBps int             `json:"slippageBps"`
	RoutePlan   json.RawMessage `json:"routePlan,omitempty"`
	FetchedAt   time.Time       `json:"-"`
}

// quoteResponse mirrors the wire format; amounts arrive as strings
type quoteResponse struct {
	InputMint   string          `json:"inputMint"`
	OutputMint  string          `json:"outputMint"`
	InAmount    string          `json:"inAmount"`
	OutAmount   string          `json:"outAmount"`
	SlippageBps int             `json:"slippageBps"`
	RoutePlan   json.RawMessage `json:"routePlan"`
}

type swapResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error,omitempty"`
}

// GetQuote requests a fresh price quote for swapping amount of inputMint into
// outputMint within the given slippage tolerance.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount decimal.Decimal, slippageBps int) (*Quote, error) {
	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", amount.String())
	params.Set("slippageBps", fmt.Sprintf("%d", slippageBps))

	reqURL := fmt.Sprintf("%s/quote?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quote request returned %d: %s", resp.StatusCode, string(body))
	}

	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}

	inAmount, err := decimal.NewFromString(qr.InAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid inAmount in quote: %w", err)
	}
	outAmount, err := decimal.NewFromString(qr.OutAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid outAmount in quote: %w", err)
	}

	return &Quote{
		InputMint:   qr.InputMint,
		OutputMint:  qr.OutputMint,
		InAmount:    inAmount,
		OutAmount:   outAmount,
		SlippageBps: qr.SlippageBps,
		RoutePlan:   qr.RoutePlan,
		FetchedAt:   time.Now(),
	}, nil
}

// Execute submits the swap for the given quote on behalf of payer and returns
// the execution signature.
func (c *Client) Execute(ctx context.Context, payer string, quote *Quote) (string, error) {
	payload := map[string]interface{}{
		"userPublicKey": payer,
		"quoteResponse": map[string]interface{}{
			"inputMint":   quote.InputMint,
			"outputMint":  quote.OutputMint,
			"inAmount":    quote.InAmount.String(),
			"outAmount":   quote.OutAmount.String(),
			"slippageBps": quote.SlippageBps,
			"routePlan":   quote.RoutePlan,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("swap request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("swap request returned %d: %s", resp.StatusCode, string(respBody))
	}

	var sr swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("failed to parse swap response: %w", err)
	}
	if sr.Error != "" {
		return "", fmt.Errorf("swap rejected: %s", sr.Error)
	}

	return sr.Signature, nil
}
