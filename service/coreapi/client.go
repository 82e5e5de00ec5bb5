package coreapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

const (
	// Format the gateway requires for the Timestamp field.
	timestampLayout = "20060102150405"

	transactionType = "CustomerPayBillOnline"

	// Tokens are refreshed this long before their reported expiry.
	tokenExpiryMargin = 30 * time.Second

	defaultTokenLifetime = 3600 * time.Second
)

var msisdnPattern = regexp.MustCompile(`^254[17]\d{8}$`)

// ValidateMSISDN checks a phone number against the gateway's expected
// format: country code prefixed digits with no leading zero or plus sign.
func ValidateMSISDN(phoneNumber string) error {
	if phoneNumber == "" {
		return &ValidationError{Field: "phoneNumber", Reason: "is required"}
	}
	if !msisdnPattern.MatchString(phoneNumber) {
		return &ValidationError{Field: "phoneNumber", Reason: "must be in MSISDN format e.g 2547XXXXXXXX"}
	}
	return nil
}

// Client represents the Daraja API client
type Client struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	HttpClient     *http.Client

	// CacheTokens short circuits repeat token fetches within the validity
	// window. Disabled means every push re-fetches a token.
	CacheTokens bool

	breaker *gobreaker.CircuitBreaker

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

// New creates a new instance of the Daraja API client
func New(baseURL, consumerKey, consumerSecret, shortCode, passkey, callbackURL string, timeout time.Duration) *Client {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}

	httpClient := &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "daraja",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		BaseURL:        baseURL,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		ShortCode:      shortCode,
		Passkey:        passkey,
		CallbackURL:    callbackURL,
		HttpClient:     httpClient,
		CacheTokens:    true,
		breaker:        breaker,
	}
}

// AccessTokenResponse represents the token endpoint's success body.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// STKPushRequest is the gateway's push initiation body.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse carries the gateway's request tracking identifiers.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type gatewayErrorBody struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// GenerateAccessToken exchanges the consumer key and secret for a short
// lived bearer token. Credentials are checked before any network call.
func (c *Client) GenerateAccessToken(ctx context.Context) (*AccessTokenResponse, error) {
	if c.ConsumerKey == "" {
		return nil, &ConfigurationError{Field: "MPESA_CONSUMER_KEY"}
	}
	if c.ConsumerSecret == "" {
		return nil, &ConfigurationError{Field: "MPESA_CONSUMER_SECRET"}
	}

	if token := c.cachedAccessToken(); token != "" {
		return &AccessTokenResponse{AccessToken: token}, nil
	}

	url := fmt.Sprintf("%s/oauth/v1/generate?grant_type=client_credentials", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.ConsumerKey + ":" + c.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.do("generate access token", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.invalidateToken()
		var errBody gatewayErrorBody
		message := string(respBody)
		if err = json.Unmarshal(respBody, &errBody); err == nil && errBody.ErrorMessage != "" {
			message = errBody.ErrorMessage
		}
		return nil, &UpstreamAuthError{StatusCode: resp.StatusCode, Message: message}
	}

	var tokenResponse AccessTokenResponse
	if err = json.Unmarshal(respBody, &tokenResponse); err != nil {
		return nil, err
	}
	if tokenResponse.AccessToken == "" {
		return nil, &MalformedResponseError{Endpoint: "oauth/v1/generate", Field: "access_token"}
	}

	if c.CacheTokens {
		c.storeToken(tokenResponse)
	}
	return &tokenResponse, nil
}

// InitiateSTKPush validates the caller supplied values, acquires a bearer
// token and submits the push request. The gateway then prompts the payer's
// handset out of band; the response only confirms the request was queued.
func (c *Client) InitiateSTKPush(ctx context.Context, phoneNumber string, amount int64, accountReference, description string) (*STKPushResponse, error) {
	if err := ValidateMSISDN(phoneNumber); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be a positive integer"}
	}
	if c.ShortCode == "" {
		return nil, &ConfigurationError{Field: "MPESA_SHORT_CODE"}
	}
	if c.Passkey == "" {
		return nil, &ConfigurationError{Field: "MPESA_PASSKEY"}
	}
	if c.CallbackURL == "" {
		return nil, &ConfigurationError{Field: "MPESA_CALLBACK_URL"}
	}

	token, err := c.GenerateAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	pushRequest := c.buildSTKPushRequest(phoneNumber, amount, accountReference, description, time.Now())

	jsonBody, err := json.Marshal(pushRequest)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/mpesa/stkpush/v1/processrequest", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.do("initiate STK push", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if resp.StatusCode == http.StatusUnauthorized {
			// The gateway can revoke a token before its reported expiry.
			c.invalidateToken()
		}
		return nil, &PushRejectedError{StatusCode: resp.StatusCode, Payload: string(respBody)}
	}

	var pushResponse STKPushResponse
	if err = json.Unmarshal(respBody, &pushResponse); err != nil {
		return nil, err
	}
	if pushResponse.CheckoutRequestID == "" {
		return nil, &MalformedResponseError{Endpoint: "mpesa/stkpush/v1/processrequest", Field: "CheckoutRequestID"}
	}
	return &pushResponse, nil
}

// buildSTKPushRequest threads the validated caller inputs into the request
// body. The password is derived per request as base64(shortcode + passkey +
// timestamp) and the timestamp is generated at call time.
func (c *Client) buildSTKPushRequest(phoneNumber string, amount int64, accountReference, description string, at time.Time) STKPushRequest {
	timestamp := at.Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.ShortCode + c.Passkey + timestamp))

	if description == "" {
		description = "Order payment"
	}

	return STKPushRequest{
		BusinessShortCode: c.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            strconv.FormatInt(amount, 10),
		PartyA:            phoneNumber,
		PartyB:            c.ShortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       c.CallbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}
}

func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	call := func() (any, error) {
		return c.HttpClient.Do(req)
	}

	var result any
	var err error
	if c.breaker != nil {
		result, err = c.breaker.Execute(call)
	} else {
		result, err = call()
	}
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Op: op, Err: err}
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) cachedAccessToken() string {
	if !c.CacheTokens {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.cachedToken
	}
	return ""
}

func (c *Client) storeToken(token AccessTokenResponse) {
	lifetime := defaultTokenLifetime
	if seconds, err := strconv.Atoi(token.ExpiresIn); err == nil && seconds > 0 {
		lifetime = time.Duration(seconds) * time.Second
	}
	if lifetime > tokenExpiryMargin {
		lifetime -= tokenExpiryMargin
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedToken = token.AccessToken
	c.tokenExpiry = time.Now().Add(lifetime)
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cachedToken = ""
	c.tokenExpiry = time.Time{}
}
