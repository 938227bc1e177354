package remote

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"

	"github.com/mzilka/tripbooker/config"
	"github.com/mzilka/tripbooker/internal/domain"
)

// Env selects which reservation backend deployment the client talks to.
type Env string

const (
	EnvProd Env = "prod"
	EnvQA   Env = "qa"
	EnvDev  Env = "dev"
)

var envURLs = map[Env]string{
	EnvProd: "https://pubapi.ybus.cz/restapi",
	EnvQA:   "https://qa-pubapi.ybus.cz/restapi",
	EnvDev:  "https://dev-pubapi.ybus.cz/restapi",
}

const (
	defaultTimeout = 30 * time.Second

	// Create endpoints speak a versioned media type.
	versionedJSON = "application/1.2.0+json"
)

// Endpoints that authenticate by request-body HMAC instead of a session.
var bodyHashEndpoints = map[string]bool{
	"/tickets/create/unregistered":      true,
	"/tickets/timetickets/unregistered": true,
}

// Fault is a rejected remote call: validation error, business-rule rejection
// or transport failure, with the backend message when one was decoded.
type Fault struct {
	Endpoint string
	Status   int
	Message  string
}

func (f *Fault) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("remote %s: status %d: %s", f.Endpoint, f.Status, f.Message)
	}
	return fmt.Sprintf("remote %s: status %d", f.Endpoint, f.Status)
}

type faultEnvelope struct {
	Message string `json:"message"`
}

// Client talks to the reservation backend. It owns the session bearer token;
// installing a token takes effect for every subsequent call.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	currency    string
	language    string
	origin      string
	bodyHashKey string
	logger      *logrus.Logger
	now         func() time.Time

	mu    sync.RWMutex
	token string
}

func NewClient(cfg config.RemoteConfig, logger *logrus.Logger) *Client {
	base, ok := envURLs[Env(cfg.Env)]
	if !ok {
		base = envURLs[EnvQA]
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     base,
		currency:    cfg.Currency,
		language:    cfg.Language,
		origin:      cfg.Origin,
		bodyHashKey: cfg.BodyHashKey,
		logger:      logger,
		now:         time.Now,
	}
}

// SetToken installs the bearer token used by subsequent calls. An empty token
// clears the session.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the currently installed bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type call struct {
	method    string
	path      string
	query     url.Values
	body      interface{}
	out       interface{}
	mediaType string
	txToken   bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	var payload []byte
	if cl.body != nil {
		var err error
		payload, err = json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", cl.path, err)
		}
	}

	endpoint := c.baseURL + cl.path
	if len(cl.query) > 0 {
		endpoint += "?" + cl.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", cl.path, err)
	}

	req.Header.Set("Cache-Control", "no-cache")
	if c.currency != "" {
		req.Header.Set("X-Currency", c.currency)
	}
	if c.language != "" {
		req.Header.Set("X-Lang", c.language)
	}
	if c.origin != "" {
		req.Header.Set("X-Application-Origin", c.origin)
	}
	if cl.body != nil {
		mediaType := cl.mediaType
		if mediaType == "" {
			mediaType = "application/json"
		}
		req.Header.Set("Content-Type", mediaType)
	}
	if cl.txToken {
		req.Header.Set("X-TxToken", TxToken(c.now()))
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if bodyHashEndpoints[cl.path] && c.bodyHashKey != "" {
		req.Header.Set("X-Hash", bodyHash(payload, c.bodyHashKey))
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		// Keeps context.Canceled recognizable for the caller.
		return fmt.Errorf("call %s: %w", cl.path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", cl.path, err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		fault := &Fault{Endpoint: cl.path, Status: res.StatusCode}
		var envelope faultEnvelope
		if json.Unmarshal(data, &envelope) == nil {
			fault.Message = envelope.Message
		}
		c.logger.WithFields(logrus.Fields{
			"endpoint": cl.path,
			"status":   res.StatusCode,
			"message":  fault.Message,
		}).Warn("remote call rejected")
		return fault
	}

	if cl.out != nil && len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, cl.out); err != nil {
			return fmt.Errorf("decode %s response: %w", cl.path, err)
		}
	}
	return nil
}

// bodyHash computes the HMAC-SHA3-512 signature of the request body required
// by the anonymous signup-like endpoints.
func bodyHash(payload []byte, key string) string {
	mac := hmac.New(sha3.New512, []byte(key))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticate refreshes the identity bound to the current token. A null body
// means the backend does not know the session; that is not a fault.
func (c *Client) Authenticate(ctx context.Context) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := c.do(ctx, call{method: http.MethodGet, path: "/users/authenticate", out: &profile}); err != nil {
		return nil, err
	}
	if profile.AccountCode == "" && profile.Email == "" {
		return nil, nil
	}
	return &profile, nil
}

func (c *Client) CreateRegisteredSeatTickets(ctx context.Context, group SeatTicketGroup) (*SeatTicketData, error) {
	var out SeatTicketData
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/tickets/create/registered",
		body:      group,
		out:       &out,
		mediaType: versionedJSON,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type unregisteredSeatPayload struct {
	SeatTicketGroup
	AgreeWithTerms bool `json:"agreeWithTerms"`
}

func (c *Client) CreateUnregisteredSeatTickets(ctx context.Context, group SeatTicketGroup) (*UnregisteredSeatTicketData, error) {
	var out UnregisteredSeatTicketData
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/tickets/create/unregistered",
		body:      unregisteredSeatPayload{SeatTicketGroup: group, AgreeWithTerms: true},
		out:       &out,
		mediaType: versionedJSON,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRegisteredTimeTickets(ctx context.Context, group TimeTicketGroup) ([]int64, error) {
	var ids []int64
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/tickets/timeticket",
		body:      group,
		out:       &ids,
		mediaType: versionedJSON,
		txToken:   true,
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type timeTicketTokenData struct {
	Token struct {
		Token string `json:"token"`
	} `json:"token"`
}

func (c *Client) CreateUnregisteredTimeTickets(ctx context.Context, group UnregisteredTimeTicketGroup) (string, error) {
	var out timeTicketTokenData
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/tickets/timetickets/unregistered",
		body:      group,
		out:       &out,
		mediaType: versionedJSON,
		txToken:   true,
	})
	if err != nil {
		return "", err
	}
	return out.Token.Token, nil
}

func (c *Client) CreateRegisteredSroTickets(ctx context.Context, group SroTicketGroup) error {
	return c.do(ctx, call{
		method:  http.MethodPost,
		path:    "/tickets/sro/registered",
		body:    group,
		txToken: true,
	})
}

type unregisteredSroPayload struct {
	SroTicketGroup
	AgreeWithTerms bool `json:"agreeWithTerms"`
}

type sroTokenData struct {
	Token string `json:"token"`
}

func (c *Client) CreateUnregisteredSroTickets(ctx context.Context, group SroTicketGroup) (string, error) {
	var out sroTokenData
	err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    "/tickets/sro/unregistered",
		body:    unregisteredSroPayload{SroTicketGroup: group, AgreeWithTerms: true},
		out:     &out,
		txToken: true,
	})
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

// UnpaidSroTickets fetches the most recent unpaid standing-room tickets. The
// registered SRO create endpoint returns no ids, so the immediate-charge path
// has to look them up afterwards.
func (c *Client) UnpaidSroTickets(ctx context.Context) ([]SroTicket, error) {
	query := url.Values{}
	query.Set("limit", "1")
	query.Add("ticketStates", "UNPAID")
	var out []SroTicket
	if err := c.do(ctx, call{method: http.MethodGet, path: "/tickets/sro", query: query, out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) VerifyPercentualDiscount(ctx context.Context, id int64, req DiscountVerifyRequest) (*DiscountVerification, error) {
	var out DiscountVerification
	path := "/discounts/percentual/" + strconv.FormatInt(id, 10) + "/verify"
	if err := c.do(ctx, call{method: http.MethodPost, path: path, body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyCodeDiscount(ctx context.Context, code string, req DiscountVerifyRequest) (*DiscountVerification, error) {
	var out DiscountVerification
	path := "/discounts/code/" + url.PathEscape(code) + "/verify"
	if err := c.do(ctx, call{method: http.MethodPost, path: path, body: req, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChargeFromCredit(ctx context.Context, payload CreditChargePayload) error {
	return c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/payments/credit/charge",
		body:      payload,
		mediaType: versionedJSON,
		txToken:   true,
	})
}

func (c *Client) Pay(ctx context.Context, payload PayPayload) (*PayResponse, error) {
	var out PayResponse
	err := c.do(ctx, call{
		method:    http.MethodPost,
		path:      "/payments/pay",
		body:      payload,
		out:       &out,
		mediaType: versionedJSON,
		txToken:   true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
