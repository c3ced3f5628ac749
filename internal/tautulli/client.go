package tautulli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"plexdigest/internal/config"
	"plexdigest/internal/retry"
	"plexdigest/internal/util"

	"github.com/go-resty/resty/v2"
)

var NilLogger = log.New(io.Discard, "", 0)

// ErrUnexpectedFormat reports a response body that does not carry the
// Tautulli API envelope. It is never retried; a shape mismatch will not fix
// itself.
var ErrUnexpectedFormat = errors.New("unexpected response format from Tautulli")

// APIError is a well-formed Tautulli response whose result field was not
// "success". The remote message is redacted before it is stored here.
type APIError struct {
	Cmd     string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Tautulli command '%s' returned unsuccessful response: %s", e.Cmd, e.Message)
}

var apikeyPattern = regexp.MustCompile(`(?i)(apikey=)[^&\s]+`)

type Client struct {
	resty  *resty.Client
	apiKey string
	policy retry.Policy
	logger *log.Logger
}

func NewClient(cfg config.Config, appLogger *log.Logger) *Client {
	if appLogger == nil {
		appLogger = log.Default()
	}
	baseURL := strings.TrimSuffix(cfg.Tautulli.URL, "/") + "/api/v2"
	restyClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(time.Duration(cfg.Tautulli.TimeoutSeconds) * time.Second)
	return &Client{
		resty:  restyClient,
		apiKey: cfg.Tautulli.APIKey,
		policy: retry.Policy{
			MaxAttempts: cfg.Tautulli.RetryCount,
			BaseDelay:   time.Duration(cfg.Tautulli.RetryBaseSeconds) * time.Second,
		},
		logger: appLogger,
	}
}

// SetSleep swaps the backoff sleep function; tests use it to avoid real
// delays.
func (c *Client) SetSleep(sleep func(time.Duration)) {
	c.policy.Sleep = sleep
}

// Redact strips the API key from s: both the literal key value and any
// apikey=<value> query fragment. Every error derived from a request passes
// through here before it is logged or returned.
func (c *Client) Redact(s string) string {
	if c.apiKey != "" {
		s = strings.ReplaceAll(s, c.apiKey, "***")
	}
	return apikeyPattern.ReplaceAllString(s, "${1}***")
}

type apiEnvelope struct {
	Response struct {
		Result  string          `json:"result"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"response"`
}

func (c *Client) request(cmd string, params map[string]string) (json.RawMessage, error) {
	var data json.RawMessage

	policy := c.policy
	policy.Notify = func(attempt int, delay time.Duration, err error) {
		c.logger.Printf("  %s Request failed for cmd=%s (attempt %d/%d): %v. Retrying in %s...",
			util.Yellow("[TAUTULLI]"), cmd, attempt, policy.MaxAttempts, err, delay)
	}

	err := policy.Do(func() error {
		resp, err := c.resty.R().
			SetQueryParam("apikey", c.apiKey).
			SetQueryParam("cmd", cmd).
			SetQueryParams(params).
			Get("")
		if err != nil {
			return fmt.Errorf("request for cmd=%s failed: %s", cmd, c.Redact(err.Error()))
		}
		if !resp.IsSuccess() {
			return fmt.Errorf("Tautulli returned status %s for cmd=%s: %s",
				resp.Status(), cmd, c.Redact(resp.String()))
		}

		var envelope apiEnvelope
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil || envelope.Response.Result == "" {
			return retry.Permanent(fmt.Errorf("%w for cmd=%s", ErrUnexpectedFormat, cmd))
		}
		if envelope.Response.Result != "success" {
			message := envelope.Response.Message
			if message == "" {
				message = "unknown error"
			}
			return &APIError{Cmd: cmd, Message: c.Redact(message)}
		}
		data = envelope.Response.Data
		return nil
	})
	if err != nil {
		c.logger.Printf("  %s Request failed for cmd=%s after %d attempts: %v",
			util.RedBold("[TAUTULLI ERR]"), cmd, c.policy.MaxAttempts, err)
		return nil, err
	}
	return data, nil
}

// GetRecentlyAdded requests up to count recently-added items. Tautulli has
// no server-side date filter, so days is informational only; the caller
// post-filters by timestamp.
func (c *Client) GetRecentlyAdded(days, count int) (json.RawMessage, error) {
	c.logger.Printf("  %s Requesting %s recently added items (filtering to last %d days client-side)",
		util.Cyan("[TAUTULLI]"), util.Bold(strconv.Itoa(count)), days)
	return c.request("get_recently_added", map[string]string{
		"count": strconv.Itoa(count),
	})
}

// GetServerIdentity fetches the Plex machine identifier used for building
// deep links into the library.
func (c *Client) GetServerIdentity() (ServerIdentity, error) {
	raw, err := c.request("get_server_identity", nil)
	if err != nil {
		return ServerIdentity{}, err
	}
	var identity ServerIdentity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return ServerIdentity{}, fmt.Errorf("%w: decoding server identity", ErrUnexpectedFormat)
	}
	return identity, nil
}
