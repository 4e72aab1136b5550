package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/railzwaylabs/plansync/internal/config"
	"github.com/railzwaylabs/plansync/internal/plan/reconcile"
)

const defaultBaseURL = "https://api.stripe.com"

var ErrMissingSecretKey = errors.New("stripe_secret_key_missing")

// APIError is a non-2xx response from the Stripe API.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Param      string `json:"param"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe api error: %d %s (%s): %s", e.StatusCode, e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("stripe api error: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// Client talks to the plans endpoint. It implements reconcile.RemoteAPI.
type Client struct {
	baseURL    string
	secretKey  string
	apiVersion string
	http       *http.Client
}

func NewClient(cfg config.StripeConfig) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		secretKey:  strings.TrimSpace(cfg.SecretKey),
		apiVersion: strings.TrimSpace(cfg.APIVersion),
		http:       &http.Client{Timeout: timeout},
	}
}

type stripePlan struct {
	ID      string `json:"id"`
	Product any    `json:"product"` // string id or expanded object
	Active  bool   `json:"active"`
}

func (c *Client) RetrievePlan(ctx context.Context, id string) (*reconcile.RemotePlan, error) {
	endpoint := fmt.Sprintf("%s/v1/plans/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var plan stripePlan
	if err := c.do(req, &plan); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", reconcile.ErrNotFound, apiErr)
		}
		return nil, err
	}
	return plan.toRemote(), nil
}

func (c *Client) CreatePlan(ctx context.Context, payload reconcile.Payload) (*reconcile.RemotePlan, error) {
	data := url.Values{}
	encodeForm(data, "", map[string]any(payload))

	endpoint := c.baseURL + "/v1/plans"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var plan stripePlan
	if err := c.do(req, &plan); err != nil {
		return nil, err
	}
	return plan.toRemote(), nil
}

func (c *Client) do(req *http.Request, out any) error {
	if c.secretKey == "" {
		return ErrMissingSecretKey
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if c.apiVersion != "" {
		req.Header.Set("Stripe-Version", c.apiVersion)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error APIError `json:"error"`
		}
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, &envelope) == nil {
			envelope.Error.StatusCode = resp.StatusCode
			apiErr = &envelope.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (p stripePlan) toRemote() *reconcile.RemotePlan {
	remote := &reconcile.RemotePlan{ID: p.ID, Active: p.Active}
	switch product := p.Product.(type) {
	case string:
		remote.Product = product
	case map[string]any:
		if id, ok := product["id"].(string); ok {
			remote.Product = id
		}
	}
	return remote
}

// encodeForm flattens nested values into Stripe's bracketed form keys, e.g.
// product[name] and tiers[0][up_to]. Nil values are skipped, except an
// unbounded tier limit which Stripe spells "inf".
func encodeForm(data url.Values, prefix string, value any) {
	switch v := value.(type) {
	case nil:
		if strings.HasSuffix(prefix, "[up_to]") {
			data.Set(prefix, "inf")
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeForm(data, formKey(prefix, k), v[k])
		}
	case []map[string]any:
		for i, item := range v {
			encodeForm(data, formKey(prefix, strconv.Itoa(i)), item)
		}
	case []any:
		for i, item := range v {
			encodeForm(data, formKey(prefix, strconv.Itoa(i)), item)
		}
	case string:
		data.Set(prefix, v)
	case int64:
		data.Set(prefix, strconv.FormatInt(v, 10))
	case int:
		data.Set(prefix, strconv.Itoa(v))
	case bool:
		data.Set(prefix, strconv.FormatBool(v))
	default:
		data.Set(prefix, fmt.Sprint(v))
	}
}

func formKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "[" + key + "]"
}
