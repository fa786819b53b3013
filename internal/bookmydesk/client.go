package bookmydesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// Options configures a Client. All fields are constructed once at startup and
// passed in; the client holds no process-wide state.
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	UserAgent    string
	Timeout      time.Duration
}

// Client is a typed wrapper over the booking API. Callers are expected to
// hold a valid access token before invoking anything but the auth endpoints.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
	userAgent    string
	logger       *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		userAgent:    opts.UserAgent,
		logger:       logger,
	}
}

// RequestLoginCode asks the API to mail a one-time login code.
func (c *Client) RequestLoginCode(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.doJSON(ctx, http.MethodPost, "/request-login", nil, body, "", nil)
}

// TokenLogin exchanges an emailed one-time code for a token pair.
func (c *Client) TokenLogin(ctx context.Context, email, otp string) (*TokenPair, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"username":      {email},
		"password":      {otp},
		"scopes":        {""},
	}
	return c.token(ctx, form)
}

// TokenRefresh exchanges a refresh token for a new token pair.
func (c *Client) TokenRefresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {refreshToken},
	}
	return c.token(ctx, form)
}

func (c *Client) token(ctx context.Context, form url.Values) (*TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var pair TokenPair
	if err := c.send(req, "", &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// RevokeToken invalidates the session remotely. Callers treat failures as
// non-fatal: disconnecting always succeeds locally.
func (c *Client) RevokeToken(ctx context.Context, accessToken string) error {
	return c.doJSON(ctx, http.MethodDelete, "/token", nil, nil, accessToken, nil)
}

// Me fetches the authenticated profile. A 401 here means the access token
// needs a refresh.
func (c *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	var envelope struct {
		Result struct {
			ID        string `json:"id"`
			Email     string `json:"email"`
			FirstName string `json:"firstName"`
			Companies []struct {
				ID string `json:"id"`
			} `json:"companies"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/me/v3", nil, nil, accessToken, &envelope); err != nil {
		return nil, err
	}

	profile := &Profile{
		ID:        envelope.Result.ID,
		Email:     envelope.Result.Email,
		FirstName: envelope.Result.FirstName,
	}
	if len(envelope.Result.Companies) > 0 {
		profile.CompanyID = envelope.Result.Companies[0].ID
	}
	return profile, nil
}

// CompanyExtended lists the company's locations with their maps and seats.
func (c *Client) CompanyExtended(ctx context.Context, accessToken, companyID string) ([]Location, error) {
	var envelope struct {
		Result struct {
			Locations []Location `json:"locations"`
		} `json:"result"`
	}
	path := "/company/" + url.PathEscape(companyID) + "/extended"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, accessToken, &envelope); err != nil {
		return nil, err
	}
	return envelope.Result.Locations, nil
}

// ListReservations lists reservations in a date range, optionally filtered by
// type and map.
func (c *Client) ListReservations(ctx context.Context, accessToken string, params ListParams) ([]Reservation, error) {
	query := url.Values{}
	if params.From != "" {
		query.Set("from", params.From)
	}
	if params.To != "" {
		query.Set("to", params.To)
	}
	if params.Type != "" {
		query.Set("type", string(params.Type))
	}
	if params.MapID != "" {
		query.Set("mapId", params.MapID)
	}
	if params.Take > 0 {
		query.Set("take", strconv.Itoa(params.Take))
	}

	var envelope struct {
		Result struct {
			Items []Reservation `json:"items"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/reservations/v3", query, nil, accessToken, &envelope); err != nil {
		return nil, err
	}
	return envelope.Result.Items, nil
}

// CreateReservation books a spot and returns the new reservation id.
func (c *Client) CreateReservation(ctx context.Context, accessToken string, params CreateParams) (string, error) {
	body := map[string]string{
		"type":      string(params.Type),
		"dateStart": params.Date,
		"from":      params.From,
		"to":        params.To,
	}
	if params.SeatID != "" {
		body["seatId"] = params.SeatID
	}

	var envelope struct {
		Result struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/reservation/v3", nil, body, accessToken, &envelope); err != nil {
		return "", err
	}
	return envelope.Result.ID, nil
}

// CheckInOut checks a reservation in or out.
func (c *Client) CheckInOut(ctx context.Context, accessToken, reservationID string, checkIn bool) error {
	direction := "checkout"
	if checkIn {
		direction = "checkin"
	}
	path := "/reservation/" + url.PathEscape(reservationID) + "/" + direction
	return c.doJSON(ctx, http.MethodPut, path, nil, nil, accessToken, nil)
}

// DeleteReservation cancels a reservation.
func (c *Client) DeleteReservation(ctx context.Context, accessToken, reservationID string) error {
	path := "/reservation/" + url.PathEscape(reservationID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, accessToken, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, accessToken string, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, accessToken, out)
}

func (c *Client) send(req *http.Request, accessToken string, out any) error {
	requestID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Booking API request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("request_id", requestID),
		)
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
