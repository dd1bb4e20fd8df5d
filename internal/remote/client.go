package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/keshav2k4/employee-tracker-App/internal/history"
	"github.com/keshav2k4/employee-tracker-App/internal/location"
)

const (
	updatePath  = "/api/employee/location/update"
	loginPath   = "/api/auth/login"
	historyPath = "/location/history"

	statusSuccess = "success"
)

var (
	ErrAuthMissing = errors.New("auth token or employee id missing")
	ErrNetwork     = errors.New("network error")
)

// ServerError is a non-2xx reply, or a 2xx reply whose status
// discriminator is not "success".
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
}

type Options struct {
	BaseURL       string
	Subdomain     string
	AppOS         string
	AppUser       string
	AppPassword   string
	BasicUser     string
	BasicPassword string
	Timeout       time.Duration
}

// Client talks to the tenant API. Every request carries the tenant headers;
// authenticated requests add user-access-token. Nothing is retried here.
type Client struct {
	opts Options
}

func NewClient(opts Options) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{opts: opts}
}

func (c *Client) newAgent(method, path, token string) *fiber.Agent {
	var agent *fiber.Agent
	if method == fiber.MethodGet {
		agent = fiber.Get(c.opts.BaseURL + path)
	} else {
		agent = fiber.Post(c.opts.BaseURL + path)
	}
	agent.Timeout(c.opts.Timeout)
	agent.Set("subdomain", c.opts.Subdomain)
	agent.Set("app-os", c.opts.AppOS)
	agent.Set("data-format", "j")
	agent.Set("is-api-call", "1")
	if c.opts.AppUser != "" {
		agent.Set("app-auth-user", c.opts.AppUser)
		agent.Set("app-auth-pwd", c.opts.AppPassword)
	}
	if c.opts.BasicUser != "" {
		agent.BasicAuth(c.opts.BasicUser, c.opts.BasicPassword)
	}
	if token != "" {
		agent.Set("user-access-token", token)
	}
	return agent
}

func (c *Client) postForm(ctx context.Context, path, token string, form url.Values) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	agent := c.newAgent(fiber.MethodPost, path, token)
	agent.ContentType(fiber.MIMEApplicationForm)
	agent.BodyString(form.Encode())

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, errs[0])
	}
	return code, body, nil
}

// Push sends one sample to the location update endpoint.
func (c *Client) Push(ctx context.Context, sample location.Sample, token, employeeID string) error {
	if token == "" || employeeID == "" {
		return ErrAuthMissing
	}

	form := url.Values{}
	form.Set("employee_id", employeeID)
	form.Set("latitude", strconv.FormatFloat(sample.Latitude, 'f', -1, 64))
	form.Set("longitude", strconv.FormatFloat(sample.Longitude, 'f', -1, 64))
	accuracy := ""
	if sample.Accuracy != nil {
		accuracy = strconv.FormatFloat(*sample.Accuracy, 'f', -1, 64)
	}
	form.Set("accuracy", accuracy)
	form.Set("timestamp", sample.Timestamp.UTC().Format(time.RFC3339Nano))
	if sample.LocationName != "" {
		form.Set("location_name", sample.LocationName)
	}

	code, body, err := c.postForm(ctx, updatePath, token, form)
	if err != nil {
		return err
	}
	if code < 200 || code > 299 {
		return &ServerError{StatusCode: code, Message: messageFrom(body)}
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Printf("location update: unparsable response accepted (status %d)", code)
		return nil
	}
	if resp.Status != "" && resp.Status != statusSuccess {
		return &ServerError{StatusCode: code, Message: resp.Message}
	}
	return nil
}

// LoginError carries the user-facing reason a login was refused.
type LoginError struct {
	StatusCode int
	Message    string
}

func (e *LoginError) Error() string {
	return e.Message
}

func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	code, body, err := c.postForm(ctx, loginPath, "", form)
	if err != nil {
		return User{}, err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Printf("login: unparsable response (status %d): %v", code, err)
	}

	switch {
	case code == 452:
		return User{}, &LoginError{StatusCode: code, Message: "Account may be disabled or restricted (Error 452)"}
	case code < 200 || code > 299:
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("Login failed (status %d)", code)
		}
		return User{}, &LoginError{StatusCode: code, Message: msg}
	case resp.Status != statusSuccess || resp.LoggedUser == nil:
		msg := resp.Message
		if msg == "" {
			msg = "Login failed"
		}
		return User{}, &LoginError{StatusCode: code, Message: msg}
	}
	return *resp.LoggedUser, nil
}

// FetchHistory loads the server-side location history of an employee.
func (c *Client) FetchHistory(ctx context.Context, token, employeeID string, start, end *time.Time) ([]history.Entry, error) {
	if token == "" {
		return nil, ErrAuthMissing
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	params := url.Values{}
	if employeeID != "" {
		params.Set("employeeId", employeeID)
	}
	if start != nil {
		params.Set("startDate", start.UTC().Format(time.RFC3339))
	}
	if end != nil {
		params.Set("endDate", end.UTC().Format(time.RFC3339))
	}
	path := historyPath
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	code, body, errs := c.newAgent(fiber.MethodGet, path, token).Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, errs[0])
	}
	if code < 200 || code > 299 {
		return nil, &ServerError{StatusCode: code, Message: messageFrom(body)}
	}

	var items []remoteLocation
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	entries := make([]history.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, history.Entry{
			ID: "remote-" + item.ID.String(),
			Sample: location.Sample{
				Latitude:     item.Latitude,
				Longitude:    item.Longitude,
				Accuracy:     item.Accuracy,
				Timestamp:    item.Timestamp,
				LocationName: item.LocationName,
			},
		})
	}
	return entries, nil
}

func messageFrom(body []byte) string {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Message
}
