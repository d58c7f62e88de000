package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/domain"
	"github.com/jonesrussell/gopunch/internal/logger"
)

// Portal paths, fixed by the portal's observed contract.
const (
	liveAttendancePath = "/live-attendance"
	attendancePostPath = "/api/web/live-attendance/request"
)

// Client performs the authenticated attendance transactions.
type Client struct {
	cfg    config.PortalConfig
	client *http.Client
	logger logger.Interface
}

// NewClient creates a portal client with the configured timeout applied to
// every request.
func NewClient(cfg config.PortalConfig, log logger.Interface) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithComponent("portal"),
	}
}

// PostAction submits a clock-in or clock-out to the portal. It fetches a live
// CSRF token, obfuscates the coordinates, and posts the form with the session
// cookie attached. Application-level rejections come back as a PostResult;
// transport failures and rejected sessions come back as errors.
func (c *Client) PostAction(
	ctx context.Context,
	action domain.Action,
	loc domain.Location,
	cookie string,
	description string,
) (domain.PostResult, error) {
	csrfToken, err := c.fetchCSRFToken(ctx, cookie)
	if err != nil {
		return domain.PostResult{}, err
	}

	form := url.Values{}
	form.Set("longitude", EncodeCoordinate(loc.Longitude))
	form.Set("latitude", EncodeCoordinate(loc.Latitude))
	form.Set("status", action.Status())
	form.Set("description", description)
	form.Set("_token", csrfToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+attendancePostPath, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.PostResult{}, fmt.Errorf("post request: %w", err)
	}
	c.setHeaders(req, cookie)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-TOKEN", csrfToken)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.cfg.BaseURL+liveAttendancePath)
	req.Header.Set("Origin", c.cfg.BaseURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.PostResult{}, fmt.Errorf("%w: %s", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.PostResult{}, fmt.Errorf("%w: status %d", ErrUnauthenticated, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.PostResult{}, fmt.Errorf("%w: read response: %s", ErrNetwork, err)
	}

	result := parsePostResponse(resp.StatusCode, body)
	c.logger.Info("Attendance posted",
		"action", action.String(),
		"status", result.StatusCode,
		"message", result.Message,
	)
	return result, nil
}

// FetchAttendanceLog retrieves the raw live attendance page. The duplicate
// guard parses the log entries out of it.
func (c *Client) FetchAttendanceLog(ctx context.Context, cookie string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+liveAttendancePath, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("attendance log request: %w", err)
	}
	c.setHeaders(req, cookie)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: status %d", ErrUnauthenticated, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("attendance page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read attendance page: %s", ErrNetwork, err)
	}
	return string(body), nil
}

// fetchCSRFToken loads the live attendance page and pulls the one-time token
// the posting endpoint requires.
func (c *Client) fetchCSRFToken(ctx context.Context, cookie string) (string, error) {
	page, err := c.FetchAttendanceLog(ctx, cookie)
	if err != nil {
		return "", err
	}

	token, err := extractCSRFToken(strings.NewReader(page))
	if err != nil {
		return "", err
	}
	return token, nil
}

// extractCSRFToken finds the CSRF token in the attendance page markup.
func extractCSRFToken(page io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return "", fmt.Errorf("parse attendance page: %w", err)
	}

	for _, selector := range []string{
		`meta[name="csrf-token"]`,
		`meta[name="_token"]`,
	} {
		if token, ok := doc.Find(selector).First().Attr("content"); ok && token != "" {
			return token, nil
		}
	}
	if token, ok := doc.Find(`input[name="_token"]`).First().Attr("value"); ok && token != "" {
		return token, nil
	}

	return "", ErrCSRFNotFound
}

// setHeaders applies the headers every portal request carries.
func (c *Client) setHeaders(req *http.Request, cookie string) {
	req.Header.Set("Cookie", cookie)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
}

// postResponse is the posting endpoint's JSON answer.
type postResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// parsePostResponse interprets the posting response body, falling back to the
// raw text when it is not JSON.
func parsePostResponse(httpStatus int, body []byte) domain.PostResult {
	var parsed postResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.PostResult{
			StatusCode: httpStatus,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	status := parsed.Status
	if status == 0 {
		status = httpStatus
	}

	return domain.PostResult{
		StatusCode: status,
		Message:    parsed.Message,
		RecordID:   parsed.Data.ID.String(),
	}
}
