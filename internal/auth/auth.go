// Package auth obtains a portal session cookie, either by simulating the
// browser login flow or by falling back to a manually configured cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/jonesrussell/gopunch/internal/config"
	"github.com/jonesrussell/gopunch/internal/logger"
)

// Common errors returned by the auth package.
var (
	// ErrAuthentication is returned when every configured authentication mode
	// fails or is rejected by the portal.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotConfigured is returned when neither login credentials nor a manual
	// cookie are available.
	ErrNotConfigured = errors.New("authentication not configured")
)

// Provider obtains portal session cookies.
type Provider interface {
	// Authenticate returns a session cookie string, e.g. "PHPSESSID=...".
	Authenticate(ctx context.Context) (string, error)
}

// LoginProvider implements Provider against the portal's SSO login flow.
type LoginProvider struct {
	portal      config.PortalConfig
	credentials config.CredentialsConfig
	client      *http.Client
	logger      logger.Interface
}

// NewProvider creates a Provider for the configured portal and credentials.
func NewProvider(portal config.PortalConfig, creds config.CredentialsConfig, log logger.Interface) *LoginProvider {
	return &LoginProvider{
		portal:      portal,
		credentials: creds,
		client: &http.Client{
			Timeout: portal.Timeout,
			// Redirects are followed manually so each step's Set-Cookie and
			// Location headers can be inspected.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: log.WithComponent("auth"),
	}
}

// Authenticate runs the login simulation when email/password are configured,
// falling back to the manual cookie when the simulation fails. No retries are
// performed here; retrying is the caller's decision.
func (p *LoginProvider) Authenticate(ctx context.Context) (string, error) {
	if p.credentials.HasLogin() {
		cookie, err := p.simulateLogin(ctx)
		if err == nil {
			return cookie, nil
		}

		p.logger.Warn("Login simulation failed", "error", err)
		if p.credentials.HasCookie() {
			p.logger.Info("Falling back to configured session cookie")
			return p.credentials.Cookie, nil
		}
		return "", fmt.Errorf("%w: %s", ErrAuthentication, err)
	}

	if p.credentials.HasCookie() {
		p.logger.Debug("Using configured session cookie")
		return p.credentials.Cookie, nil
	}

	return "", ErrNotConfigured
}

// simulateLogin performs the portal's four-step browser login sequence:
// fetch the login page for its authenticity token, POST the credentials,
// follow the authorization-code redirect, then the SSO callback, collecting
// the session cookies set along the way.
func (p *LoginProvider) simulateLogin(ctx context.Context) (string, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", fmt.Errorf("cookie jar: %w", err)
	}

	session := &http.Client{
		Timeout: p.client.Timeout,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	loginURL := p.portal.AccountBaseURL + "/users/sign_in?app_referer=Talenta"

	// Step 1: login page and authenticity token.
	token, err := p.fetchAuthenticityToken(ctx, session, loginURL)
	if err != nil {
		return "", err
	}
	p.logger.Debug("Extracted authenticity token from login page")

	// Step 2: submit credentials.
	if err := p.submitCredentials(ctx, session, loginURL, token); err != nil {
		return "", err
	}
	p.logger.Debug("Credentials accepted")

	// Step 3: authorization code redirect.
	callbackURL, err := p.fetchAuthorizationRedirect(ctx, session, loginURL)
	if err != nil {
		return "", err
	}
	p.logger.Debug("Authorization redirect obtained")

	// Step 4: SSO callback sets the portal session cookies.
	if err := p.followCallback(ctx, session, callbackURL); err != nil {
		return "", err
	}

	cookie, err := sessionCookieString(jar, p.portal.BaseURL)
	if err != nil {
		return "", err
	}

	p.logger.Info("Session cookie obtained via login simulation")
	return cookie, nil
}

func (p *LoginProvider) fetchAuthenticityToken(ctx context.Context, session *http.Client, loginURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("login page request: %w", err)
	}
	req.Header.Set("User-Agent", p.portal.UserAgent)

	resp, err := session.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch login page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login page returned status %d", resp.StatusCode)
	}

	token, err := ExtractAuthenticityToken(resp.Body)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (p *LoginProvider) submitCredentials(ctx context.Context, session *http.Client, loginURL, token string) error {
	form := url.Values{}
	form.Set("utf8", "✓")
	form.Set("authenticity_token", token)
	form.Set("user[email]", p.credentials.Email)
	form.Set("no-captcha-token", "")
	form.Set("user[password]", p.credentials.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", p.portal.UserAgent)
	req.Header.Set("Referer", loginURL)
	req.Header.Set("Origin", p.portal.AccountBaseURL)

	resp, err := session.Do(req)
	if err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	defer resp.Body.Close()

	// A successful login answers with a redirect; anything else is a rejection.
	if resp.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(resp.Body)
		if strings.Contains(string(body), "Invalid email or password") {
			return fmt.Errorf("%w: invalid email or password", ErrAuthentication)
		}
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *LoginProvider) fetchAuthorizationRedirect(ctx context.Context, session *http.Client, loginURL string) (string, error) {
	authURL := fmt.Sprintf("%s/auth?client_id=%s&response_type=code&scope=sso:profile",
		p.portal.AccountBaseURL, p.portal.SSOClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("authorization request: %w", err)
	}
	req.Header.Set("User-Agent", p.portal.UserAgent)
	req.Header.Set("Referer", loginURL)

	resp, err := session.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch authorization code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", fmt.Errorf("authorization returned status %d", resp.StatusCode)
	}

	location := resp.Header.Get("Location")
	if location == "" || !strings.Contains(location, "sso-callback") {
		return "", fmt.Errorf("%w: unexpected authorization redirect %q", ErrAuthentication, location)
	}
	return location, nil
}

func (p *LoginProvider) followCallback(ctx context.Context, session *http.Client, callbackURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, callbackURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("callback request: %w", err)
	}
	req.Header.Set("User-Agent", p.portal.UserAgent)

	resp, err := session.Do(req)
	if err != nil {
		return fmt.Errorf("follow sso callback: %w", err)
	}
	defer resp.Body.Close()

	// The callback's status is uninteresting; what matters is the cookies it set.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// sessionCookieString extracts the portal session cookie from the jar,
// preferring the PHP session cookie, then the identity cookie, then all
// cookies joined.
func sessionCookieString(jar http.CookieJar, portalBaseURL string) (string, error) {
	base, err := url.Parse(portalBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse portal url: %w", err)
	}

	cookies := jar.Cookies(base)
	if len(cookies) == 0 {
		return "", fmt.Errorf("%w: no session cookies set by portal", ErrAuthentication)
	}

	for _, name := range []string{"PHPSESSID", "_identity"} {
		for _, c := range cookies {
			if c.Name == name {
				return c.Name + "=" + c.Value, nil
			}
		}
	}

	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; "), nil
}
