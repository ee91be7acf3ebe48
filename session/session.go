// Package session manages per-supplier login state. A supplier that cannot
// be authenticated is served in degraded mode, never treated as fatal.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/partdesk/ingest/config"
	"github.com/partdesk/ingest/fetch"
)

// State is the login state of one supplier session.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var loginFieldNames = []string{"login", "email", "username"}

// Manager drives the login state machine for one supplier. Cookies live in
// the fetcher's jar, so a successful login covers every later request made
// through the same fetcher.
type Manager struct {
	supplier config.SupplierConfig
	fetcher  *fetch.Fetcher
	lookup   func(string) (config.Credentials, bool)

	state        State
	lastResponse string
}

// NewManager builds a session manager for one supplier.
func NewManager(supplier config.SupplierConfig, fetcher *fetch.Fetcher) *Manager {
	return &Manager{
		supplier: supplier,
		fetcher:  fetcher,
		lookup:   config.LookupCredentials,
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	return m.state
}

// Degraded reports whether authenticated-only fields must fall back to
// sentinel values.
func (m *Manager) Degraded() bool {
	return m.supplier.RequiresAuth && m.state != Authenticated
}

// LastResponse returns a snippet of the last login response, kept for
// diagnosing failed logins.
func (m *Manager) LastResponse() string {
	return m.lastResponse
}

// EnsureAuthenticated runs the login state machine once. Suppliers that do
// not require auth are reported as Authenticated immediately. The two login
// strategies are never retried automatically; a Failed state sticks for the
// lifetime of the manager.
func (m *Manager) EnsureAuthenticated(ctx context.Context) State {
	if !m.supplier.RequiresAuth {
		m.state = Authenticated
		return m.state
	}
	if m.state == Authenticated || m.state == Failed {
		return m.state
	}

	creds, ok := m.lookup(m.supplier.Name)
	if !ok {
		slog.Warn("credentials missing, continuing degraded",
			slog.String("supplier", m.supplier.Name),
		)
		m.state = Failed
		return m.state
	}

	m.state = Authenticating
	endpoint := m.loginURL()

	var err error
	if looksRPC(endpoint) {
		err = m.loginRPC(ctx, endpoint, creds)
	} else {
		err = m.loginForm(ctx, endpoint, creds)
	}
	if err != nil {
		slog.Warn("supplier login failed, continuing degraded",
			slog.String("supplier", m.supplier.Name),
			slog.String("state", Failed.String()),
			slog.Any("error", fetch.ErrAuth{Supplier: m.supplier.Name, Err: err}),
		)
		m.state = Failed
		return m.state
	}

	slog.Info("supplier session established", slog.String("supplier", m.supplier.Name))
	m.state = Authenticated
	return m.state
}

func (m *Manager) loginURL() string {
	endpoint := m.supplier.LoginEndpoint
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return strings.TrimSuffix(m.supplier.BaseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}

// looksRPC decides whether the login endpoint is a structured API call
// rather than an HTML form page.
func looksRPC(endpoint string) bool {
	lower := strings.ToLower(endpoint)
	return strings.Contains(lower, "/api/") ||
		strings.Contains(lower, "/rpc") ||
		strings.HasSuffix(lower, ".json")
}

func (m *Manager) loginRPC(ctx context.Context, endpoint string, creds config.Credentials) error {
	payload, err := json.Marshal(map[string]string{
		"login":    creds.Login,
		"password": creds.Password,
	})
	if err != nil {
		return fmt.Errorf("marshal login payload: %w", err)
	}

	resp, err := m.fetcher.Post(ctx, endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("login call: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	m.lastResponse = string(body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}
	if !hasSessionID(body) {
		return fmt.Errorf("login response carries no session identifier")
	}
	return nil
}

func (m *Manager) loginForm(ctx context.Context, endpoint string, creds config.Credentials) error {
	pageBody, finalURL, err := m.fetcher.Get(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}

	form, err := discoverLoginForm(pageBody)
	if err != nil {
		return err
	}

	values := url.Values{}
	for name, value := range form.hidden {
		values.Set(name, value)
	}
	values.Set(form.loginField, creds.Login)
	values.Set(form.passwordField, creds.Password)

	action := resolveAction(finalURL, form.action)
	resp, err := m.fetcher.PostForm(ctx, action, values)
	if err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	m.lastResponse = string(body)

	if loginSucceeded(resp, body) {
		return nil
	}
	return fmt.Errorf("login form submitted but no success marker found (status %d)", resp.StatusCode)
}

type loginForm struct {
	action        string
	loginField    string
	passwordField string
	hidden        map[string]string
}

// discoverLoginForm finds the form containing both a login-like and a
// password field, carrying over hidden inputs such as CSRF tokens.
func discoverLoginForm(pageBody []byte) (*loginForm, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageBody))
	if err != nil {
		return nil, fmt.Errorf("parse login page: %w", err)
	}

	var found *loginForm
	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		candidate := &loginForm{hidden: map[string]string{}}
		form.Find("input").Each(func(_ int, input *goquery.Selection) {
			name, _ := input.Attr("name")
			if name == "" {
				return
			}
			typ, _ := input.Attr("type")
			switch {
			case typ == "password":
				candidate.passwordField = name
			case typ == "hidden":
				value, _ := input.Attr("value")
				candidate.hidden[name] = value
			case isLoginLike(name):
				candidate.loginField = name
			}
		})
		if candidate.loginField != "" && candidate.passwordField != "" {
			candidate.action, _ = form.Attr("action")
			found = candidate
			return false
		}
		return true
	})

	if found == nil {
		return nil, fmt.Errorf("no login form on page")
	}
	return found, nil
}

func isLoginLike(name string) bool {
	lower := strings.ToLower(name)
	for _, candidate := range loginFieldNames {
		if strings.Contains(lower, candidate) {
			return true
		}
	}
	return false
}

func resolveAction(pageURL, action string) string {
	if action == "" {
		return pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return action
	}
	ref, err := url.Parse(action)
	if err != nil {
		return action
	}
	return base.ResolveReference(ref).String()
}

// loginSucceeded classifies a login response: a redirect to an account-like
// path, a logout affordance in the body, or a JSON session identifier.
func loginSucceeded(resp *http.Response, body []byte) bool {
	if resp.StatusCode >= http.StatusBadRequest {
		return false
	}

	path := strings.ToLower(resp.Request.URL.Path)
	for _, marker := range []string{"account", "dashboard", "panel", "profile"} {
		if strings.Contains(path, marker) {
			return true
		}
	}

	lower := strings.ToLower(string(body))
	for _, marker := range []string{"logout", "log out", "sign out", "wyloguj"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	return hasSessionID(body)
}

func hasSessionID(body []byte) bool {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return false
	}
	for _, key := range []string{"session_id", "sessionId", "token", "session"} {
		if value, ok := payload[key]; ok {
			if s, ok := value.(string); ok && s != "" {
				return true
			}
		}
	}
	return false
}
