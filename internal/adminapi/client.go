// Package adminapi is the HTTP client the admin TUI talks through. It
// keeps the admin session cookie in a jar so callers only deal with
// typed methods.
package adminapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"
)

type Client struct {
	baseURL *url.URL
	hc      *http.Client
}

type ClientOptions struct {
	Addr    string
	Timeout time.Duration
}

func NewClient(opt ClientOptions) (*Client, error) {
	if opt.Addr == "" {
		return nil, errors.New("addr is required")
	}
	u, err := url.Parse(opt.Addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	if u.Host == "" {
		return nil, errors.New("invalid addr")
	}

	jar, _ := cookiejar.New(nil)
	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	hc := &http.Client{Jar: jar, Timeout: timeout}
	return &Client{baseURL: u, hc: hc}, nil
}

func (c *Client) LoginAdmin(password string) error {
	var req struct {
		Password string `json:"password"`
	}
	req.Password = password
	return c.doJSON("POST", "/api/admin/login", req, nil)
}

func (c *Client) LogoutAdmin() error {
	return c.doJSON("POST", "/api/admin/logout", map[string]string{}, nil)
}

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
}

func (c *Client) ListUsers() ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.doJSON("GET", "/api/admin/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) CreateUser(username, password, email string) (int64, error) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	req.Username = username
	req.Password = password
	req.Email = email

	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON("POST", "/api/admin/users", req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *Client) DeleteUser(id int64) error {
	return c.doJSON("DELETE", "/api/admin/users/"+itoa(id), nil, nil)
}

type Repo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	CreatedAt   int64  `json:"created_at"`
	LastUpdated int64  `json:"last_updated"`
}

func (c *Client) ListRepos(userID int64) ([]Repo, error) {
	var resp struct {
		Repos []Repo `json:"repos"`
	}
	if err := c.doJSON("GET", "/api/admin/users/"+itoa(userID)+"/repos", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Repos, nil
}

type SSHKey struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   int64  `json:"created_at"`
}

func (c *Client) ListKeys(userID int64) ([]SSHKey, error) {
	var resp struct {
		Keys []SSHKey `json:"keys"`
	}
	if err := c.doJSON("GET", "/api/admin/users/"+itoa(userID)+"/keys", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (c *Client) AddKey(userID int64, name, publicKey string) (int64, string, error) {
	var req struct {
		Name      string `json:"name"`
		PublicKey string `json:"public_key"`
	}
	req.Name = name
	req.PublicKey = publicKey

	var resp struct {
		ID          int64  `json:"id"`
		Fingerprint string `json:"fingerprint"`
	}
	if err := c.doJSON("POST", "/api/admin/users/"+itoa(userID)+"/keys", req, &resp); err != nil {
		return 0, "", err
	}
	return resp.ID, resp.Fingerprint, nil
}

func (c *Client) DeleteKey(userID, keyID int64) error {
	return c.doJSON("DELETE", "/api/admin/users/"+itoa(userID)+"/keys/"+itoa(keyID), nil, nil)
}

func (c *Client) doJSON(method, path string, body any, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequest(method, u.String(), buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&er)
		if er.Error != "" {
			return errors.New(er.Error)
		}
		return errors.New(resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
