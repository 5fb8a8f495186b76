// Package client talks to the sync server's HTTP API on behalf of the
// agent.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leettrack-sync/internal/domain"
)

var (
	ErrUnauthorized = errors.New("session missing or expired")
	ErrForbidden    = errors.New("account lacks cloud sync permission")
)

const beaconTimeout = 2 * time.Second

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login exchanges credentials for an access token and remembers it for
// subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	body, _ := json.Marshal(domain.LoginRequest{Email: email, Password: password})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login failed with status %d", res.StatusCode)
	}

	// Auth endpoints wrap their payload in the success envelope.
	var envelope struct {
		Success bool                  `json:"success"`
		Data    *domain.LoginResponse `json:"data"`
		Error   string                `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	if !envelope.Success || envelope.Data == nil {
		return nil, fmt.Errorf("login rejected: %s", envelope.Error)
	}

	c.token = envelope.Data.AccessToken
	return envelope.Data, nil
}

func (c *Client) FetchProgress(ctx context.Context) ([]domain.ProgressEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sync", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return nil, err
	}

	var payload domain.FetchProgressResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode progress response: %w", err)
	}

	return payload.Progress, nil
}

func (c *Client) UploadProgress(ctx context.Context, progress []domain.TopicProgress, forceOverwrite bool) ([]domain.TopicSyncResult, error) {
	body, err := json.Marshal(domain.UploadRequest{
		TopicProgress:  progress,
		ForceOverwrite: forceOverwrite,
		Version:        domain.DataVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize progress: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sync", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return nil, err
	}

	var payload domain.UploadResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	return payload.Results, nil
}

func (c *Client) DeleteProgress(ctx context.Context, topicID string) error {
	endpoint := c.baseURL + "/sync"
	if topicID != "" {
		endpoint += "?topicId=" + url.QueryEscape(topicID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer res.Body.Close()

	return checkStatus(res)
}

// Beacon attempts one upload with a short deadline and no conflict
// handling. It is the shutdown path's best-effort flush: no delivery
// guarantee, errors reported but never retried here.
func (c *Client) Beacon(progress []domain.TopicProgress) error {
	ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
	defer cancel()

	_, err := c.UploadProgress(ctx, progress, false)
	return err
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func checkStatus(res *http.Response) error {
	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case res.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case res.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("request failed with status %d: %s", res.StatusCode, string(body))
	}
	return nil
}
