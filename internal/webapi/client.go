package webapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/clubhub/matchtrack/internal/protocol"
)

// csrfHeader carries the anti-forgery token the page embeds in its markup.
const csrfHeader = "X-CSRF-Token"

// Client is the HTTP collaborator for roster editing: player overview and
// search reads, designation writes. The live match channel stays on the
// socket; only roster round-trips go over HTTP.
type Client struct {
	baseURL   string
	client    *http.Client
	csrfToken string
}

func NewClient(baseURL, csrfToken string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		csrfToken: csrfToken,
	}
}

// SetTimeout overrides the default 30s request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// DesignationRequest moves the listed players into the target group.
type DesignationRequest struct {
	PlayerIDs []int `json:"player_ids"`
	GroupID   int   `json:"group_id"`
}

// PlayerOverview fetches the full grouped roster for a team.
func (c *Client) PlayerOverview(teamID int) ([]protocol.PlayerGroup, error) {
	q := url.Values{}
	q.Set("team_id", strconv.Itoa(teamID))

	body, err := c.makeRequest(http.MethodGet, "/player-overview?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Groups []protocol.PlayerGroup `json:"groups"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode player overview: %w", err)
	}
	return resp.Groups, nil
}

// SearchPlayers runs a server-backed player search scoped to the team.
func (c *Client) SearchPlayers(teamID int, query string) ([]protocol.Player, error) {
	q := url.Values{}
	q.Set("team_id", strconv.Itoa(teamID))
	q.Set("q", query)

	body, err := c.makeRequest(http.MethodGet, "/player-search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Players []protocol.Player `json:"players"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode player search: %w", err)
	}
	return resp.Players, nil
}

// UpdateDesignation posts a group move for the selected players.
func (c *Client) UpdateDesignation(req DesignationRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode designation: %w", err)
	}
	_, err = c.makeRequest(http.MethodPost, "/player-designation", bytes.NewReader(payload))
	return err
}

func (c *Client) makeRequest(method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequest(method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(csrfHeader, c.csrfToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	return responseBody, nil
}
