package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/csh-platform/hubchat/internal/convo"
)

// FetchTimeout bounds a full peer fetch (both endpoints).
const FetchTimeout = 30 * time.Second

// Client talks to the platform's REST API. hubchat only needs the two
// endpoints that seed the conversation directory: accepted connections
// and pending connection requests.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an API client with a Bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type connectionsResponse struct {
	Connections []wirePeer `json:"connections"`
}

type wirePeer struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     string   `json:"role"`
	Skills   []string `json:"skills"`
}

type requestsResponse struct {
	Requests []wireRequest `json:"requests"`
}

// wireRequest is a pending connection request enriched with the other
// participant's profile.
type wireRequest struct {
	OtherUserID string   `json:"other_user_id"`
	Name        string   `json:"from_user_name"`
	Email       string   `json:"from_user_email"`
	Role        string   `json:"from_user_role"`
	Skills      []string `json:"from_user_skills"`
}

// FetchPeers returns the user's chat peers: accepted connections first,
// then pending-request participants. Ordering matters — the directory
// keeps the first profile seen per id, so connection entries win over
// request entries for the same peer.
func (c *Client) FetchPeers(ctx context.Context) ([]convo.Peer, error) {
	var conns connectionsResponse
	if err := c.get(ctx, "/users/connections", &conns); err != nil {
		return nil, fmt.Errorf("fetch connections: %w", err)
	}

	var reqs requestsResponse
	if err := c.get(ctx, "/users/connection-requests", &reqs); err != nil {
		return nil, fmt.Errorf("fetch connection requests: %w", err)
	}

	peers := make([]convo.Peer, 0, len(conns.Connections)+len(reqs.Requests))
	for _, p := range conns.Connections {
		name := p.Name
		if name == "" {
			name = p.FullName
		}
		if name == "" {
			name = "Unknown"
		}
		peers = append(peers, convo.Peer{
			ID:     p.ID,
			Name:   name,
			Email:  p.Email,
			Role:   p.Role,
			Skills: p.Skills,
		})
	}
	for _, r := range reqs.Requests {
		peers = append(peers, convo.Peer{
			ID:     r.OtherUserID,
			Name:   r.Name,
			Email:  r.Email,
			Role:   r.Role,
			Skills: r.Skills,
		})
	}
	return peers, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
