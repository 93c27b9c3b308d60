package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// DefaultBaseURL is the Twitch Helix API base.
const DefaultBaseURL = "https://api.twitch.tv"

// HelixClient provides the minimal lookups the quote bot needs: resolving
// logins to users, fetching current channel category/title, and checking
// whether a user follows the channel.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
	BaseURL        string // override for tests; defaults to DefaultBaseURL
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return DefaultBaseURL
}

func (hc *HelixClient) get(ctx context.Context, path string, query url.Values, out any) error {
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+path, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// User is a Twitch user as returned by the users endpoint.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// GetUser resolves a login name to a user. Returns an error when no user
// matches.
func (hc *HelixClient) GetUser(ctx context.Context, login string) (User, error) {
	if login == "" {
		return User{}, fmt.Errorf("login empty")
	}
	q := url.Values{}
	q.Set("login", login)
	var body struct {
		Data []User `json:"data"`
	}
	if err := hc.get(ctx, "/helix/users", q, &body); err != nil {
		return User{}, err
	}
	if len(body.Data) == 0 {
		return User{}, fmt.Errorf("user not found")
	}
	return body.Data[0], nil
}

// ChannelInfo is the current category and title of a channel.
type ChannelInfo struct {
	BroadcasterID   string `json:"broadcaster_id"`
	BroadcasterName string `json:"broadcaster_name"`
	GameID          string `json:"game_id"`
	GameName        string `json:"game_name"`
	Title           string `json:"title"`
}

// GetChannelInfo fetches category/title context for a broadcaster.
func (hc *HelixClient) GetChannelInfo(ctx context.Context, broadcasterID string) (ChannelInfo, error) {
	if broadcasterID == "" {
		return ChannelInfo{}, fmt.Errorf("broadcasterID empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	var body struct {
		Data []ChannelInfo `json:"data"`
	}
	if err := hc.get(ctx, "/helix/channels", q, &body); err != nil {
		return ChannelInfo{}, err
	}
	if len(body.Data) == 0 {
		return ChannelInfo{}, fmt.Errorf("channel not found")
	}
	return body.Data[0], nil
}

// CheckFollow reports whether userID follows the broadcaster's channel, and
// when they followed.
func (hc *HelixClient) CheckFollow(ctx context.Context, broadcasterID, userID string) (bool, string, error) {
	if broadcasterID == "" || userID == "" {
		return false, "", fmt.Errorf("broadcasterID/userID empty")
	}
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("user_id", userID)
	var body struct {
		Data []struct {
			FollowedAt string `json:"followed_at"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/helix/channels/followers", q, &body); err != nil {
		return false, "", err
	}
	if len(body.Data) == 0 {
		return false, "", nil
	}
	return true, body.Data[0].FollowedAt, nil
}
