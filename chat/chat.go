package chat

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
	"github.com/google/uuid"

	"github.com/onnwee/quote-tender/backend/db"
	"github.com/onnwee/quote-tender/backend/quote"
	"github.com/onnwee/quote-tender/backend/telemetry"
	"github.com/onnwee/quote-tender/backend/twitchapi"
)

// saySink posts handler output back to the channel the command came from.
type saySink struct {
	client  *twitch.Client
	channel string
}

func (s *saySink) Send(_ context.Context, text string) error {
	s.client.Say(s.channel, text)
	telemetry.MessagesSent.Inc()
	return nil
}

// channelCache holds the broadcaster's current category/title with a short
// TTL so every command doesn't hit Helix.
type channelCache struct {
	helix         *twitchapi.HelixClient
	broadcasterID string

	mu        sync.Mutex
	info      twitchapi.ChannelInfo
	fetchedAt time.Time
}

func (c *channelCache) get(ctx context.Context) twitchapi.ChannelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.fetchedAt) < time.Minute {
		return c.info
	}
	if c.helix == nil || c.broadcasterID == "" {
		return c.info
	}
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	info, err := c.helix.GetChannelInfo(ctx2, c.broadcasterID)
	if err != nil {
		slog.Debug("channel info fetch failed", slog.Any("err", err))
		return c.info
	}
	c.info = info
	c.fetchedAt = time.Now()
	return c.info
}

// StartQuoteBot connects to Twitch chat and serves quote commands until the
// context is canceled.
// Env knobs:
//
//	TWITCH_CHANNEL, TWITCH_BOT_USERNAME required
//	TWITCH_OAUTH_TOKEN or a stored oauth_tokens row for provider 'twitch'
//	TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET optional (enables Helix context)
//	BROADCASTER_ALIASES, QUOTE_STORE_LOCATION
func StartQuoteBot(ctx context.Context, dbx *sql.DB, store *quote.Store) {
	channel := os.Getenv("TWITCH_CHANNEL")
	username := os.Getenv("TWITCH_BOT_USERNAME")
	if channel == "" || username == "" {
		slog.Info("twitch creds not set; skipping quote bot")
		return
	}
	token := os.Getenv("TWITCH_OAUTH_TOKEN")
	if token == "" && dbx != nil {
		access, _, _, _, err := db.GetOAuthToken(ctx, dbx, "twitch")
		if err != nil || access == "" {
			slog.Info("no chat token in env or store; skipping quote bot")
			return
		}
		token = access
	}
	if token != "" && !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	location := os.Getenv("QUOTE_STORE_LOCATION")
	if location == "" {
		location = "quotes"
	}
	aliases := splitList(os.Getenv("BROADCASTER_ALIASES"))
	if len(aliases) == 0 {
		aliases = []string{channel}
	}

	var helix *twitchapi.HelixClient
	clientID := os.Getenv("TWITCH_CLIENT_ID")
	clientSecret := os.Getenv("TWITCH_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		helix = &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: clientID, ClientSecret: clientSecret},
			ClientID:       clientID,
		}
	}

	broadcaster := quote.Broadcaster{Identity: channel}
	if helix != nil {
		ctx2, cancel := context.WithTimeout(ctx, 8*time.Second)
		if u, err := helix.GetUser(ctx2, channel); err == nil {
			broadcaster.ID = u.ID
		} else {
			slog.Warn("broadcaster lookup failed; alias resolution will lack an id", slog.Any("err", err))
		}
		cancel()
	}
	cache := &channelCache{helix: helix, broadcasterID: broadcaster.ID}

	client := twitch.NewClient(username, token)
	handler := &quote.Handler{Store: store, Sink: &saySink{client: client, channel: channel}}

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		cmd, ok := ParseCommand(msg.Message)
		if !ok {
			return
		}
		inv := buildInvocation(ctx, cmd, msg, broadcaster, aliases, location, helix, cache)

		hctx := telemetry.WithCorrelation(ctx, inv.ID)
		hctx, span := telemetry.StartSpan(hctx, "quote-bot", "chat command")
		var act quote.Action
		telemetry.TimeFunc(telemetry.CommandDuration, func() {
			act = handler.Handle(hctx, inv)
		})
		span.SetAttributes(telemetry.CommandAttr(act.String()))
		telemetry.SetSpanSuccess(span)
		span.End()
		telemetry.LoggerWithCorr(hctx).Debug("chat command handled",
			slog.String("command", cmd.Name), slog.String("action", act.String()), slog.String("user", msg.User.Name))
	})
	client.OnConnect(func() {
		telemetry.SetChatConnected(true)
		slog.Info("quote bot connected", slog.String("channel", channel))
	})

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := client.Disconnect(); err != nil {
			slog.Debug("chat disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	client.Join(channel)
	if err := client.Connect(); err != nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
	}
	telemetry.SetChatConnected(false)
	<-done
}

// buildInvocation assembles the full invocation context for one message:
// user identity and role flags from IRC tags, stream category/title from the
// channel cache, and the platform-detected mention from Helix.
func buildInvocation(ctx context.Context, cmd Command, msg twitch.PrivateMessage, broadcaster quote.Broadcaster, aliases []string, location string, helix *twitchapi.HelixClient, cache *channelCache) quote.Invocation {
	inv := quote.Invocation{
		ID:       uuid.New().String(),
		Command:  cmd.Name,
		FirstArg: cmd.FirstArg,
		RawInput: cmd.RawInput,
		QueuedAt: time.Now().UTC().Format(time.RFC3339),

		User:            msg.User.Name,
		UserDisplayName: msg.User.DisplayName,
		UserID:          msg.User.ID,
		UserType:        "twitch",
		IsModerator:     hasBadge(msg.User.Badges, "moderator") || hasBadge(msg.User.Badges, "broadcaster"),
		IsVIP:           hasBadge(msg.User.Badges, "vip"),

		Broadcaster: broadcaster,
		Aliases:     aliases,

		StoreLocation: location,
	}

	info := cache.get(ctx)
	inv.BroadcasterDisplayName = info.BroadcasterName
	inv.CategoryID = info.GameID
	inv.CategoryName = info.GameName
	inv.StreamTitle = info.Title

	if helix != nil {
		if candidate := mentionCandidate(cmd.RawInput); candidate != "" {
			inv.Mention = lookupMention(ctx, helix, broadcaster.ID, candidate)
		}
	}
	return inv
}

// lookupMention resolves a candidate word to a platform user. A lookup miss
// yields a zero Mention; the resolver then treats the word as quote content.
func lookupMention(ctx context.Context, helix *twitchapi.HelixClient, broadcasterID, candidate string) quote.Mention {
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	u, err := helix.GetUser(ctx2, strings.ToLower(candidate))
	if err != nil {
		return quote.Mention{}
	}
	m := quote.Mention{Identity: u.Login, DisplayName: u.DisplayName, ID: u.ID, Platform: "twitch"}
	if broadcasterID != "" {
		if following, followedAt, err := helix.CheckFollow(ctx2, broadcasterID, u.ID); err == nil {
			m.IsFollowing = following
			if following {
				m.LastActiveAt = followedAt
			}
		}
	}
	return m
}

func hasBadge(badges map[string]int, name string) bool {
	v, ok := badges[name]
	return ok && v > 0
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
