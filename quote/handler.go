package quote

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/onnwee/quote-tender/backend/telemetry"
)

// MessageSink posts confirmation/result text back to the chat surface.
type MessageSink interface {
	Send(ctx context.Context, text string) error
}

// Invocation is one incoming command event from the chat platform, already
// parsed into its logical fields. It doubles as the ArgSource the aggregator
// reads from, so no component reaches for ambient state.
type Invocation struct {
	ID       string // correlation id, assigned by the connector
	Command  string
	FirstArg string
	RawInput string
	QueuedAt string

	User            string
	UserDisplayName string
	UserID          string
	UserType        string
	IsModerator     bool
	IsVIP           bool

	Broadcaster            Broadcaster
	BroadcasterDisplayName string
	CategoryID             string
	CategoryName           string
	StreamTitle            string

	Mention Mention
	Aliases []string // broadcaster aliases

	StoreLocation string
}

// TryGet implements ArgSource over the invocation's fields.
func (inv *Invocation) TryGet(key string) (string, bool) {
	var v string
	switch key {
	case "command":
		v = inv.Command
	case "input0":
		v = inv.FirstArg
	case "rawInput":
		v = inv.RawInput
	case "queuedAt":
		v = inv.QueuedAt
	case "storeLocation":
		v = inv.StoreLocation
	case "user":
		v = inv.User
	case "userName":
		v = inv.UserDisplayName
	case "userId":
		v = inv.UserID
	case "userType":
		v = inv.UserType
	case "isModerator":
		v = strconv.FormatBool(inv.IsModerator)
	case "isVip":
		v = strconv.FormatBool(inv.IsVIP)
	case "broadcastUser":
		v = inv.Broadcaster.Identity
	case "broadcastUserId":
		v = inv.Broadcaster.ID
	case "broadcastUserName":
		v = inv.BroadcasterDisplayName
	case "categoryId":
		v = inv.CategoryID
	case "categoryName":
		v = inv.CategoryName
	case "streamTitle":
		v = inv.StreamTitle
	case "targetUser":
		v = inv.Mention.Identity
	case "targetUserName":
		v = inv.Mention.DisplayName
	case "targetUserId":
		v = inv.Mention.ID
	case "targetUserPlatform":
		v = inv.Mention.Platform
	case "targetIsFollowing":
		v = strconv.FormatBool(inv.Mention.IsFollowing)
	case "targetIsModerator":
		v = strconv.FormatBool(inv.Mention.IsModerator)
	case "targetLastActive":
		v = inv.Mention.LastActiveAt
	case "broadcasterAliases":
		v = strings.Join(inv.Aliases, ",")
	default:
		return "", false
	}
	return v, v != ""
}

// Handler executes routed quote commands against the store and reports
// outcomes to the message sink. One Handle call per invocation; an internal
// failure never propagates as a crash.
type Handler struct {
	Store *Store
	Sink  MessageSink
}

// Handle classifies and executes a single invocation, returning the action
// it routed to. The invocation always completes: routing misses are
// successful no-ops, context misses abort silently, and store failures are
// reported to chat rather than raised.
func (h *Handler) Handle(ctx context.Context, inv Invocation) (act Action) {
	log := slog.Default().With(slog.String("invocation", inv.ID), slog.String("component", "quote_handler"))
	defer func() {
		if r := recover(); r != nil {
			log.Error("invocation handler panicked", slog.Any("panic", r))
			act = ActionNoop
		}
	}()

	cmdCtx := Collect(&inv, Groups{Command: true})
	if cmdCtx == nil || cmdCtx.Get("command") == "" {
		log.Debug("could not get command arguments; ignoring invocation")
		return ActionNoop
	}

	act = Route(cmdCtx.Get("command"), cmdCtx.Get("input0"))
	telemetry.CommandsHandled.WithLabelValues(act.String()).Inc()
	log.Debug("routed invocation", slog.String("command", inv.Command), slog.String("action", act.String()))

	switch act {
	case ActionAdd:
		h.add(ctx, &inv, log)
	case ActionDelete:
		h.deleteByID(ctx, &inv, log)
	case ActionEdit:
		h.edit(ctx, &inv, log)
	case ActionGetRandom:
		h.random(ctx, &inv, log)
	case ActionGetID:
		h.getByID(ctx, &inv, inv.FirstArg, log)
	case ActionSearch:
		h.search(ctx, &inv, log)
	case ActionHide:
		h.hide(ctx, &inv, log)
	case ActionCancel:
		// A dedicated alias invocation claims this request; exactly one
		// surface may execute the side effect.
		log.Debug("generic surface yielded to specific command", slog.String("subcommand", inv.FirstArg))
	case ActionNoop:
	}
	return act
}

// add implements the add-quote sequencing: aggregate context, resolve the
// speaker, assign the next id, assemble the record, append, then confirm.
func (h *Handler) add(ctx context.Context, inv *Invocation, log *slog.Logger) {
	args := Collect(inv, Groups{Database: true, Input: true, Stream: true, User: true})
	if args == nil {
		log.Debug("no usable context for add; aborting without side effects")
		return
	}

	if args.Get("user") == "" {
		log.Debug("scribe identity absent; recording quote without scribe")
	}
	if args.Get("categoryName") == "" && args.Get("streamTitle") == "" {
		log.Debug("stream context absent; recording quote without category/title")
	}

	rec := Record{
		SpeakerName:    args.GetOptional("inputTarget"),
		SpeakerID:      args.GetOptional("inputTargetId"),
		Text:           args.GetOptional("inputContent"),
		ScribeName:     args.GetOptional("user"),
		ScribeID:       args.GetOptional("userId"),
		RecordedAt:     args.GetOptional("queuedAt"),
		CategoryName:   args.GetOptional("categoryName"),
		CategoryID:     args.GetOptional("categoryId"),
		StreamTitle:    args.GetOptional("streamTitle"),
		SourcePlatform: args.GetOptional("userType"),
	}

	id, err := h.Store.Add(ctx, args.Get("storeLocation"), rec)
	if err != nil {
		h.fail(ctx, "Add", err, log)
		return
	}
	h.say(ctx, fmt.Sprintf("Quote #%s added!", id), log)
}

func (h *Handler) deleteByID(ctx context.Context, inv *Invocation, log *slog.Logger) {
	args := Collect(inv, Groups{Database: true, Command: true})
	if args == nil {
		return
	}
	id := strings.TrimSpace(args.Get("input0"))
	if !isNumeric(id) {
		h.say(ctx, "Usage: !delquote <id>", log)
		return
	}
	found, err := h.Store.Delete(ctx, args.Get("storeLocation"), id)
	if err != nil {
		h.fail(ctx, "Delete", err, log)
		return
	}
	if !found {
		h.say(ctx, fmt.Sprintf("Quote #%s not found.", id), log)
		return
	}
	h.say(ctx, fmt.Sprintf("Quote #%s deleted.", id), log)
}

func (h *Handler) edit(ctx context.Context, inv *Invocation, log *slog.Logger) {
	args := Collect(inv, Groups{Database: true, Command: true, Input: true, Stream: true})
	if args == nil {
		return
	}
	id := strings.TrimSpace(args.Get("input0"))
	if !isNumeric(id) {
		h.say(ctx, "Usage: !editquote <id> [speaker] <new text>", log)
		return
	}

	// The trailing text minus the id goes back through target resolution so
	// an edit can re-attribute the quote the same way add attributes it.
	remainder := strings.TrimSpace(strings.TrimPrefix(args.Get("rawInput"), id))
	if remainder == "" {
		h.say(ctx, "Usage: !editquote <id> [speaker] <new text>", log)
		return
	}
	resolved := ResolveTarget(remainder, inv.Aliases, inv.Broadcaster, inv.Mention)
	fields := EditFields{Text: &resolved.Content}
	if resolved.Target != nil {
		fields.SpeakerName = resolved.Target
		fields.SpeakerID = resolved.TargetID
	}

	found, err := h.Store.Edit(ctx, args.Get("storeLocation"), id, fields)
	if err != nil {
		h.fail(ctx, "Edit", err, log)
		return
	}
	if !found {
		h.say(ctx, fmt.Sprintf("Quote #%s not found.", id), log)
		return
	}
	h.say(ctx, fmt.Sprintf("Quote #%s updated.", id), log)
}

func (h *Handler) hide(ctx context.Context, inv *Invocation, log *slog.Logger) {
	args := Collect(inv, Groups{Database: true, Command: true})
	if args == nil {
		return
	}
	id := strings.TrimSpace(args.Get("input0"))
	if !isNumeric(id) {
		h.say(ctx, "Usage: !hidequote <id>", log)
		return
	}
	found, err := h.Store.Hide(ctx, args.Get("storeLocation"), id)
	if err != nil {
		h.fail(ctx, "Hide", err, log)
		return
	}
	if !found {
		h.say(ctx, fmt.Sprintf("Quote #%s not found.", id), log)
		return
	}
	h.say(ctx, fmt.Sprintf("Quote #%s hidden.", id), log)
}

func (h *Handler) random(ctx context.Context, inv *Invocation, log *slog.Logger) {
	args := Collect(inv, Groups{Database: true})
	if args == nil {
		return
	}
	rec, err := h.Store.Random(ctx, args.Get("storeLocation"))
	if err != nil {
		h.fail(ctx, "Get Random", err, log)
		return
	}
	if rec == nil {
		h.say(ctx, "No quotes recorded yet.", log)
		return
	}
	h.say(ctx, FormatQuote(*rec), log)
}

func (h *Handler) search(ctx context.Context, inv *Invocation, log *slog.Logger) {
	args := Collect(inv, Groups{Database: true, Command: true, Input: true})
	if args == nil {
		return
	}
	query := strings.TrimSpace(args.Get("rawInput"))
	if isNumeric(query) {
		h.getByID(ctx, inv, query, log)
		return
	}
	if query == "" {
		h.random(ctx, inv, log)
		return
	}
	matches, err := h.Store.Search(ctx, args.Get("storeLocation"), query)
	if err != nil {
		h.fail(ctx, "Search", err, log)
		return
	}
	if len(matches) == 0 {
		h.say(ctx, fmt.Sprintf("No quotes matching %q.", query), log)
		return
	}
	first := matches[0]
	msg := FormatQuote(first)
	if len(matches) > 1 {
		msg += fmt.Sprintf(" (1 of %d matches)", len(matches))
	}
	h.say(ctx, msg, log)
}

func (h *Handler) getByID(ctx context.Context, inv *Invocation, id string, log *slog.Logger) {
	args := Collect(inv, Groups{Database: true})
	if args == nil {
		return
	}
	rec, err := h.Store.GetByID(ctx, args.Get("storeLocation"), id)
	if err != nil {
		h.fail(ctx, "Get", err, log)
		return
	}
	if rec == nil {
		h.say(ctx, fmt.Sprintf("Quote #%s not found.", id), log)
		return
	}
	h.say(ctx, FormatQuote(*rec), log)
}

// fail reports a store failure to chat; storage being unreachable is never
// silently swallowed at the top level.
func (h *Handler) fail(ctx context.Context, op string, err error, log *slog.Logger) {
	telemetry.CommandFailures.Inc()
	log.Error("quote operation failed", slog.String("op", op), slog.Any("err", err))
	h.say(ctx, fmt.Sprintf("Quote (%s) failed: the quote store is unavailable.", op), log)
}

func (h *Handler) say(ctx context.Context, text string, log *slog.Logger) {
	if h.Sink == nil {
		return
	}
	if err := h.Sink.Send(ctx, text); err != nil {
		log.Warn("failed to send chat message", slog.Any("err", err))
	}
}

// FormatQuote renders a record as a single chat line.
func FormatQuote(r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quote #%s", r.ID)
	if r.Text != nil {
		fmt.Fprintf(&b, ": \"%s\"", *r.Text)
	}
	if r.SpeakerName != nil {
		fmt.Fprintf(&b, " - %s", *r.SpeakerName)
	}
	var details []string
	if r.CategoryName != nil {
		details = append(details, *r.CategoryName)
	}
	if r.RecordedAt != nil {
		details = append(details, *r.RecordedAt)
	}
	if len(details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(details, ", "))
	}
	return b.String()
}
