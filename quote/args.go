package quote

import "strings"

// ArgSource supplies raw invocation fields by name, the way the chat
// connector delivered them. A missing field reports ok=false; the aggregator
// treats absence as empty data, never as an error.
type ArgSource interface {
	TryGet(key string) (string, bool)
}

// Groups selects which field groups Collect pulls from the source.
type Groups struct {
	Command  bool
	Database bool
	Stream   bool
	User     bool
	Input    bool
}

// Context is the per-invocation bundle of named string fields. It is
// assembled fresh for each invocation, read-only downstream, and never
// persisted or shared across invocations.
type Context map[string]string

// Get returns the value for key, or empty when absent.
func (c Context) Get(key string) string { return c[key] }

// GetOptional returns the value as a nullable field.
func (c Context) GetOptional(key string) *string { return optional(c[key]) }

// Collect assembles a Context from the requested field groups. It returns
// nil, not an empty Context, when nothing was requested, signaling "no usable
// context": the caller must then abort the invocation without side effects.
//
// When the input group is requested, Collect additionally derives
// rawInputMessage and runs target resolution to populate inputTarget,
// inputTargetId, inputTargetOperator, and inputContent.
func Collect(src ArgSource, g Groups) Context {
	ctx := Context{}
	get := func(key string) string {
		v, _ := src.TryGet(key)
		return v
	}
	add := func(keys ...string) {
		for _, k := range keys {
			ctx[k] = get(k)
		}
	}

	if g.Database {
		add("storeLocation")
	}
	if g.Stream {
		add("broadcastUser", "broadcastUserId", "broadcastUserName",
			"categoryId", "categoryName", "streamTitle")
	}
	if g.User {
		add("user", "userName", "userId", "userType", "isModerator", "isVip")
	}
	if g.Command {
		add("command", "input0")
	}
	if g.Input {
		add("rawInput", "queuedAt", "targetUser", "targetUserName",
			"targetUserId", "targetUserPlatform")
		ctx["rawInputMessage"] = strings.TrimSpace(get("command") + " " + ctx["rawInput"])

		resolved := ResolveTarget(
			ctx["rawInput"],
			splitAliases(get("broadcasterAliases")),
			Broadcaster{Identity: get("broadcastUser"), ID: get("broadcastUserId")},
			Mention{
				Identity:     ctx["targetUser"],
				DisplayName:  ctx["targetUserName"],
				ID:           ctx["targetUserId"],
				Platform:     ctx["targetUserPlatform"],
				IsFollowing:  isTrue(get("targetIsFollowing")),
				IsModerator:  isTrue(get("targetIsModerator")),
				LastActiveAt: get("targetLastActive"),
			},
		)
		ctx["inputTarget"] = deref(resolved.Target)
		ctx["inputTargetId"] = deref(resolved.TargetID)
		ctx["inputTargetOperator"] = resolved.Operator
		ctx["inputContent"] = resolved.Content
	}

	if len(ctx) == 0 {
		return nil
	}
	return ctx
}

// splitAliases splits the comma-separated broadcaster alias list into a
// trimmed slice.
func splitAliases(s string) []string {
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

func isTrue(s string) bool { return strings.EqualFold(s, "true") }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
