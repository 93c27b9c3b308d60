package quote

import (
	"context"
	"strings"
	"testing"
)

// recordingSink captures what the bot would have said in chat.
type recordingSink struct {
	sent []string
	err  error
}

func (r *recordingSink) Send(_ context.Context, text string) error {
	r.sent = append(r.sent, text)
	return r.err
}

func (r *recordingSink) last(t *testing.T) string {
	t.Helper()
	if len(r.sent) == 0 {
		t.Fatal("no chat message sent")
	}
	return r.sent[len(r.sent)-1]
}

func newTestHandler() (*Handler, *recordingSink, *Store) {
	s, _ := newTestStore()
	sink := &recordingSink{}
	return &Handler{Store: s, Sink: sink}, sink, s
}

func addInvocation(rawInput string) Invocation {
	return Invocation{
		ID:              "inv-1",
		Command:         "!addquote",
		FirstArg:        firstWord(rawInput),
		RawInput:        rawInput,
		QueuedAt:        "2026-09-01T12:00:00Z",
		User:            "scribe",
		UserDisplayName: "Scribe",
		UserID:          "100",
		UserType:        "twitch",
		Broadcaster:     Broadcaster{Identity: "streamer", ID: "42"},
		CategoryID:      "509658",
		CategoryName:    "Just Chatting",
		StreamTitle:     "hanging out",
		StoreLocation:   "quotes",
	}
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

func TestHandleAddEndToEnd(t *testing.T) {
	ctx := context.Background()
	h, sink, store := newTestHandler()

	act := h.Handle(ctx, addInvocation("^Hero to the rescue"))
	if act != ActionAdd {
		t.Fatalf("routed to %v, want add", act)
	}
	if got := sink.last(t); got != "Quote #1 added!" {
		t.Errorf("confirmation = %q", got)
	}

	records, err := store.ReadAll(ctx, "quotes")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("store has %d records", len(records))
	}
	r := records[0]
	if r.ID != "1" {
		t.Errorf("id = %q", r.ID)
	}
	if r.SpeakerName == nil || *r.SpeakerName != "Hero" {
		t.Errorf("speaker = %v", r.SpeakerName)
	}
	if r.SpeakerID != nil {
		t.Errorf("character speaker has id %q", *r.SpeakerID)
	}
	if r.Text == nil || *r.Text != "to the rescue" {
		t.Errorf("text = %v", r.Text)
	}
	if r.ScribeName == nil || *r.ScribeName != "scribe" {
		t.Errorf("scribe = %v", r.ScribeName)
	}
	if r.RecordedAt == nil || *r.RecordedAt != "2026-09-01T12:00:00Z" {
		t.Errorf("recordedAt = %v", r.RecordedAt)
	}
	if r.CategoryName == nil || *r.CategoryName != "Just Chatting" {
		t.Errorf("category = %v", r.CategoryName)
	}
}

func TestHandleAddUnattributed(t *testing.T) {
	ctx := context.Background()
	h, sink, store := newTestHandler()

	h.Handle(ctx, addInvocation("context is everything"))
	if got := sink.last(t); got != "Quote #1 added!" {
		t.Errorf("confirmation = %q", got)
	}
	records, _ := store.ReadAll(ctx, "quotes")
	if records[0].SpeakerName != nil {
		t.Errorf("speaker = %q, want unattributed", *records[0].SpeakerName)
	}
	if *records[0].Text != "context is everything" {
		t.Errorf("text = %q, want whole input", *records[0].Text)
	}
}

func TestHandleCancelHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	h, sink, store := newTestHandler()

	inv := addInvocation("add something great")
	inv.Command = "!quote"
	act := h.Handle(ctx, inv)
	if act != ActionCancel {
		t.Fatalf("routed to %v, want cancel", act)
	}
	if len(sink.sent) != 0 {
		t.Errorf("cancel sent chat messages: %v", sink.sent)
	}
	records, _ := store.ReadAll(ctx, "quotes")
	if len(records) != 0 {
		t.Errorf("cancel wrote records: %+v", records)
	}
}

func TestHandleDedupExactlyOneExecution(t *testing.T) {
	ctx := context.Background()
	h, _, store := newTestHandler()

	// Both surfaces fire for the same user message. Only one may append.
	generic := addInvocation("add something great")
	generic.Command = "!quote"
	specific := addInvocation("something great")
	specific.Command = "!quote add"

	h.Handle(ctx, generic)
	h.Handle(ctx, specific)

	records, _ := store.ReadAll(ctx, "quotes")
	if len(records) != 1 {
		t.Fatalf("store has %d records, want exactly 1", len(records))
	}
}

func TestHandleStoreFailureReported(t *testing.T) {
	ctx := context.Background()
	docs := failingDocStore{}
	h := &Handler{Store: NewStore(docs), Sink: &recordingSink{}}
	sink := h.Sink.(*recordingSink)

	act := h.Handle(ctx, addInvocation("^Hero line"))
	if act != ActionAdd {
		t.Fatalf("routed to %v", act)
	}
	got := sink.last(t)
	if !strings.Contains(got, "failed") || !strings.Contains(got, "unavailable") {
		t.Errorf("failure message = %q", got)
	}
}

func TestHandleUnknownCommandIsNoop(t *testing.T) {
	ctx := context.Background()
	h, sink, _ := newTestHandler()
	inv := addInvocation("whatever")
	inv.Command = "!uptime"
	if act := h.Handle(ctx, inv); act != ActionNoop {
		t.Errorf("routed to %v, want noop", act)
	}
	if len(sink.sent) != 0 {
		t.Errorf("noop sent messages: %v", sink.sent)
	}
}

func TestHandleEmptyCommandAborts(t *testing.T) {
	ctx := context.Background()
	h, sink, _ := newTestHandler()
	inv := Invocation{ID: "inv-2", StoreLocation: "quotes"}
	if act := h.Handle(ctx, inv); act != ActionNoop {
		t.Errorf("routed to %v, want noop", act)
	}
	if len(sink.sent) != 0 {
		t.Errorf("abort sent messages: %v", sink.sent)
	}
}

func TestHandleDelete(t *testing.T) {
	ctx := context.Background()
	h, sink, store := newTestHandler()
	if _, err := store.Add(ctx, "quotes", Record{Text: strp("doomed")}); err != nil {
		t.Fatal(err)
	}

	inv := addInvocation("1")
	inv.Command = "!delquote"
	h.Handle(ctx, inv)
	if got := sink.last(t); got != "Quote #1 deleted." {
		t.Errorf("confirmation = %q", got)
	}

	inv = addInvocation("99")
	inv.Command = "!delquote"
	h.Handle(ctx, inv)
	if got := sink.last(t); got != "Quote #99 not found." {
		t.Errorf("missing id response = %q", got)
	}

	inv = addInvocation("notanumber")
	inv.Command = "!delquote"
	h.Handle(ctx, inv)
	if got := sink.last(t); !strings.HasPrefix(got, "Usage:") {
		t.Errorf("bad id response = %q", got)
	}
}

func TestHandleEditReattributes(t *testing.T) {
	ctx := context.Background()
	h, sink, store := newTestHandler()
	if _, err := store.Add(ctx, "quotes", Record{Text: strp("old text"), SpeakerName: strp("alice")}); err != nil {
		t.Fatal(err)
	}

	inv := addInvocation("1 ^Narrator new text")
	inv.Command = "!editquote"
	h.Handle(ctx, inv)
	if got := sink.last(t); got != "Quote #1 updated." {
		t.Errorf("confirmation = %q", got)
	}
	rec, _ := store.GetByID(ctx, "quotes", "1")
	if rec.SpeakerName == nil || *rec.SpeakerName != "Narrator" {
		t.Errorf("speaker = %v", rec.SpeakerName)
	}
	if *rec.Text != "new text" {
		t.Errorf("text = %q", *rec.Text)
	}
}

func TestHandleGetByID(t *testing.T) {
	ctx := context.Background()
	h, sink, store := newTestHandler()
	if _, err := store.Add(ctx, "quotes", Record{Text: strp("findable"), SpeakerName: strp("bob")}); err != nil {
		t.Fatal(err)
	}

	inv := addInvocation("1")
	inv.Command = "!quote"
	if act := h.Handle(ctx, inv); act != ActionGetID {
		t.Fatalf("routed to %v", act)
	}
	if got := sink.last(t); !strings.Contains(got, "Quote #1") || !strings.Contains(got, "findable") {
		t.Errorf("response = %q", got)
	}
}

func TestHandleRandomEmptyStore(t *testing.T) {
	ctx := context.Background()
	h, sink, _ := newTestHandler()
	inv := addInvocation("")
	inv.Command = "!quote"
	inv.FirstArg = ""
	if act := h.Handle(ctx, inv); act != ActionGetRandom {
		t.Fatalf("routed to %v", act)
	}
	if got := sink.last(t); got != "No quotes recorded yet." {
		t.Errorf("response = %q", got)
	}
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()
	h, sink, store := newTestHandler()
	seed := []string{"the cake is a lie", "cake day", "unrelated"}
	for _, text := range seed {
		if _, err := store.Add(ctx, "quotes", Record{Text: strp(text)}); err != nil {
			t.Fatal(err)
		}
	}

	inv := addInvocation("cake")
	inv.Command = "!quote"
	if act := h.Handle(ctx, inv); act != ActionSearch {
		t.Fatalf("routed to %v", act)
	}
	got := sink.last(t)
	if !strings.Contains(got, "the cake is a lie") {
		t.Errorf("response = %q, want first match", got)
	}
	if !strings.Contains(got, "(1 of 2 matches)") {
		t.Errorf("response = %q, want match count", got)
	}

	inv = addInvocation("zebra")
	inv.Command = "!searchquote"
	h.Handle(ctx, inv)
	if got := sink.last(t); !strings.Contains(got, "No quotes matching") {
		t.Errorf("response = %q", got)
	}
}

func TestHandleHide(t *testing.T) {
	ctx := context.Background()
	h, sink, store := newTestHandler()
	if _, err := store.Add(ctx, "quotes", Record{Text: strp("regret")}); err != nil {
		t.Fatal(err)
	}
	inv := addInvocation("1")
	inv.Command = "!hidequote"
	h.Handle(ctx, inv)
	if got := sink.last(t); got != "Quote #1 hidden." {
		t.Errorf("confirmation = %q", got)
	}
	if rec, _ := store.GetByID(ctx, "quotes", "1"); rec != nil {
		t.Error("hidden record still visible")
	}
}

func TestFormatQuote(t *testing.T) {
	full := Record{ID: "3", Text: strp("well said"), SpeakerName: strp("alice"), CategoryName: strp("Art"), RecordedAt: strp("2026-09-01")}
	got := FormatQuote(full)
	want := `Quote #3: "well said" - alice (Art, 2026-09-01)`
	if got != want {
		t.Errorf("FormatQuote = %q, want %q", got, want)
	}

	sparse := Record{ID: "4", Text: strp("bare")}
	if got := FormatQuote(sparse); got != `Quote #4: "bare"` {
		t.Errorf("FormatQuote sparse = %q", got)
	}
}

// failingDocStore always errors, for exercising the store-unavailable path.
type failingDocStore struct{}

func (failingDocStore) Get(context.Context, string) ([]byte, error) {
	return nil, context.DeadlineExceeded
}

func (failingDocStore) Put(context.Context, string, []byte) error {
	return context.DeadlineExceeded
}
