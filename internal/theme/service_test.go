package theme

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inviteai/internal/adapter/memory"
	"inviteai/internal/catalog"
	"inviteai/internal/domain"
	"inviteai/internal/domain/jsoncfg"
	"inviteai/internal/ledger"
	"inviteai/internal/providers/llm"
	"inviteai/internal/tasks"
	"inviteai/internal/theme/presets"
)

const testUser = "user-1"

type stubGenerator struct {
	calls atomic.Int32
	text  string
	err   error
	last  llm.Request
}

func (g *stubGenerator) GenerateJSON(_ context.Context, req llm.Request) (*llm.Response, error) {
	g.calls.Add(1)
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Response{Text: g.text, InputTokens: 1200, OutputTokens: 800, Provider: "stub"}, nil
}

type fixedGenerators struct{ gen llm.Generator }

func (f fixedGenerators) For(domain.ModelDescriptor) (llm.Generator, error) { return f.gen, nil }

type denyAll struct{}

func (denyAll) Allow(string, int, time.Duration) bool { return false }

type refusingScheduler struct{}

func (refusingScheduler) Submit(string, tasks.Func) error { return domain.ErrQueueFull }

type fixture struct {
	store *memory.Store
	gen   *stubGenerator
	svc   *Service
}

func newFixture(t *testing.T, balance int, scheduler tasks.Scheduler) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.SeedUser(testUser, "u1@example.com", balance)
	gen := &stubGenerator{}
	cat := catalog.New()
	l := ledger.New(store.Credits(), zerolog.Nop())
	pipeline := NewPipeline(cat, fixedGenerators{gen: gen}, l, store.Themes(), nil, zerolog.Nop())
	svc := NewService(cat, l, store.Themes(), pipeline, scheduler, nil, Settings{}, zerolog.Nop())
	return &fixture{store: store, gen: gen, svc: svc}
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	b, err := f.store.Credits().Balance(context.Background(), testUser)
	require.NoError(t, err)
	return b
}

func themeRequest() jsoncfg.ThemeRequest {
	return jsoncfg.ThemeRequest{Prompt: "an elegant ballroom wedding in ivory and gold", ModelID: "gpt-4o-mini"}
}

// presetWith returns the classic preset with edit applied to its generic form.
func presetWith(t *testing.T, edit func(doc map[string]any)) string {
	t.Helper()
	p, ok := presets.Get("classic-elegance")
	require.True(t, ok)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(p.Raw, &doc))
	if edit != nil {
		edit(doc)
	}
	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(out)
}

func section(doc map[string]any, i int) map[string]any {
	return doc["sections"].([]any)[i].(map[string]any)
}

func TestCreateCompletesValidTheme(t *testing.T) {
	f := newFixture(t, 5, nil)
	f.gen.text = "```json\n" + presetWith(t, nil) + "\n```"

	rec, err := f.svc.Create(context.Background(), testUser, themeRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.ThemeStatusCompleted, rec.Status)
	assert.Nil(t, rec.FailReason)
	assert.Equal(t, 1, rec.CreditsUsed)
	require.NotNil(t, rec.InputTokens)
	assert.Equal(t, 1200, *rec.InputTokens)
	require.NotNil(t, rec.Cost)
	assert.Greater(t, *rec.Cost, 0.0)
	require.NotNil(t, rec.DurationMS)
	assert.Equal(t, 4, f.balance(t))

	assert.Equal(t, SchemaName, f.gen.last.SchemaName)
	assert.Contains(t, f.gen.last.Prompt, "ivory and gold")
	assert.Contains(t, f.gen.last.Prompt, `Reference theme "classic-elegance"`)
}

func TestCreateNormalizesEnumDrift(t *testing.T) {
	f := newFixture(t, 5, nil)
	f.gen.text = presetWith(t, func(doc map[string]any) {
		doc["decorations"].(map[string]any)["divider"] = "Symbol_With_Lines"
		section(doc, 0)["animation"] = "fadeIn"
		section(doc, 1)["layout"] = "two_column"
	})

	rec, err := f.svc.Create(context.Background(), testUser, themeRequest())
	require.NoError(t, err)
	require.Equal(t, domain.ThemeStatusCompleted, rec.Status, "reason: %v", rec.FailReason)

	doc, err := Decode(rec.Theme)
	require.NoError(t, err)
	assert.Equal(t, "symbol-with-lines", doc.Decorations.Divider)
	assert.Equal(t, "fade-in", doc.Sections[0].Animation)
	assert.Equal(t, "split", doc.Sections[1].Layout)
}

func TestUnknownClassFailsSafelistWithoutRefund(t *testing.T) {
	f := newFixture(t, 5, nil)
	f.gen.text = presetWith(t, func(doc map[string]any) {
		section(doc, 0)["className"] = "min-h-screen bg-unknownclass-999"
	})

	rec, err := f.svc.Create(context.Background(), testUser, themeRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.ThemeStatusSafelistFailed, rec.Status)
	require.NotNil(t, rec.FailReason)
	assert.Equal(t, `theme.sections[0].className: "bg-unknownclass-999"`, *rec.FailReason)
	assert.NotEmpty(t, rec.Theme)
	assert.Equal(t, 1, rec.CreditsUsed)
	assert.Equal(t, 4, f.balance(t))
}

func TestStructuralFailureRefunds(t *testing.T) {
	f := newFixture(t, 5, nil)
	f.gen.text = `{"name": "Half a theme", "sections": []}`

	rec, err := f.svc.Create(context.Background(), testUser, themeRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.ThemeStatusFailed, rec.Status)
	require.NotNil(t, rec.FailReason)
	assert.True(t, strings.HasPrefix(*rec.FailReason, "structural validation: "), *rec.FailReason)
	assert.Equal(t, 0, rec.CreditsUsed)
	assert.Equal(t, 5, f.balance(t))

	entries := f.store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.RefThemeGeneration, entries[0].ReferenceType)
	assert.Equal(t, domain.RefThemeRefund, entries[1].ReferenceType)
	assert.Equal(t, rec.ID, entries[1].ReferenceID)
}

func TestProviderErrorRefundsAndTruncates(t *testing.T) {
	f := newFixture(t, 5, nil)
	f.gen.err = errors.New(strings.Repeat("x", 900))

	rec, err := f.svc.Create(context.Background(), testUser, themeRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.ThemeStatusFailed, rec.Status)
	require.NotNil(t, rec.FailReason)
	assert.Len(t, *rec.FailReason, maxFailReasonLength)
	assert.Equal(t, 5, f.balance(t))
}

func TestCreateRejectionsLeaveLedgerUntouched(t *testing.T) {
	cases := []struct {
		name string
		req  jsoncfg.ThemeRequest
		deny bool
		want error
	}{
		{name: "empty prompt", req: jsoncfg.ThemeRequest{ModelID: "gpt-4o-mini"}, want: domain.ErrInvalidRequest},
		{name: "unknown model", req: jsoncfg.ThemeRequest{Prompt: "x", ModelID: "nope"}, want: domain.ErrUnknownModel},
		{name: "image model", req: jsoncfg.ThemeRequest{Prompt: "x", ModelID: "synthetic"}, want: domain.ErrUnknownModel},
		{name: "rate limited", req: themeRequest(), deny: true, want: domain.ErrRateLimited},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 5, nil)
			if tc.deny {
				f.svc.limiter = denyAll{}
			}
			_, err := f.svc.Create(context.Background(), testUser, tc.req)
			require.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.store.Entries())
			assert.Zero(t, f.gen.calls.Load())
		})
	}
}

func TestInsufficientCredits(t *testing.T) {
	f := newFixture(t, 0, nil)
	_, err := f.svc.Create(context.Background(), testUser, themeRequest())
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Zero(t, f.gen.calls.Load())
}

func TestBackgroundCreateRunsThroughScheduler(t *testing.T) {
	f := newFixture(t, 5, tasks.Inline{})
	f.gen.text = presetWith(t, nil)
	req := themeRequest()
	req.Background = true

	rec, err := f.svc.Create(context.Background(), testUser, req)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeStatusQueued, rec.Status)

	got, err := f.svc.Get(context.Background(), testUser, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeStatusCompleted, got.Status)
}

func TestFullQueueLeavesRecordForWorker(t *testing.T) {
	f := newFixture(t, 5, refusingScheduler{})
	f.gen.text = presetWith(t, nil)
	req := themeRequest()
	req.Background = true

	rec, err := f.svc.Create(context.Background(), testUser, req)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeStatusQueued, rec.Status)
	assert.Zero(t, f.gen.calls.Load())

	done, err := f.svc.ResumeQueued(context.Background(), time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	got, err := f.svc.Get(context.Background(), testUser, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeStatusCompleted, got.Status)
	assert.Equal(t, int32(1), f.gen.calls.Load())
}

func TestListHealsWithoutCallingModel(t *testing.T) {
	f := newFixture(t, 5, tasks.Inline{})
	ctx := context.Background()
	reason := `theme.sections[0].className: "old-token"`
	require.NoError(t, f.store.Themes().Create(ctx, &domain.ThemeRecord{
		ID:          "t-healed",
		UserID:      testUser,
		Prompt:      "classic",
		ModelID:     "gpt-4o-mini",
		Status:      domain.ThemeStatusSafelistFailed,
		FailReason:  &reason,
		CreditsUsed: 1,
		Theme:       json.RawMessage(presetWith(t, nil)),
	}))
	require.NoError(t, f.store.Themes().Create(ctx, &domain.ThemeRecord{
		ID:          "t-still-bad",
		UserID:      testUser,
		Prompt:      "classic",
		ModelID:     "gpt-4o-mini",
		Status:      domain.ThemeStatusSafelistFailed,
		FailReason:  &reason,
		CreditsUsed: 1,
		Theme: json.RawMessage(presetWith(t, func(doc map[string]any) {
			section(doc, 0)["className"] = "bg-unknownclass-999"
		})),
	}))

	recs, err := f.svc.List(ctx, testUser, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	byID := map[string]domain.ThemeRecord{}
	for _, r := range recs {
		byID[r.ID] = r
	}
	assert.Equal(t, domain.ThemeStatusCompleted, byID["t-healed"].Status)
	assert.Nil(t, byID["t-healed"].FailReason)
	assert.Equal(t, domain.ThemeStatusSafelistFailed, byID["t-still-bad"].Status)
	assert.Zero(t, f.gen.calls.Load())

	stored, err := f.store.Themes().Get(ctx, "t-healed", testUser)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeStatusCompleted, stored.Status)
	assert.Equal(t, 1, stored.CreditsUsed)
}

func TestFailStaleRefundsOnce(t *testing.T) {
	f := newFixture(t, 5, nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.store.SetClock(func() time.Time { return base })

	l := ledger.New(f.store.Credits(), zerolog.Nop())
	_, err := l.Reserve(ctx, testUser, 1, domain.CreditRef{Type: domain.RefThemeGeneration, ID: "t-stuck"})
	require.NoError(t, err)
	require.NoError(t, f.store.Themes().Create(ctx, &domain.ThemeRecord{
		ID: "t-stuck", UserID: testUser, ModelID: "gpt-4o-mini", Status: domain.ThemeStatusProcessing, CreditsUsed: 1,
	}))

	f.store.SetClock(func() time.Time { return base.Add(time.Hour) })
	n, err := f.svc.FailStale(ctx, base.Add(30*time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, f.balance(t))

	n, err = f.svc.FailStale(ctx, base.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 5, f.balance(t))

	rec, err := f.svc.Get(ctx, testUser, "t-stuck")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeStatusFailed, rec.Status)
}

func TestProcessSkipsClaimedRecord(t *testing.T) {
	f := newFixture(t, 5, nil)
	ctx := context.Background()
	rec := &domain.ThemeRecord{ID: "t1", UserID: testUser, ModelID: "gpt-4o-mini", Status: domain.ThemeStatusProcessing}
	require.NoError(t, f.store.Themes().Create(ctx, rec))

	out, err := f.svc.pipeline.Process(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeStatusProcessing, out.Status)
	assert.Zero(t, f.gen.calls.Load())
}

func TestStaticGeneratorProducesValidPreset(t *testing.T) {
	gen := NewStaticGenerator()
	resp, err := gen.GenerateJSON(context.Background(), llm.Request{
		Prompt: BuildPrompt(jsoncfg.ThemeRequest{Prompt: "a boho beach sunset party"}),
	})
	require.NoError(t, err)
	doc, err := Decode([]byte(resp.Text))
	require.NoError(t, err)
	assert.Equal(t, "Boho Sunset", doc.Name)
}
