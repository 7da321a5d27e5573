package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/naveenspark/glitchcity/internal/metrics"
	"github.com/naveenspark/glitchcity/internal/store"
	"github.com/naveenspark/glitchcity/internal/typing"
	"github.com/naveenspark/glitchcity/pkg/domain"
	"github.com/naveenspark/glitchcity/pkg/generation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newStore() *store.Store {
	return store.New(store.Seed{
		HumanID: "me",
		Users: []domain.User{
			{ID: "me", Username: "CyberDrifter", Status: domain.StatusOnline},
			{ID: "u2", Username: "NeonViper", Status: domain.StatusIdle, Personality: "Sarcastic netrunner."},
			{ID: "u3", Username: "Code_Sensei", Status: domain.StatusOnline, Personality: "Wise coder."},
			{ID: "u4", Username: "Pixel_Punk", Status: domain.StatusOffline, Personality: "Chaotic artist."},
			{ID: "u9", Username: "Mute", Status: domain.StatusOnline},
		},
		Servers: []domain.Server{{ID: "s1", Channels: []domain.Channel{
			{ID: "c1", Name: "general", Type: domain.ChannelText},
			{ID: "c2", Name: "memes", Type: domain.ChannelText},
			{ID: "vc1", Name: "Lounge", Type: domain.ChannelVoice},
		}}},
		Messages: map[string][]domain.Message{
			"c1": {{ID: "m1", UserID: "me", Content: "@NeonViper what's the plan?"}},
		},
	})
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinTyping = 20 * time.Millisecond
	return cfg
}

func reply(text string) generation.Generator {
	return generation.Func(func(context.Context, generation.Request) (generation.Response, error) {
		return generation.Response{Text: text}, nil
	})
}

func last(st *store.Store, channelID string) domain.Message {
	msgs := st.Messages(channelID)
	return msgs[len(msgs)-1]
}

func TestRespondOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		gen        generation.Generator
		want       Outcome
		wantAuthor string
		wantText   string
	}{
		{"success trims", reply("  heist at midnight \n"), OutcomeSuccess, "u2", "heist at midnight"},
		{"empty posts fallback", reply("   "), OutcomeEmpty, "u2", Fallback},
		{
			"failure posts system notice",
			generation.Func(func(context.Context, generation.Request) (generation.Response, error) {
				return generation.Response{}, &generation.Error{Kind: generation.KindQuota}
			}),
			OutcomeFailure, domain.SystemUserID, ErrorPrefix + "Rate limit reached, slow down a little.",
		},
		{
			"panic becomes failure",
			generation.Func(func(context.Context, generation.Request) (generation.Response, error) {
				panic("backend bug")
			}),
			OutcomeFailure, domain.SystemUserID, ErrorPrefix,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, tr := newStore(), typing.New()
			o := New(st, tr, tt.gen, testConfig())

			got := o.Respond(context.Background(), Job{ChannelID: "c1", PersonaID: "u2", Trigger: "what's the plan?"})
			assert.Equal(t, tt.want, got)
			assert.False(t, tr.Contains("u2"), "typing entry left behind")

			m := last(st, "c1")
			assert.Equal(t, tt.wantAuthor, m.UserID)
			assert.True(t, strings.HasPrefix(m.Content, tt.wantText), "content = %q, want prefix %q", m.Content, tt.wantText)
			assert.NotEmpty(t, m.ID)
		})
	}
}

func TestRespondTimeoutClearsTyping(t *testing.T) {
	st, tr := newStore(), typing.New()
	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	blocking := generation.Func(func(ctx context.Context, _ generation.Request) (generation.Response, error) {
		<-ctx.Done()
		return generation.Response{}, ctx.Err()
	})
	o := New(st, tr, blocking, cfg)

	got := o.Respond(context.Background(), Job{ChannelID: "c1", PersonaID: "u3", Trigger: "hello"})
	assert.Equal(t, OutcomeFailure, got)
	assert.False(t, tr.Contains("u3"))
	assert.Equal(t, ErrorPrefix+"The model took too long to answer.", last(st, "c1").Content)
}

func TestRespondSkips(t *testing.T) {
	tests := []struct {
		name string
		job  Job
	}{
		{"offline persona", Job{ChannelID: "c1", PersonaID: "u4"}},
		{"no personality", Job{ChannelID: "c1", PersonaID: "u9"}},
		{"unknown persona", Job{ChannelID: "c1", PersonaID: "ghost"}},
		{"human", Job{ChannelID: "c1", PersonaID: "me"}},
		{"voice channel", Job{ChannelID: "vc1", PersonaID: "u2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, tr := newStore(), typing.New()
			called := false
			gen := generation.Func(func(context.Context, generation.Request) (generation.Response, error) {
				called = true
				return generation.Response{Text: "should not post"}, nil
			})
			var seen [][]string
			tr.OnChange(func(ids []string) { seen = append(seen, ids) })

			before := len(st.Messages(tt.job.ChannelID))
			got := New(st, tr, gen, testConfig()).Respond(context.Background(), tt.job)

			assert.Equal(t, OutcomeSkipped, got)
			assert.False(t, called, "generator called for skipped job")
			assert.Empty(t, seen, "typing indicator touched for skipped job")
			assert.Len(t, st.Messages(tt.job.ChannelID), before)
		})
	}
}

func TestRespondDropsPostWhenPersonaGoesOffline(t *testing.T) {
	st, tr := newStore(), typing.New()
	gen := generation.Func(func(context.Context, generation.Request) (generation.Response, error) {
		st.SetStatus("u2", domain.StatusOffline)
		return generation.Response{Text: "brb"}, nil
	})

	got := New(st, tr, gen, testConfig()).Respond(context.Background(), Job{ChannelID: "c1", PersonaID: "u2"})
	assert.Equal(t, OutcomeSkipped, got)
	for _, m := range st.Messages("c1") {
		assert.NotEqual(t, "u2", m.UserID, "offline persona authored a message")
	}
	assert.False(t, tr.Contains("u2"))
}

func TestRespondDropsFallbackWhenPersonaGoesOffline(t *testing.T) {
	st, tr := newStore(), typing.New()
	gen := generation.Func(func(context.Context, generation.Request) (generation.Response, error) {
		st.SetStatus("u2", domain.StatusOffline)
		return generation.Response{}, nil
	})

	before := len(st.Messages("c1"))
	got := New(st, tr, gen, testConfig()).Respond(context.Background(), Job{ChannelID: "c1", PersonaID: "u2"})
	assert.Equal(t, OutcomeSkipped, got)
	assert.Len(t, st.Messages("c1"), before, "no fallback from an offline persona")
	assert.False(t, tr.Contains("u2"))
}

func TestRespondEnforcesMinTyping(t *testing.T) {
	st, tr := newStore(), typing.New()
	cfg := testConfig()
	cfg.MinTyping = 80 * time.Millisecond

	start := time.Now()
	New(st, tr, reply("k"), cfg).Respond(context.Background(), Job{ChannelID: "c1", PersonaID: "u3"})
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRespondTypingVisibleDuringGeneration(t *testing.T) {
	st, tr := newStore(), typing.New()
	var during bool
	gen := generation.Func(func(context.Context, generation.Request) (generation.Response, error) {
		during = tr.Contains("u2")
		return generation.Response{Text: "ok"}, nil
	})
	New(st, tr, gen, testConfig()).Respond(context.Background(), Job{ChannelID: "c1", PersonaID: "u2"})
	assert.True(t, during)
}

func TestRespondReadsCurrentHistory(t *testing.T) {
	st, tr := newStore(), typing.New()
	var got generation.Request
	gen := generation.Func(func(_ context.Context, req generation.Request) (generation.Response, error) {
		got = req
		return generation.Response{Text: "ok"}, nil
	})
	o := New(st, tr, gen, testConfig())

	// Appended after the job was scheduled but before it ran.
	st.AppendMessage("c1", domain.Message{UserID: "u3", Content: "late arrival"})
	o.Respond(context.Background(), Job{ChannelID: "c1", PersonaID: "u2", Trigger: "@NeonViper what's the plan?"})

	assert.Equal(t, "CyberDrifter: @NeonViper what's the plan?\nCode_Sensei: late arrival", got.Context)
	assert.Equal(t, "@NeonViper what's the plan?", got.Trigger)
	assert.Equal(t, "NeonViper", got.Persona)
	assert.Contains(t, got.SystemInstruction, "Sarcastic netrunner.")
	assert.Equal(t, float32(1.1), got.Params.Temperature)
}

func TestRespondPostsToScheduledChannel(t *testing.T) {
	st, tr := newStore(), typing.New()
	New(st, tr, reply("memes only"), testConfig()).Respond(context.Background(), Job{ChannelID: "c2", PersonaID: "u3"})
	assert.Equal(t, "memes only", last(st, "c2").Content)
	assert.Len(t, st.Messages("c1"), 1)
}

func TestConcurrentPersonasAllCleanUp(t *testing.T) {
	st, tr := newStore(), typing.New()
	gen := generation.Func(func(_ context.Context, req generation.Request) (generation.Response, error) {
		if req.Persona == "Code_Sensei" {
			return generation.Response{}, errors.New("boom")
		}
		return generation.Response{Text: "yo"}, nil
	})
	o := New(st, tr, gen, testConfig())

	var wg sync.WaitGroup
	for _, id := range []string{"u2", "u3", "u2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			o.Respond(context.Background(), Job{ChannelID: "c1", PersonaID: id})
		}(id)
	}
	wg.Wait()
	assert.Equal(t, 0, tr.Len())
	assert.Len(t, st.Messages("c1"), 4)
}

func TestRespondLogsAndCounts(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m := metrics.New()
	st, tr := newStore(), typing.New()
	o := New(st, tr, reply(""), testConfig(), WithLogger(zap.New(core)), WithMetrics(m))

	o.Respond(context.Background(), Job{ChannelID: "c1", PersonaID: "u2"})

	require.Equal(t, 1, logs.FilterMessage("empty generation, posting fallback").Len())
	entries := logs.FilterMessage("response finished").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "empty", entries[0].ContextMap()["outcome"])
}

func TestRenderHistory(t *testing.T) {
	names := map[string]string{"me": "CyberDrifter", "u2": "NeonViper"}
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return "User"
	}

	tests := []struct {
		name   string
		msgs   []domain.Message
		window int
		want   string
	}{
		{"empty", nil, 20, NoHistory},
		{"only empty content", []domain.Message{{UserID: "me"}}, 20, NoHistory},
		{"unknown author", []domain.Message{{UserID: "zz", Content: "hey"}}, 20, "User: hey"},
		{
			"window keeps newest",
			[]domain.Message{{UserID: "me", Content: "1"}, {UserID: "u2", Content: "2"}, {UserID: "me", Content: "3"}},
			2,
			"NeonViper: 2\nCyberDrifter: 3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderHistory(tt.msgs, tt.window, name); got != tt.want {
				t.Errorf("RenderHistory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSystemInstruction(t *testing.T) {
	s := SystemInstruction(domain.User{Username: "Retro_Gamer", Personality: "Loves 8-bit."})
	for _, want := range []string{"Retro_Gamer", "Loves 8-bit.", "1-3 sentences", "Do not prefix"} {
		assert.Contains(t, s, want)
	}
}
