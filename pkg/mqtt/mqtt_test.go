package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"sentinel/events/moderation/1", "sentinel/events/moderation/1", true},
		{"sentinel/events/moderation/1", "sentinel/events/moderation/2", false},
		{"sentinel/events/+/1", "sentinel/events/verification/1", true},
		{"sentinel/events/+", "sentinel/events/moderation/1", false},
		{"sentinel/#", "sentinel/events/moderation/1", true},
		{"sentinel/#", "sentinel", true},
		{"sentinel/events/#", "other/events", false},
		{"a/b/c", "a/b", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, topicMatch(tt.pattern, tt.topic), "%s ~ %s", tt.pattern, tt.topic)
	}
}

func TestDispatchRunsMatchingRoutes(t *testing.T) {
	b := newBridge("test")
	var got []string
	require.NoError(t, b.Subscribe("sentinel/events/#", func(topic string, _ []byte) { got = append(got, "all:"+topic) }))
	require.NoError(t, b.Subscribe("sentinel/events/moderation/+", func(topic string, _ []byte) { got = append(got, "mod:"+topic) }))

	assert.Equal(t, 2, b.dispatch("sentinel/events/moderation/1", nil))
	assert.Equal(t, 1, b.dispatch("sentinel/events/verification/1", nil))
	assert.Equal(t, []string{"all:sentinel/events/moderation/1", "mod:sentinel/events/moderation/1", "all:sentinel/events/verification/1"}, got)

	require.NoError(t, b.Unsubscribe("sentinel/events/#"))
	assert.Equal(t, 0, b.dispatch("sentinel/events/verification/1", nil))
}

func TestAnswer(t *testing.T) {
	raw, err := json.Marshal(Request{CorrelationID: "abc", Payload: map[string]any{"guildId": "g1"}})
	require.NoError(t, err)

	topic, resp, err := answer("sentinel/request/guild/config", raw, func(p map[string]any) (any, error) {
		assert.Equal(t, "guild/config", p["_topic"])
		return p["guildId"], nil
	})
	require.NoError(t, err)
	assert.Equal(t, "response/guild/config/abc", topic)
	assert.Equal(t, "abc", resp.CorrelationID)
	assert.Equal(t, "g1", resp.Data)

	_, resp, err = answer("sentinel/request/x", raw, func(map[string]any) (any, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)
	assert.Equal(t, "boom", resp.Error)

	_, _, err = answer("sentinel/request/x", []byte("{"), nil)
	assert.Error(t, err)
}

func TestDeliverWakesPendingRequest(t *testing.T) {
	b := newBridge("test")
	ch := make(chan Response, 1)
	b.pending["abc"] = ch

	raw, err := json.Marshal(Response{CorrelationID: "abc", Data: "pong"})
	require.NoError(t, err)
	assert.True(t, b.deliver(raw))
	assert.Equal(t, "pong", (<-ch).Data)

	raw, err = json.Marshal(Response{CorrelationID: "unknown"})
	require.NoError(t, err)
	assert.False(t, b.deliver(raw))
}

func TestGuildConfigHandler(t *testing.T) {
	ctx := context.Background()
	store, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { store.Close() })
	_, err = store.EnsureGuild(ctx, "g1", "Guild")
	require.NoError(t, err)

	h := guildConfigHandler(store, time.Second)

	data, err := h(map[string]any{"guildId": "g1"})
	require.NoError(t, err)
	assert.Equal(t, "Guild", data.(*models.GuildConfig).Name)

	_, err = h(map[string]any{})
	assert.Error(t, err)

	_, err = h(map[string]any{"guildId": "missing"})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCaseEventUsesUnixTime(t *testing.T) {
	at := time.Unix(1700000000, 0)
	ev := newCaseEvent(&models.ModerationCase{GuildID: "g1", CaseNumber: 4, Action: models.ActionBan, CreatedAt: at})
	assert.Equal(t, "ban", ev.Action)
	assert.EqualValues(t, 1700000000, ev.CreatedAt)
	assert.Equal(t, "events/moderation/g1", caseTopic("g1"))
}
