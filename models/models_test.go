package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParty_Clone(t *testing.T) {
	seatedAt := time.Date(2026, 10, 16, 19, 0, 0, 0, time.UTC)
	p := &Party{
		ID:        "p1",
		Name:      "Alice",
		PartySize: 2,
		Status:    StatusSeated,
		SeatedAt:  &seatedAt,
	}

	c := p.Clone()
	require.NotNil(t, c.SeatedAt)
	assert.NotSame(t, p.SeatedAt, c.SeatedAt)

	*c.SeatedAt = seatedAt.Add(time.Hour)
	c.Name = "Bob"
	assert.True(t, p.SeatedAt.Equal(seatedAt))
	assert.Equal(t, "Alice", p.Name)

	waiting := (&Party{ID: "p2"}).Clone()
	assert.Nil(t, waiting.SeatedAt)
}

func TestParty_ArrivedBefore(t *testing.T) {
	t0 := time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		a, b     Party
		expected bool
	}{
		{"earlier join", Party{JoinedAt: t0, Seq: 5}, Party{JoinedAt: t0.Add(time.Second), Seq: 1}, true},
		{"later join", Party{JoinedAt: t0.Add(time.Second), Seq: 1}, Party{JoinedAt: t0, Seq: 5}, false},
		{"same time lower seq", Party{JoinedAt: t0, Seq: 1}, Party{JoinedAt: t0, Seq: 2}, true},
		{"same time higher seq", Party{JoinedAt: t0, Seq: 2}, Party{JoinedAt: t0, Seq: 1}, false},
		{"identical", Party{JoinedAt: t0, Seq: 1}, Party{JoinedAt: t0, Seq: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.ArrivedBefore(&tt.b))
		})
	}
}

func TestParty_JSON(t *testing.T) {
	p := Party{
		ID:            "p1",
		Name:          "Alice",
		PartySize:     3,
		Status:        StatusWaiting,
		Position:      2,
		EstimatedWait: 30,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "WAITING", fields["status"])
	assert.Equal(t, float64(30), fields["estimated_wait"])
	assert.Equal(t, float64(3), fields["party_size"])
	assert.NotContains(t, fields, "seated_at")
	assert.NotContains(t, fields, "contact")
}

func TestChangeEvent_JSON(t *testing.T) {
	ev := ChangeEvent{
		Type:     EventSkipped,
		Seq:      7,
		Party:    &Party{ID: "p1"},
		Reason:   "no show",
		Snapshot: Snapshot{Seq: 7, Waiting: []Party{}},
		Seated:   []Party{},
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"SKIPPED"`)
	assert.Contains(t, string(data), `"reason":"no show"`)
	assert.Contains(t, string(data), `"waiting":[]`)
}

func TestChangeEvent_Public(t *testing.T) {
	seatedAt := time.Date(2026, 10, 16, 19, 0, 0, 0, time.UTC)
	party := &Party{ID: "p1", Name: "Alice", Contact: "+15550100"}
	ev := ChangeEvent{
		Type:     EventJoined,
		Seq:      3,
		Party:    party,
		Snapshot: Snapshot{Seq: 3, Waiting: []Party{*party}, Count: 1},
		Seated:   []Party{{ID: "p0", Contact: "p0@example.com", SeatedAt: &seatedAt}},
	}

	pub := ev.Public()
	assert.Empty(t, pub.Party.Contact)
	assert.Empty(t, pub.Snapshot.Waiting[0].Contact)
	assert.Empty(t, pub.Seated[0].Contact)
	assert.Equal(t, "Alice", pub.Snapshot.Waiting[0].Name)
	assert.Equal(t, 1, pub.Snapshot.Count)
	assert.True(t, pub.Seated[0].SeatedAt.Equal(seatedAt))

	// the source event is left intact
	assert.Equal(t, "+15550100", ev.Party.Contact)
	assert.Equal(t, "+15550100", ev.Snapshot.Waiting[0].Contact)
	assert.Equal(t, "p0@example.com", ev.Seated[0].Contact)

	data, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "contact")
}
