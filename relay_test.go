/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"math/rand"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Sender that keeps every message it is handed.
type recorder struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recorder) Send(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.msgs = append(r.msgs, msg)

	return nil
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Event)
	}

	return out
}

func (r *recorder) all(event string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Message
	for _, m := range r.msgs {
		if m.Event == event {
			out = append(out, m)
		}
	}

	return out
}

func (r *recorder) last(t *testing.T, event string) Message {
	t.Helper()

	msgs := r.all(event)
	require.NotEmpty(t, msgs, "no %s received", event)

	return msgs[len(msgs)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = nil
}

func testConfig() *Config {
	return &Config{
		defaultName:    "Jogador",
		maxNameLength:  20,
		sendBuffer:     16,
		maxMessageSize: 64 * 1024,
		pingInterval:   25 * time.Second,
		pingTimeout:    60 * time.Second,
		corsOrigins:    []string{"*"},
	}
}

func newTestRelay(t *testing.T, ids ...string) (*Relay, map[string]*recorder) {
	t.Helper()

	relay := newRelay(testConfig(), zerolog.Nop())
	sinks := make(map[string]*recorder, len(ids))

	for _, id := range ids {
		sinks[id] = &recorder{}
		require.NoError(t, relay.Connect(id, "name-"+id, sinks[id]))
	}

	return relay, sinks
}

func resetAll(sinks map[string]*recorder) {
	for _, s := range sinks {
		s.reset()
	}
}

func TestFirstJoinerIsAdmin(t *testing.T) {
	relay, sinks := newTestRelay(t, "a")

	require.NoError(t, relay.Join("a", "r1", ""))

	admin, ok := relay.Admin("r1")
	require.True(t, ok)
	assert.Equal(t, "a", admin)

	roster := sinks["a"].last(t, eventRoomPlayers).Data.(RoomPlayers)
	assert.Empty(t, roster.Players)
	assert.Equal(t, "a", roster.AdminID)
	assert.Empty(t, sinks["a"].all(eventPlayerJoined), "joiner is not told about itself")
}

func TestJoinNotifiesOthersAndSendsRoster(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b", "c")

	require.NoError(t, relay.Join("a", "r1", ""))
	require.NoError(t, relay.Join("b", "r1", ""))
	resetAll(sinks)

	require.NoError(t, relay.Join("c", "r1", "Carol"))

	for _, id := range []string{"a", "b"} {
		joined := sinks[id].last(t, eventPlayerJoined).Data.(PlayerJoined)
		assert.Equal(t, PlayerJoined{PlayerID: "c", PlayerName: "Carol", IsAdmin: false}, joined)
	}

	roster := sinks["c"].last(t, eventRoomPlayers).Data.(RoomPlayers)
	assert.Equal(t, "a", roster.AdminID)
	assert.Equal(t, []RoomPlayer{
		{ID: "a", Name: "name-a", IsAdmin: true},
		{ID: "b", Name: "name-b", IsAdmin: false},
	}, roster.Players)
	assert.Equal(t, "Carol", relay.Name("c"))
}

func TestRoomPlayersNeverListsJoiner(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b", "c")

	for _, id := range []string{"a", "b", "c", "b"} {
		require.NoError(t, relay.Join(id, "r1", ""))

		roster := sinks[id].last(t, eventRoomPlayers).Data.(RoomPlayers)
		assert.NotEmpty(t, roster.AdminID)
		for _, p := range roster.Players {
			assert.NotEqual(t, id, p.ID)
		}
	}
}

func TestAdminHandoff(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b", "c")

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, relay.Join(id, "r1", ""))
	}
	resetAll(sinks)

	require.NoError(t, relay.Leave("a", "r1"))

	admin, _ := relay.Admin("r1")
	assert.Equal(t, "b", admin)

	for _, id := range []string{"b", "c"} {
		assert.Equal(t, []string{eventPlayerLeft, eventAdminChanged}, sinks[id].events())

		left := sinks[id].last(t, eventPlayerLeft).Data.(PlayerLeft)
		assert.Equal(t, PlayerLeft{PlayerID: "a", PlayerName: "name-a"}, left)

		changed := sinks[id].last(t, eventAdminChanged).Data.(AdminChanged)
		assert.Equal(t, AdminChanged{NewAdminID: "b", NewAdminName: "name-b"}, changed)
	}
	assert.Empty(t, sinks["a"].events())
}

func TestNonAdminLeaveKeepsAdmin(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b", "c")

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, relay.Join(id, "r1", ""))
	}
	resetAll(sinks)

	require.NoError(t, relay.Leave("b", "r1"))

	admin, _ := relay.Admin("r1")
	assert.Equal(t, "a", admin)
	assert.Equal(t, []string{eventPlayerLeft}, sinks["a"].events())
	assert.Equal(t, []string{eventPlayerLeft}, sinks["c"].events())
}

func TestLeaveRoomNotJoinedIsNoop(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b")

	require.NoError(t, relay.Join("a", "r1", ""))
	resetAll(sinks)

	require.NoError(t, relay.Leave("b", "r1"))
	require.NoError(t, relay.Leave("b", "nowhere"))

	assert.Empty(t, sinks["a"].events())
	assert.Equal(t, []string{"a"}, relay.Members("r1"))
}

func TestGameMessageAndBroadcast(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b", "c")

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, relay.Join(id, "r1", ""))
	}
	resetAll(sinks)

	payload := json.RawMessage(`{"guess":"casa","n":3}`)

	require.NoError(t, relay.Message("a", "r1", "guess", payload))

	assert.Empty(t, sinks["a"].all(eventGameMessage))
	for _, id := range []string{"b", "c"} {
		msg := sinks[id].last(t, eventGameMessage).Data.(GameMessage)
		assert.Equal(t, "guess", msg.Event)
		assert.Equal(t, "a", msg.From)
		assert.Equal(t, "name-a", msg.FromName)
		assert.JSONEq(t, string(payload), string(msg.Payload))
	}
	resetAll(sinks)

	require.NoError(t, relay.Broadcast("a", "r1", "round-start", json.RawMessage(`null`)))

	for _, id := range []string{"a", "b", "c"} {
		assert.Len(t, sinks[id].all(eventGameMessage), 1)
	}
}

func TestRelayValidation(t *testing.T) {
	relay, _ := newTestRelay(t, "a")

	assert.ErrorIs(t, relay.Join("a", "", ""), errEmptyRoomID)
	assert.ErrorIs(t, relay.Join("ghost", "r1", ""), errUnknownConnection)
	assert.ErrorIs(t, relay.Leave("a", ""), errEmptyRoomID)
	assert.ErrorIs(t, relay.RenameInRoom("a", "r1", "   ", ""), errEmptyName)
	assert.ErrorIs(t, relay.RenameInRoom("a", "", "Ann", ""), errEmptyRoomID)
	assert.ErrorIs(t, relay.Broadcast("a", "r1", "", nil), errEmptyEvent)
	assert.ErrorIs(t, relay.Message("a", "", "x", nil), errEmptyRoomID)
	assert.ErrorIs(t, relay.Connect("", "x", &recorder{}), errEmptyConnectionID)
	assert.False(t, relay.HasRoom("r1"))
}

func TestRejoinDoesNotDuplicate(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b")

	require.NoError(t, relay.Join("a", "r1", ""))
	require.NoError(t, relay.Join("b", "r1", ""))
	require.NoError(t, relay.Join("b", "r1", ""))
	require.NoError(t, relay.Join("a", "r1", ""))

	assert.Equal(t, []string{"a", "b"}, relay.Members("r1"))

	admin, _ := relay.Admin("r1")
	assert.Equal(t, "a", admin)

	resetAll(sinks)
	require.NoError(t, relay.Broadcast("a", "r1", "ping", nil))
	assert.Len(t, sinks["b"].all(eventGameMessage), 1)
}

func TestDisconnectLeavesEveryRoom(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b", "c")

	require.NoError(t, relay.Join("a", "r1", ""))
	require.NoError(t, relay.Join("b", "r1", ""))
	require.NoError(t, relay.Join("a", "r2", ""))
	require.NoError(t, relay.Join("c", "r2", ""))
	resetAll(sinks)

	assert.True(t, relay.Disconnect("a"))

	assert.Empty(t, relay.RoomsOf("a"))
	assert.Equal(t, []string{"b"}, relay.Members("r1"))
	assert.Equal(t, []string{"c"}, relay.Members("r2"))

	assert.Len(t, sinks["b"].all(eventPlayerLeft), 1)
	assert.Len(t, sinks["c"].all(eventPlayerLeft), 1)
	assert.Equal(t, "b", sinks["b"].last(t, eventAdminChanged).Data.(AdminChanged).NewAdminID)
	assert.Equal(t, "c", sinks["c"].last(t, eventAdminChanged).Data.(AdminChanged).NewAdminID)

	assert.False(t, relay.Disconnect("a"), "second disconnect is a no-op")
	assert.Len(t, sinks["b"].all(eventPlayerLeft), 1)
}

func TestNameUpdates(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b", "c")

	relay.SetName("a", "Alice")
	assert.Equal(t, "Alice", relay.Name("a"))

	relay.SetName("a", "  ")
	assert.Equal(t, "Jogador", relay.Name("a"))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, relay.Join(id, "r1", ""))
	}
	resetAll(sinks)

	require.NoError(t, relay.RenameInRoom("a", "r1", "Alice", "avatar-7"))

	assert.Empty(t, sinks["a"].all(eventPlayerNameUpdated))
	for _, id := range []string{"b", "c"} {
		updates := sinks[id].all(eventPlayerNameUpdated)
		require.Len(t, updates, 1)
		assert.Equal(t, PlayerNameUpdated{
			PlayerID: "a",
			OldName:  "Jogador",
			NewName:  "Alice",
			NewPhoto: "avatar-7",
		}, updates[0].Data)
	}
}

func TestNamesAreClamped(t *testing.T) {
	relay, _ := newTestRelay(t)

	require.NoError(t, relay.Connect("a", "  Ângela Maria da Conceição Souza  ", &recorder{}))

	name := relay.Name("a")
	assert.Equal(t, "Ângela Maria da Conc", name)
	assert.Equal(t, 20, len([]rune(name)))
}

func TestPhotoFlowsIntoJoinEvents(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b")

	relay.SetPhoto("a", "avatar-1")
	require.NoError(t, relay.Join("a", "r1", ""))
	relay.SetPhoto("b", "avatar-2")
	require.NoError(t, relay.Join("b", "r1", ""))

	joined := sinks["a"].last(t, eventPlayerJoined).Data.(PlayerJoined)
	assert.Equal(t, "avatar-2", joined.PlayerPhoto)

	roster := sinks["b"].last(t, eventRoomPlayers).Data.(RoomPlayers)
	require.Len(t, roster.Players, 1)
	assert.Equal(t, "avatar-1", roster.Players[0].Photo)
}

func TestEmptiedRoomStartsFresh(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b")

	require.NoError(t, relay.Join("a", "r1", ""))
	require.NoError(t, relay.Join("b", "r1", ""))
	require.NoError(t, relay.Leave("a", "r1"))
	require.NoError(t, relay.Leave("b", "r1"))

	assert.False(t, relay.HasRoom("r1"))
	_, ok := relay.Admin("r1")
	assert.False(t, ok)

	resetAll(sinks)
	require.NoError(t, relay.Join("a", "r1", ""))

	admin, _ := relay.Admin("r1")
	assert.Equal(t, "a", admin)
	assert.Equal(t, "a", sinks["a"].last(t, eventRoomPlayers).Data.(RoomPlayers).AdminID)
}

func TestFailingRecipientDoesNotAffectOthers(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b", "c")

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, relay.Join(id, "r1", ""))
	}
	resetAll(sinks)

	sinks["b"].err = errSendBufferFull

	require.NoError(t, relay.Broadcast("a", "r1", "tick", nil))

	assert.Len(t, sinks["a"].all(eventGameMessage), 1)
	assert.Empty(t, sinks["b"].all(eventGameMessage))
	assert.Len(t, sinks["c"].all(eventGameMessage), 1)
	assert.Equal(t, []string{"a", "b", "c"}, relay.Members("r1"), "drops never evict members")
}

func TestStaleAdminRepairedOnJoin(t *testing.T) {
	relay, sinks := newTestRelay(t, "a", "b", "c")

	require.NoError(t, relay.Join("a", "r1", ""))
	require.NoError(t, relay.Join("b", "r1", ""))

	relay.mu.Lock()
	relay.admins.admins["r1"] = "ghost"
	relay.mu.Unlock()

	require.NoError(t, relay.Join("c", "r1", ""))

	admin, _ := relay.Admin("r1")
	assert.Equal(t, "a", admin)
	assert.Equal(t, "a", sinks["c"].last(t, eventRoomPlayers).Data.(RoomPlayers).AdminID)
}

func TestRoomsSnapshot(t *testing.T) {
	relay, _ := newTestRelay(t, "a", "b")

	require.NoError(t, relay.Join("a", "r2", ""))
	require.NoError(t, relay.Join("b", "r1", ""))
	require.NoError(t, relay.Join("a", "r1", ""))

	assert.Equal(t, []RoomInfo{
		{ID: "r1", Members: 2, AdminID: "b"},
		{ID: "r2", Members: 1, AdminID: "a"},
	}, relay.Rooms())
}

// Random join, leave and disconnect sequences must always leave every live
// room with exactly one admin who is a member.
func TestAdminInvariantUnderRandomChurn(t *testing.T) {
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = "p" + strconv.Itoa(i)
	}

	relay, _ := newTestRelay(t, ids...)
	rooms := []string{"r1", "r2", "r3"}
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 2000; step++ {
		id := ids[rng.Intn(len(ids))]
		room := rooms[rng.Intn(len(rooms))]

		switch rng.Intn(5) {
		case 0, 1:
			require.NoError(t, relay.Join(id, room, ""))
		case 2, 3:
			require.NoError(t, relay.Leave(id, room))
		case 4:
			relay.Disconnect(id)
			require.NoError(t, relay.Connect(id, "", &recorder{}))
		}

		for _, info := range relay.Rooms() {
			members := relay.Members(info.ID)
			require.NotEmpty(t, members, "step %d: empty room %s not pruned", step, info.ID)
			require.True(t, slices.Contains(members, info.AdminID),
				"step %d: admin %q of %s not a member of %v", step, info.AdminID, info.ID, members)
		}
	}
}
