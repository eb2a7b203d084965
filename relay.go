/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Relay owns all connection, membership and admin state. Every operation
// runs start to finish under mu, including fan-out onto the per-connection
// queues, so per-room event order matches submission order.
type Relay struct {
	mu sync.Mutex

	registry *Registry
	members  *Membership
	admins   *AdminPolicy

	maxNameLength int
	log           zerolog.Logger
}

// RoomInfo is a read-only view of one live room.
type RoomInfo struct {
	ID      string `json:"roomId"`
	Members int    `json:"members"`
	AdminID string `json:"adminId"`
}

func newRelay(cfg *Config, logger zerolog.Logger) *Relay {
	return &Relay{
		registry:      newRegistry(cfg.defaultName),
		members:       newMembership(),
		admins:        newAdminPolicy(),
		maxNameLength: cfg.maxNameLength,
		log:           logger.With().Str("module", "relay").Logger(),
	}
}

// clampName trims whitespace and cuts the name to the configured rune limit.
func (r *Relay) clampName(name string) string {
	name = strings.TrimSpace(name)
	if r.maxNameLength <= 0 || utf8.RuneCountInString(name) <= r.maxNameLength {
		return name
	}

	return string([]rune(name)[:r.maxNameLength])
}

// send delivers one message without blocking. Failures only affect the
// single recipient.
func (r *Relay) send(id string, msg Message) {
	out, ok := r.registry.sender(id)
	if !ok {
		deliveriesDropped.Inc()
		return
	}

	if err := out.Send(msg); err != nil {
		deliveriesDropped.Inc()
		r.log.Debug().Err(err).Str("conn", id).Str("event", msg.Event).Msg("delivery dropped")
	}
}

func (r *Relay) updateGauges() {
	connectionsGauge.Set(float64(r.registry.len()))
	roomsGauge.Set(float64(len(r.members.rooms)))
}

// Connect registers a new transport connection.
func (r *Relay) Connect(id, name string, out Sender) error {
	if id == "" {
		return errEmptyConnectionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry.register(id, r.clampName(name), out)
	r.updateGauges()

	r.log.Debug().Str("conn", id).Str("name", r.registry.lookup(id)).Msg("connected")

	return nil
}

// Disconnect leaves every room the connection is in and forgets it.
// It reports false when the connection was already gone.
func (r *Relay) Disconnect(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := r.members.roomsOf(id)
	if !r.registry.known(id) && len(rooms) == 0 {
		return false
	}

	for _, roomID := range rooms {
		r.leaveLocked(id, roomID)
	}

	name := r.registry.lookup(id)
	r.registry.unregister(id)
	r.updateGauges()

	r.log.Debug().Str("conn", id).Str("name", name).Int("rooms", len(rooms)).Msg("disconnected")

	return true
}

// SetName updates the display name outside of any room. An empty name
// resets to the default.
func (r *Relay) SetName(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = r.clampName(name)
	if name == "" {
		name = r.registry.defaultName
	}

	r.registry.rename(id, name)
}

// SetPhoto updates the avatar reference. An empty value clears it.
func (r *Relay) SetPhoto(id, photo string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registry.setPhoto(id, photo)
}

// Join adds the connection to roomID, resolves the room admin, then tells
// the other members and sends the joiner the current roster.
func (r *Relay) Join(id, roomID, name string) error {
	if roomID == "" {
		return errEmptyRoomID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.registry.known(id) {
		return errUnknownConnection
	}

	if name = r.clampName(name); name != "" {
		r.registry.rename(id, name)
	}

	added := r.members.join(roomID, id)
	members := r.members.membersOf(roomID)

	admin, repair := r.admins.resolveJoin(roomID, id, members)
	if repair != repairNone {
		adminRepairs.Inc()
		r.log.Warn().
			Str("room", roomID).
			Str("conn", id).
			Str("admin", admin).
			Stringer("repair", repair).
			Msg("admin slot repaired on join")
	}

	r.updateGauges()

	joined := Message{
		Event: eventPlayerJoined,
		Data: PlayerJoined{
			PlayerID:    id,
			PlayerName:  r.registry.lookup(id),
			IsAdmin:     admin == id,
			PlayerPhoto: r.registry.photo(id),
		},
	}

	players := make([]RoomPlayer, 0, len(members))
	for _, member := range members {
		if member == id {
			continue
		}

		r.send(member, joined)

		players = append(players, RoomPlayer{
			ID:      member,
			Name:    r.registry.lookup(member),
			IsAdmin: member == admin,
			Photo:   r.registry.photo(member),
		})
	}

	r.send(id, Message{
		Event: eventRoomPlayers,
		Data:  RoomPlayers{Players: players, AdminID: admin},
	})

	r.log.Debug().
		Str("room", roomID).
		Str("conn", id).
		Bool("new_member", added).
		Bool("admin", admin == id).
		Int("members", len(members)).
		Msg("joined")

	return nil
}

// Leave removes the connection from roomID. Leaving a room the connection
// is not in is a no-op.
func (r *Relay) Leave(id, roomID string) error {
	if roomID == "" {
		return errEmptyRoomID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(id, roomID)
	r.updateGauges()

	return nil
}

// leaveLocked assumes r.mu is already held.
func (r *Relay) leaveLocked(id, roomID string) bool {
	if !r.members.leave(roomID, id) {
		return false
	}

	remaining := r.members.membersOf(roomID)

	newAdmin, changed := r.admins.resolveLeave(roomID, id, remaining)
	if len(remaining) == 0 {
		r.admins.forget(roomID)
	}

	left := Message{
		Event: eventPlayerLeft,
		Data: PlayerLeft{
			PlayerID:   id,
			PlayerName: r.registry.lookup(id),
		},
	}
	for _, member := range remaining {
		r.send(member, left)
	}

	if changed {
		handoff := Message{
			Event: eventAdminChanged,
			Data: AdminChanged{
				NewAdminID:   newAdmin,
				NewAdminName: r.registry.lookup(newAdmin),
			},
		}
		for _, member := range remaining {
			r.send(member, handoff)
		}

		r.log.Debug().Str("room", roomID).Str("from", id).Str("to", newAdmin).Msg("admin handed off")
	}

	r.log.Debug().Str("room", roomID).Str("conn", id).Int("members", len(remaining)).Msg("left")

	return true
}

// RenameInRoom renames the connection and tells the other members of roomID.
// newPhoto, when set, also replaces the stored avatar.
func (r *Relay) RenameInRoom(id, roomID, newName, newPhoto string) error {
	if roomID == "" {
		return errEmptyRoomID
	}

	newName = r.clampName(newName)
	if newName == "" {
		return errEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.registry.known(id) {
		return nil
	}

	oldName := r.registry.lookup(id)
	r.registry.rename(id, newName)
	if newPhoto != "" {
		r.registry.setPhoto(id, newPhoto)
	}

	updated := Message{
		Event: eventPlayerNameUpdated,
		Data: PlayerNameUpdated{
			PlayerID: id,
			OldName:  oldName,
			NewName:  newName,
			NewPhoto: r.registry.photo(id),
		},
	}

	for _, member := range r.members.membersOf(roomID) {
		if member == id {
			continue
		}
		r.send(member, updated)
	}

	return nil
}

// Broadcast forwards a game event to every member of roomID, the sender
// included. Clients filter their own events by comparing "from".
func (r *Relay) Broadcast(id, roomID, event string, payload json.RawMessage) error {
	return r.relay(id, roomID, event, payload, true)
}

// Message forwards a game event to every member of roomID except the sender.
func (r *Relay) Message(id, roomID, event string, payload json.RawMessage) error {
	return r.relay(id, roomID, event, payload, false)
}

func (r *Relay) relay(id, roomID, event string, payload json.RawMessage, includeSender bool) error {
	if roomID == "" {
		return errEmptyRoomID
	}
	if event == "" {
		return errEmptyEvent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg := Message{
		Event: eventGameMessage,
		Data: GameMessage{
			Event:    event,
			Payload:  payload,
			From:     id,
			FromName: r.registry.lookup(id),
		},
	}

	for _, member := range r.members.membersOf(roomID) {
		if member == id && !includeSender {
			continue
		}
		r.send(member, msg)
	}

	return nil
}

// Name returns the display name of a connection, or the default name.
func (r *Relay) Name(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.registry.lookup(id)
}

// Members returns the members of roomID in join order.
func (r *Relay) Members(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.members.membersOf(roomID)
}

// Admin returns the admin of roomID, if the room exists.
func (r *Relay) Admin(roomID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.admins.adminOf(roomID)
}

// RoomsOf returns the rooms a connection belongs to.
func (r *Relay) RoomsOf(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.members.roomsOf(id)
}

// HasRoom reports whether roomID currently has members.
func (r *Relay) HasRoom(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.members.exists(roomID)
}

// Rooms lists live rooms sorted by ID.
func (r *Relay) Rooms() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.members.roomIDs()

	rooms := make([]RoomInfo, 0, len(ids))
	for _, roomID := range ids {
		admin, _ := r.admins.adminOf(roomID)
		rooms = append(rooms, RoomInfo{
			ID:      roomID,
			Members: len(r.members.rooms[roomID]),
			AdminID: admin,
		})
	}

	return rooms
}
