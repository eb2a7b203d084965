/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "slices"

// Membership tracks which connections are in which rooms. Members are kept
// in join order so snapshots, and therefore admin handoff, are deterministic.
// It is not safe for concurrent use; the Relay serializes access.
type Membership struct {
	rooms map[string][]string        // roomID -> member IDs in join order
	byID  map[string]map[string]bool // connID -> set of roomIDs
}

func newMembership() *Membership {
	return &Membership{
		rooms: make(map[string][]string),
		byID:  make(map[string]map[string]bool),
	}
}

// join reports whether the connection was newly added.
func (m *Membership) join(roomID, id string) bool {
	if slices.Contains(m.rooms[roomID], id) {
		return false
	}

	m.rooms[roomID] = append(m.rooms[roomID], id)

	if m.byID[id] == nil {
		m.byID[id] = make(map[string]bool)
	}
	m.byID[id][roomID] = true

	return true
}

// leave reports whether the connection was a member. Empty rooms are pruned.
func (m *Membership) leave(roomID, id string) bool {
	members := m.rooms[roomID]

	i := slices.Index(members, id)
	if i < 0 {
		return false
	}

	members = slices.Delete(members, i, i+1)
	if len(members) == 0 {
		delete(m.rooms, roomID)
	} else {
		m.rooms[roomID] = members
	}

	delete(m.byID[id], roomID)
	if len(m.byID[id]) == 0 {
		delete(m.byID, id)
	}

	return true
}

// membersOf returns a copy of the room's members in join order.
func (m *Membership) membersOf(roomID string) []string {
	return slices.Clone(m.rooms[roomID])
}

func (m *Membership) isMember(roomID, id string) bool {
	return m.byID[id][roomID]
}

// roomsOf returns the rooms a connection belongs to, sorted.
func (m *Membership) roomsOf(id string) []string {
	rooms := make([]string, 0, len(m.byID[id]))
	for roomID := range m.byID[id] {
		rooms = append(rooms, roomID)
	}
	slices.Sort(rooms)

	return rooms
}

func (m *Membership) exists(roomID string) bool {
	return len(m.rooms[roomID]) > 0
}

func (m *Membership) roomIDs() []string {
	ids := make([]string, 0, len(m.rooms))
	for roomID := range m.rooms {
		ids = append(ids, roomID)
	}
	slices.Sort(ids)

	return ids
}
