/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "slices"

// adminRepair describes how a join had to fix an inconsistent admin slot.
type adminRepair int

const (
	repairNone adminRepair = iota
	repairStaleAdmin
	repairFirstMember
	repairForced
)

func (r adminRepair) String() string {
	switch r {
	case repairStaleAdmin:
		return "stale_admin"
	case repairFirstMember:
		return "first_member"
	case repairForced:
		return "forced"
	default:
		return "none"
	}
}

// AdminPolicy holds the single admin of every non-empty room.
// It is not safe for concurrent use; the Relay serializes access.
type AdminPolicy struct {
	admins map[string]string
}

func newAdminPolicy() *AdminPolicy {
	return &AdminPolicy{admins: make(map[string]string)}
}

func (p *AdminPolicy) adminOf(roomID string) (string, bool) {
	id, ok := p.admins[roomID]
	return id, ok && id != ""
}

// resolveJoin records and returns the admin of roomID after id has joined.
// members is the room snapshot taken after the join. The returned repair is
// repairNone unless the slot was found inconsistent.
func (p *AdminPolicy) resolveJoin(roomID, id string, members []string) (string, adminRepair) {
	repair := repairNone

	admin := p.admins[roomID]
	if admin != "" && !slices.Contains(members, admin) {
		admin = ""
		repair = repairStaleAdmin
	}

	var resolved string
	switch {
	case admin == "" && len(members) == 1 && members[0] == id:
		resolved = id
	case admin != "":
		resolved = admin
	case len(members) > 0:
		resolved = members[0]
		repair = repairFirstMember
	}

	if resolved == "" {
		resolved = id
		repair = repairForced
	}

	p.admins[roomID] = resolved

	return resolved, repair
}

// resolveLeave hands the admin slot over when the admin leaves. remaining is
// the room snapshot taken after the leave. changed is true only when a new
// admin was appointed.
func (p *AdminPolicy) resolveLeave(roomID, id string, remaining []string) (string, bool) {
	if p.admins[roomID] != id {
		return "", false
	}

	delete(p.admins, roomID)

	if len(remaining) == 0 {
		return "", false
	}

	p.admins[roomID] = remaining[0]

	return remaining[0], true
}

// forget drops any admin record for a room that no longer exists.
func (p *AdminPolicy) forget(roomID string) {
	delete(p.admins, roomID)
}
