/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "encoding/json"

// Inbound event names
const (
	eventUpdatePlayerName  = "update-player-name"
	eventUpdatePlayerPhoto = "update-player-photo"
	eventPlayerNameChanged = "player-name-changed"
	eventJoinRoom          = "join-room"
	eventLeaveRoom         = "leave-room"
	eventGameMessage       = "game-message"
	eventGameBroadcast     = "game-broadcast"
)

// Outbound event names
const (
	eventPlayerJoined      = "player-joined"
	eventPlayerLeft        = "player-left"
	eventRoomPlayers       = "room-players"
	eventAdminChanged      = "admin-changed"
	eventPlayerNameUpdated = "player-name-updated"
)

// Frame is one inbound message from a client.
type Frame struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args"`
}

// Message is one outbound message to a client.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type PlayerJoined struct {
	PlayerID    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
	IsAdmin     bool   `json:"isAdmin"`
	PlayerPhoto string `json:"playerPhoto,omitempty"`
}

type PlayerLeft struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type RoomPlayer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
	Photo   string `json:"photo,omitempty"`
}

// RoomPlayers is sent only to a joining connection and never lists it.
type RoomPlayers struct {
	Players []RoomPlayer `json:"players"`
	AdminID string       `json:"adminId"`
}

type AdminChanged struct {
	NewAdminID   string `json:"newAdminId"`
	NewAdminName string `json:"newAdminName"`
}

type PlayerNameUpdated struct {
	PlayerID string `json:"playerId"`
	OldName  string `json:"oldName"`
	NewName  string `json:"newName"`
	NewPhoto string `json:"newPhoto,omitempty"`
}

// GameMessage carries an opaque game payload. The relay never looks inside it.
type GameMessage struct {
	Event    string          `json:"event"`
	Payload  json.RawMessage `json:"payload"`
	From     string          `json:"from"`
	FromName string          `json:"fromName"`
}

// Inbound argument shapes

type nameChange struct {
	RoomID   string `json:"roomId"`
	NewName  string `json:"newName"`
	NewPhoto string `json:"newPhoto,omitempty"`
}

type gameEnvelope struct {
	RoomID  string          `json:"roomId"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}
