// Package store persists player snapshots so sessions can be rebuilt
// after a restart.
package store

import "context"

// Snapshot is the durable subset of one player's state. Tracks are
// kept in their encoded form; a node can expand them again.
type Snapshot struct {
	GuildID        string   `json:"guildId"`
	NodeName       string   `json:"nodeName"`
	VoiceChannelID string   `json:"voiceChannelId"`
	TextChannelID  string   `json:"textChannelId"`
	Loop           string   `json:"loop"`
	Paused         bool     `json:"paused"`
	Position       int64    `json:"position"`
	Volume         int      `json:"volume"`
	Track          string   `json:"track"`
	Queue          []string `json:"queue"`
}

// PlayerStore saves and recalls player snapshots.
type PlayerStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, guildID string) (Snapshot, bool, error)
	LoadAll(ctx context.Context) ([]Snapshot, error)
	Delete(ctx context.Context, guildID string) error
}
