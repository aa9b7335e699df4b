package domain

import "time"

// TranscodeJob is the ingest event carried on the broker. It is ephemeral:
// never persisted, it exists only for the duration of one delivery attempt.
type TranscodeJob struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// RenditionPreset is one rung of the fixed bitrate ladder.
type RenditionPreset struct {
	Name       string // e.g. "240p"
	Resolution string // e.g. "426x240"
	Bitrate    string // target video bitrate, e.g. "400k"
	MaxRate    string // e.g. "500k"
	BufSize    string // e.g. "800k"
	Bandwidth  int    // declared bandwidth for the master manifest
}

// Rendition is one completed variant: its playlist plus playback attributes.
type Rendition struct {
	Resolution string
	Bandwidth  int
	Playlist   string // variant manifest filename, relative to the package root
}
