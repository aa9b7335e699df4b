package transcoder

import "streamgo/internal/domain"

// DefaultLadder is the fixed bitrate ladder every source is transcoded
// into: five rungs from ~400kbps/240p to ~5000kbps/1080p. Bandwidth is the
// value declared in the master manifest for that rung.
var DefaultLadder = []domain.RenditionPreset{
	{Name: "240p", Resolution: "426x240", Bitrate: "400k", MaxRate: "500k", BufSize: "800k", Bandwidth: 400000},
	{Name: "360p", Resolution: "640x360", Bitrate: "800k", MaxRate: "900k", BufSize: "1400k", Bandwidth: 800000},
	{Name: "480p", Resolution: "854x480", Bitrate: "1500k", MaxRate: "1600k", BufSize: "2400k", Bandwidth: 1500000},
	{Name: "720p", Resolution: "1280x720", Bitrate: "2800k", MaxRate: "3000k", BufSize: "4400k", Bandwidth: 2800000},
	{Name: "1080p", Resolution: "1920x1080", Bitrate: "5000k", MaxRate: "5500k", BufSize: "7800k", Bandwidth: 5000000},
}
