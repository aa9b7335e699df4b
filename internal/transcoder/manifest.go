package transcoder

import (
	"fmt"
	"sort"
	"strings"

	"streamgo/internal/domain"
)

// VariantPlaylistName returns the variant manifest filename for one rung.
// Segments follow the pattern <name>_%03d.ts next to it.
func VariantPlaylistName(sanitizedID, resolution string) string {
	return fmt.Sprintf("%s_%s.m3u8", sanitizedID, resolution)
}

// BuildMasterManifest renders the master playlist listing every variant by
// relative path, sorted strictly descending by declared bandwidth. The sort
// is stable so equal bandwidths keep their ladder definition order.
func BuildMasterManifest(renditions []domain.Rendition) string {
	sorted := make([]domain.Rendition, len(renditions))
	copy(sorted, renditions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Bandwidth > sorted[j].Bandwidth })

	lines := []string{"#EXTM3U", "#EXT-X-VERSION:3"}
	for _, r := range sorted {
		lines = append(lines,
			fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s", r.Bandwidth, r.Resolution),
			r.Playlist,
		)
	}
	return strings.Join(lines, "\n")
}
