package domain

import "fmt"

// Quality represents a coarse requested quality tier
type Quality string

const (
	QualityLow     Quality = "low"     // up to 360p
	QualityMedium  Quality = "medium"  // up to 720p
	QualityHigh    Quality = "high"    // up to 1080p
	QualityHighest Quality = "highest" // best available
)

// qualityRank orders tiers from lowest to highest
var qualityRank = map[Quality]int{
	QualityLow:     0,
	QualityMedium:  1,
	QualityHigh:    2,
	QualityHighest: 3,
}

// ValidQuality checks if a quality tier is one of the known values
func ValidQuality(q Quality) bool {
	_, ok := qualityRank[q]
	return ok
}

// HeightCap returns the maximum pixel height for the tier, 0 meaning
// unbounded
func (q Quality) HeightCap() int {
	switch q {
	case QualityLow:
		return 360
	case QualityMedium:
		return 720
	case QualityHigh:
		return 1080
	default:
		return 0
	}
}

// QualityVariant describes one concrete rendition the extractor offers
type QualityVariant struct {
	Tier               Quality `json:"tier"`
	Height             int     `json:"height"`
	FormatID           string  `json:"format_id,omitempty"`
	EstimatedSizeBytes int64   `json:"estimated_size_bytes,omitempty"`
}

// VideoMetadata is the normalized shape of extractor output. Anything
// the extractor reports beyond these fields is dropped at the boundary.
type VideoMetadata struct {
	Title              string
	DurationSeconds    int64
	ThumbnailURL       string
	AvailableQualities []QualityVariant
}

// TierForHeight maps a concrete rendition height onto a tier
func TierForHeight(height int) Quality {
	switch {
	case height <= 360:
		return QualityLow
	case height <= 720:
		return QualityMedium
	case height <= 1080:
		return QualityHigh
	default:
		return QualityHighest
	}
}

// SelectVariant picks the rendition to download for a requested tier:
// the highest available variant at or below the tier, else the lowest
// available variant. The second return reports whether a substitution
// happened; a tier mismatch alone never fails the selection.
func SelectVariant(requested Quality, available []QualityVariant) (QualityVariant, bool, error) {
	if len(available) == 0 {
		return QualityVariant{}, false, fmt.Errorf("no quality variants available")
	}

	limit := qualityRank[requested]
	best := -1
	lowest := 0
	for i, v := range available {
		rank := qualityRank[v.Tier]
		if rank <= limit && (best < 0 || rank > qualityRank[available[best].Tier] ||
			(rank == qualityRank[available[best].Tier] && v.Height > available[best].Height)) {
			best = i
		}
		if rank < qualityRank[available[lowest].Tier] ||
			(rank == qualityRank[available[lowest].Tier] && v.Height < available[lowest].Height) {
			lowest = i
		}
	}

	if best >= 0 {
		chosen := available[best]
		return chosen, chosen.Tier != requested, nil
	}
	// Nothing at or below the requested tier; fall back to the lowest.
	return available[lowest], true, nil
}
