// Package address implements the numeric stream addressing scheme used by
// clients whose protocols only carry integer stream identifiers.
//
// A stream id multiplexes a provider-assigned base id and a quality band
// into one integer: streamId = baseId + bandOffset. Band offsets are
// disjoint and far above any real base id, so encoding is collision-free
// as long as base ids stay below the smallest offset.
package address

import "fmt"

// Band is a quality band selectable through the numeric wire contract.
type Band string

// Supported quality bands.
const (
	BandSource Band = "source"
	Band720p   Band = "720p"
	Band480p   Band = "480p"
)

// maxBaseID is the exclusive upper bound for provider base ids. It equals
// the smallest non-zero band offset, which keeps bands disjoint.
const maxBaseID int64 = 10_000_000_000

// bandOffsets in decode order: largest offset first.
var bandOffsets = []struct {
	band   Band
	offset int64
}{
	{Band480p, 20_000_000_000},
	{Band720p, 10_000_000_000},
	{BandSource, 0},
}

// Encode maps (baseID, band) to a single wire integer.
func Encode(baseID int64, band Band) (int64, error) {
	if baseID < 0 || baseID >= maxBaseID {
		return 0, fmt.Errorf("base id %d outside [0,%d)", baseID, maxBaseID)
	}
	for _, bo := range bandOffsets {
		if bo.band == band {
			return baseID + bo.offset, nil
		}
	}
	return 0, fmt.Errorf("unknown quality band %q", band)
}

// Decode splits a wire integer back into (baseID, band). Offsets are
// tested from largest to smallest so each id decodes unambiguously.
func Decode(streamID int64) (int64, Band, error) {
	if streamID < 0 {
		return 0, "", fmt.Errorf("negative stream id %d", streamID)
	}
	for _, bo := range bandOffsets {
		if streamID >= bo.offset {
			base := streamID - bo.offset
			if base >= maxBaseID {
				return 0, "", fmt.Errorf("stream id %d out of band range", streamID)
			}
			return base, bo.band, nil
		}
	}
	return 0, "", fmt.Errorf("stream id %d matches no band", streamID)
}

// Bands returns all supported bands.
func Bands() []Band {
	out := make([]Band, 0, len(bandOffsets))
	for _, bo := range bandOffsets {
		out = append(out, bo.band)
	}
	return out
}

// Valid reports whether band names a supported quality band.
func Valid(band Band) bool {
	for _, bo := range bandOffsets {
		if bo.band == band {
			return true
		}
	}
	return false
}
