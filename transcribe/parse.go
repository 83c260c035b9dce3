package transcribe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"video2doc/models"
)

// transcriptDocument is the subset of the service's output JSON this
// client consumes. Segment boundaries come straight from the service's
// audio_segments array; the client never re-segments.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
		AudioSegments []audioSegment `json:"audio_segments"`
	} `json:"results"`
	Status string `json:"status"`
}

type audioSegment struct {
	ID         int    `json:"id"`
	Transcript string `json:"transcript"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// parseTranscript converts the raw output payload into an ordered sequence
// of TranscriptSegment, assigning sequential indices in temporal order.
func parseTranscript(payload []byte) ([]models.TranscriptSegment, error) {
	var doc transcriptDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("invalid transcript document: %w", err)
	}

	raw := doc.Results.AudioSegments
	if len(raw) == 0 {
		return nil, fmt.Errorf("transcript document contains no segments")
	}

	segments := make([]models.TranscriptSegment, 0, len(raw))
	for _, seg := range raw {
		text := strings.TrimSpace(seg.Transcript)
		if text == "" {
			continue
		}

		start, err := parseSeconds(seg.StartTime)
		if err != nil {
			return nil, fmt.Errorf("segment %d: bad start time: %w", seg.ID, err)
		}
		end, err := parseSeconds(seg.EndTime)
		if err != nil {
			return nil, fmt.Errorf("segment %d: bad end time: %w", seg.ID, err)
		}

		segments = append(segments, models.TranscriptSegment{
			Start: start,
			End:   end,
			Text:  text,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("transcript document contains only empty segments")
	}

	// The service emits segments in temporal order already; the sort is a
	// guard against that assumption, and indices are assigned after it.
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	for i := range segments {
		segments[i].Index = i
	}

	return segments, nil
}

// parseSeconds converts the service's decimal-seconds strings ("12.34")
// into a duration.
func parseSeconds(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
