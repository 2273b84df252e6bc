package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"checkdelta/internal/core/model"
)

// TrendPoint is one build of the history listing.
type TrendPoint struct {
	ID         string    `json:"id"`
	Number     int       `json:"number"`
	Timestamp  time.Time `json:"timestamp"`
	Verdict    string    `json:"verdict"`
	Analyzed   bool      `json:"analyzed"`
	Total      int       `json:"total"`
	High       int       `json:"high"`
	Normal     int       `json:"normal"`
	Low        int       `json:"low"`
	Delta      int       `json:"delta"`
	Health     int       `json:"health"`
	ZeroStreak int       `json:"zero_streak"`
}

// BuildTrend turns records, newest first as the history store lists them,
// into trend points in the same order. Delta is the change in total against
// the next older record.
func BuildTrend(records []model.BuildRecord) []TrendPoint {
	points := make([]TrendPoint, 0, len(records))
	for i, rec := range records {
		counts := rec.Counts()
		point := TrendPoint{
			ID:         rec.ID,
			Number:     rec.Number,
			Timestamp:  rec.Timestamp,
			Verdict:    rec.Verdict.String(),
			Analyzed:   rec.Analyzed,
			Total:      counts.Total(),
			High:       counts.High,
			Normal:     counts.Normal,
			Low:        counts.Low,
			Health:     rec.Health,
			ZeroStreak: rec.ZeroStreak,
		}
		if i+1 < len(records) {
			point.Delta = point.Total - len(records[i+1].Issues)
		}
		points = append(points, point)
	}
	return points
}

func RenderTrendTSV(points []TrendPoint) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Build\tTimestamp\tVerdict\tAnalyzed\tTotal\tHigh\tNormal\tLow\tDelta\tHealth\tZeroStreak\tID\n")
	for _, point := range points {
		buf.WriteString(fmt.Sprintf(
			"%d\t%s\t%s\t%t\t%d\t%d\t%d\t%d\t%+d\t%d\t%d\t%s\n",
			point.Number,
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.Verdict,
			point.Analyzed,
			point.Total,
			point.High,
			point.Normal,
			point.Low,
			point.Delta,
			point.Health,
			point.ZeroStreak,
			point.ID,
		))
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(points []TrendPoint) ([]byte, error) {
	return json.MarshalIndent(points, "", "  ")
}
