package probe

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
)

var qualityLabels = map[int]string{
	2160: "4K",
	1440: "1440p",
	1080: "1080p",
	720:  "720p",
	480:  "480p",
	360:  "360p",
	240:  "240p",
}

// QualityLabel names a frame height the way video sites do.
func QualityLabel(height int) string {
	if label, ok := qualityLabels[height]; ok {
		return label
	}
	return fmt.Sprintf("%dp", height)
}

// AspectRatio reduces width:height by their gcd.
func AspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	d := gcd(width, height)
	return fmt.Sprintf("%d:%d", width/d, height/d)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ClockDuration renders seconds as HH:MM:SS.
func ClockDuration(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// RoundedDuration renders seconds as "<n> sec".
func RoundedDuration(seconds float64) string {
	return fmt.Sprintf("%d sec", int(math.Round(seconds)))
}

func imageTechnical(width, height int, format string, modTime time.Time) media.TechnicalMetadata {
	return media.ImageTechnical(media.ImageMetadata{
		Resolution:   fmt.Sprintf("%dx%d", width, height),
		Type:         strings.ToUpper(format),
		CreationTime: modTime.UTC().Format(time.RFC3339),
	})
}

func videoTechnical(r FFProbeResult, modTime time.Time) (media.TechnicalMetadata, bool) {
	vs, ok := r.VideoStream()
	if !ok {
		return media.TechnicalMetadata{}, false
	}

	created := r.CreationTime()
	if created == "" {
		created = modTime.UTC().Format(time.RFC3339)
	}

	return media.VideoTechnical(media.VideoMetadata{
		Resolution:   fmt.Sprintf("%dx%d", vs.Width, vs.Height),
		AspectRatio:  AspectRatio(vs.Width, vs.Height),
		Quality:      QualityLabel(vs.Height),
		Duration:     ClockDuration(r.DurationSeconds()),
		CreationTime: created,
	}), true
}
