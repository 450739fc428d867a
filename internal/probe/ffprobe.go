package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// FFProbeResult is the parsed output of ffprobe -show_format -show_streams.
type FFProbeResult struct {
	Streams []FFProbeStream `json:"streams"`
	Format  FFProbeFormat   `json:"format"`
}

type FFProbeStream struct {
	Index     int               `json:"index"`
	CodecName string            `json:"codec_name"`
	CodecType string            `json:"codec_type"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Duration  string            `json:"duration"`
	Tags      map[string]string `json:"tags"`
}

type FFProbeFormat struct {
	Filename   string            `json:"filename"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	FormatName string            `json:"format_name"`
	Tags       map[string]string `json:"tags"`
}

// Inspect runs ffprobe against path and decodes its JSON output.
func Inspect(ctx context.Context, binary string, path string) (FFProbeResult, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return FFProbeResult{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return FFProbeResult{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return FFProbeResult{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	return ParseFFProbe(output)
}

func ParseFFProbe(output []byte) (FFProbeResult, error) {
	var result FFProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return FFProbeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStream returns the first video stream.
func (r FFProbeResult) VideoStream() (FFProbeStream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return FFProbeStream{}, false
}

// DurationSeconds returns the container duration, falling back to the video
// stream's, or 0 when neither parses.
func (r FFProbeResult) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d > 0 {
		return d
	}
	if vs, ok := r.VideoStream(); ok {
		if d := parseFloat(vs.Duration); d > 0 {
			return d
		}
	}
	return 0
}

// CreationTime prefers the container tag and falls back to any stream tag.
func (r FFProbeResult) CreationTime() string {
	if t := r.Format.Tags["creation_time"]; t != "" {
		return t
	}
	for _, stream := range r.Streams {
		if t := stream.Tags["creation_time"]; t != "" {
			return t
		}
	}
	return ""
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}
