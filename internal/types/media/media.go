package media

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMetadataMismatch = errors.New("technical metadata does not match media type")

// Kind discriminates the TechnicalMetadata variants.
type Kind int

const (
	KindNone Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "none"
	}
}

// KindOf maps a MIME type to the metadata variant it carries.
func KindOf(mediaType string) Kind {
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return KindImage
	case strings.HasPrefix(mediaType, "video/"):
		return KindVideo
	default:
		return KindNone
	}
}

type ImageMetadata struct {
	Resolution   string `json:"resolution"`
	Type         string `json:"type,omitempty"`
	CreationTime string `json:"creation_time,omitempty"`
}

type VideoMetadata struct {
	Resolution   string `json:"resolution"`
	AspectRatio  string `json:"aspect_ratio,omitempty"`
	Quality      string `json:"quality,omitempty"`
	Duration     string `json:"duration,omitempty"`
	CreationTime string `json:"creation_time,omitempty"`
}

// TechnicalMetadata holds exactly one of the image or video shapes, or none.
type TechnicalMetadata struct {
	kind  Kind
	image ImageMetadata
	video VideoMetadata
}

func ImageTechnical(m ImageMetadata) TechnicalMetadata {
	return TechnicalMetadata{kind: KindImage, image: m}
}

func VideoTechnical(m VideoMetadata) TechnicalMetadata {
	return TechnicalMetadata{kind: KindVideo, video: m}
}

func (t TechnicalMetadata) Kind() Kind { return t.kind }

func (t TechnicalMetadata) Image() (ImageMetadata, bool) {
	return t.image, t.kind == KindImage
}

func (t TechnicalMetadata) Video() (VideoMetadata, bool) {
	return t.video, t.kind == KindVideo
}

func (t TechnicalMetadata) Equal(other TechnicalMetadata) bool {
	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case KindImage:
		return t.image == other.image
	case KindVideo:
		return t.video == other.video
	default:
		return true
	}
}

// Resolution returns the resolution of whichever variant is set.
func (t TechnicalMetadata) Resolution() string {
	switch t.kind {
	case KindImage:
		return t.image.Resolution
	case KindVideo:
		return t.video.Resolution
	default:
		return ""
	}
}

func (t TechnicalMetadata) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case KindImage:
		return json.Marshal(t.image)
	case KindVideo:
		return json.Marshal(t.video)
	default:
		return []byte("null"), nil
	}
}

// decodeTechnical picks the variant once, at the data boundary. Null, absent
// and empty objects decode to none.
func decodeTechnical(raw json.RawMessage, mediaType string) (TechnicalMetadata, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return TechnicalMetadata{}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return TechnicalMetadata{}, fmt.Errorf("decode technical metadata: %w", err)
	}
	if len(probe) == 0 {
		return TechnicalMetadata{}, nil
	}

	switch KindOf(mediaType) {
	case KindImage:
		var m ImageMetadata
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return TechnicalMetadata{}, fmt.Errorf("decode image metadata: %w", err)
		}
		return ImageTechnical(m), nil
	case KindVideo:
		var m VideoMetadata
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return TechnicalMetadata{}, fmt.Errorf("decode video metadata: %w", err)
		}
		return VideoTechnical(m), nil
	default:
		return TechnicalMetadata{}, nil
	}
}

// MediaItem is a portfolio entry created by the remote store on upload.
type MediaItem struct {
	ID                string            `json:"id"`
	Filename          string            `json:"filename"`
	FilePath          string            `json:"file_path,omitempty"`
	OriginalFilename  string            `json:"original_filename,omitempty"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Category          string            `json:"category"`
	MediaType         string            `json:"media_type"`
	UploadDate        string            `json:"upload_date,omitempty"`
	TechnicalMetadata TechnicalMetadata `json:"technical_metadata"`
}

type mediaItemJSON struct {
	ID                string             `json:"id"`
	Filename          string             `json:"filename"`
	FilePath          string             `json:"file_path,omitempty"`
	OriginalFilename  string             `json:"original_filename,omitempty"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Category          string             `json:"category"`
	MediaType         string             `json:"media_type"`
	UploadDate        string             `json:"upload_date,omitempty"`
	TechnicalMetadata *TechnicalMetadata `json:"technical_metadata,omitempty"`
}

func (m MediaItem) MarshalJSON() ([]byte, error) {
	out := mediaItemJSON{
		ID:               m.ID,
		Filename:         m.Filename,
		FilePath:         m.FilePath,
		OriginalFilename: m.OriginalFilename,
		Title:            m.Title,
		Description:      m.Description,
		Category:         m.Category,
		MediaType:        m.MediaType,
		UploadDate:       m.UploadDate,
	}
	if m.TechnicalMetadata.Kind() != KindNone {
		tm := m.TechnicalMetadata
		out.TechnicalMetadata = &tm
	}
	return json.Marshal(out)
}

func (m *MediaItem) UnmarshalJSON(data []byte) error {
	var in struct {
		ID                string          `json:"id"`
		Filename          string          `json:"filename"`
		FilePath          string          `json:"file_path"`
		OriginalFilename  string          `json:"original_filename"`
		Title             string          `json:"title"`
		Description       string          `json:"description"`
		Category          string          `json:"category"`
		MediaType         string          `json:"media_type"`
		UploadDate        string          `json:"upload_date"`
		TechnicalMetadata json.RawMessage `json:"technical_metadata"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	tm, err := decodeTechnical(in.TechnicalMetadata, in.MediaType)
	if err != nil {
		return err
	}

	*m = MediaItem{
		ID:                in.ID,
		Filename:          in.Filename,
		FilePath:          in.FilePath,
		OriginalFilename:  in.OriginalFilename,
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		MediaType:         in.MediaType,
		UploadDate:        in.UploadDate,
		TechnicalMetadata: tm,
	}
	return nil
}

// Validate checks that the metadata variant agrees with the media type.
func (m MediaItem) Validate() error {
	kind := m.TechnicalMetadata.Kind()
	if kind != KindNone && kind != KindOf(m.MediaType) {
		return fmt.Errorf("item %s: %w (%s vs %s)", m.ID, ErrMetadataMismatch, kind, m.MediaType)
	}
	return nil
}

// UploadedAt parses UploadDate. The backend emits ISO-8601 with or without a zone.
func (m MediaItem) UploadedAt() (time.Time, bool) {
	if m.UploadDate == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, m.UploadDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (m MediaItem) IsVideo() bool {
	return KindOf(m.MediaType) == KindVideo
}

// Equal is deep value equality over every field.
func Equal(a, b MediaItem) bool {
	return a.ID == b.ID &&
		a.Filename == b.Filename &&
		a.FilePath == b.FilePath &&
		a.OriginalFilename == b.OriginalFilename &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Category == b.Category &&
		a.MediaType == b.MediaType &&
		a.UploadDate == b.UploadDate &&
		a.TechnicalMetadata.Equal(b.TechnicalMetadata)
}

// EqualItems compares two sequences in order. Nil and empty are equal.
func EqualItems(a, b []MediaItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// CloneItems returns a copy that shares nothing mutable with items.
func CloneItems(items []MediaItem) []MediaItem {
	out := make([]MediaItem, len(items))
	copy(out, items)
	return out
}

// UploadRequest carries the user-entered fields sent with a new file
type UploadRequest struct {
	Title       string `json:"title" validate:"notblank,max=80"`
	Description string `json:"description" validate:"notblank,max=150"`
	Category    string `json:"category" validate:"notblank"`
}

// SaveRequest is the body of a bulk portfolio save.
type SaveRequest struct {
	UserID string      `json:"user_id"`
	Items  []MediaItem `json:"items"`
}

// LoadResponse is the body returned by a portfolio load.
type LoadResponse struct {
	Items []MediaItem `json:"items"`
}
