package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/princekumarofficial/portfolio-studio/internal/probe"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// metadataRows flattens probe metadata for a two-column table.
func metadataRows(name string, m probe.Metadata) [][]string {
	rows := [][]string{
		{"File", name},
		{"Size", m.Size},
		{"Type", m.Type},
		{"Last modified", m.LastModified},
	}
	if m.Dimensions != "" {
		rows = append(rows, []string{"Dimensions", m.Dimensions})
	}
	if m.Duration != "" {
		rows = append(rows, []string{"Duration", m.Duration})
	}

	if img, ok := m.Technical.Image(); ok {
		rows = append(rows,
			[]string{"Resolution", img.Resolution},
			[]string{"Format", img.Type},
			[]string{"Created", img.CreationTime})
	}
	if vid, ok := m.Technical.Video(); ok {
		rows = append(rows,
			[]string{"Resolution", vid.Resolution},
			[]string{"Aspect ratio", vid.AspectRatio},
			[]string{"Quality", vid.Quality},
			[]string{"Length", vid.Duration},
			[]string{"Created", vid.CreationTime})
	}
	return rows
}

func describeItem(item media.MediaItem) string {
	return fmt.Sprintf("%s [%s] %s", item.ID, item.MediaType, item.Title)
}
