package export

import (
	"encoding/json"
	"io"
	"time"
)

type jsonExport struct {
	ExportedAt string `json:"exported_at"`
	Count      int    `json:"count"`
	Rows       []Row  `json:"rows"`
}

// WriteJSON writes timesheet rows wrapped in an export envelope.
func WriteJSON(w io.Writer, rows []Row) error {
	doc := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(rows),
		Rows:       rows,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
