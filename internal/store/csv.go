package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// csvHeader is the fixed column order of exported history files.
var csvHeader = []string{"session_id", "timestamp", "question", "answer", "context_reference"}

// ExportCSV writes a session's turns as CSV in arrival order.
func ExportCSV(w io.Writer, sess *Session) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, t := range sess.Turns {
		record := []string{
			t.SessionID,
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.Question,
			t.Answer,
			t.ContextRef,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ImportCSV reads a previously exported history file and appends its
// turns to the given session, preserving row order. It returns the
// number of turns imported.
func (s *Store) ImportCSV(ctx context.Context, r io.Reader, sessionID string) (int, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("reading csv header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return 0, fmt.Errorf("unexpected csv header: %v", header)
	}

	imported := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("reading csv record: %w", err)
		}

		createdAt, err := time.Parse(time.RFC3339, record[1])
		if err != nil {
			createdAt = time.Now().UTC()
		}

		if _, err := s.Append(ctx, Turn{
			SessionID:  sessionID,
			Question:   record[2],
			Answer:     record[3],
			ContextRef: record[4],
			CreatedAt:  createdAt,
		}); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}
