package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"spreadpilot/internal/domain"
)

// EventArchiveStore is the narrow read surface the archiver needs from the
// event ledger.
type EventArchiveStore interface {
	List(ctx context.Context, limit int, types ...domain.EventType) ([]domain.TradeEvent, error)
}

// Archiver writes decision outputs and ledger history to object storage.
// Archival is write-only here: nothing is deleted from the primary stores.
type Archiver struct {
	writer *Writer
	events EventArchiveStore
}

// NewArchiver creates an Archiver over the writer and the event ledger.
func NewArchiver(writer *Writer, events EventArchiveStore) *Archiver {
	return &Archiver{writer: writer, events: events}
}

// ArchiveDecision uploads one tick's full DecisionOutput as JSON under
// decisions/<ET date>/tick-<unix>.json.
func (a *Archiver) ArchiveDecision(ctx context.Context, out domain.DecisionOutput) error {
	buf, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("s3blob: marshal decision: %w", err)
	}
	path := fmt.Sprintf("decisions/%s/tick-%d.json", domain.ETDate(out.TickAt), out.TickAt.Unix())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive decision: %w", err)
	}
	return nil
}

// ArchiveEvents uploads the trade event log as JSONL under
// archive/events/YYYY-MM.jsonl, keyed by the month of the given time.
// The monthly object is rewritten whole on each call.
func (a *Archiver) ArchiveEvents(ctx context.Context, month time.Time) (int64, error) {
	events, err := a.events.List(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events query: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events marshal: %w", err)
	}

	path := fmt.Sprintf("archive/events/%s.jsonl", month.Format("2006-01"))
	if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize); err != nil {
		return 0, fmt.Errorf("s3blob: archive events upload: %w", err)
	}
	return int64(len(events)), nil
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
