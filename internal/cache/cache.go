// Package cache persists oracle results keyed by content fingerprint, so a
// re-registered or renamed file never pays for a second analysis. Analysis
// and transcript arrive from independent passes in either order; each save
// merges into the stored document without touching the other pass's fields.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/sjson"

	"github.com/clipforge/clipforge-agent/internal/clip"
	"github.com/clipforge/clipforge-agent/internal/oracle"
)

// Document is the cached oracle output for one fingerprint.
type Document struct {
	Summary    string                     `json:"summary,omitempty"`
	Clips      []clip.Clip                `json:"clips,omitempty"`
	Transcript []oracle.TranscriptSegment `json:"transcript,omitempty"`

	HasAnalysis   bool `json:"-"`
	HasTranscript bool `json:"-"`
}

type Store struct {
	db     *sql.DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *slog.Logger
}

func NewStore(db *sql.DB, logger *slog.Logger) (*Store, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Store{db: db, enc: enc, dec: dec, logger: logger}, nil
}

// Get returns the cached document for a fingerprint, or nil when nothing
// has been stored yet.
func (s *Store) Get(ctx context.Context, fingerprint string) (*Document, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT doc FROM analysis_cache WHERE fingerprint = ?", fingerprint,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress cache entry: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	doc.HasAnalysis = len(doc.Clips) > 0 || doc.Summary != ""
	doc.HasTranscript = len(doc.Transcript) > 0
	return &doc, nil
}

// SaveAnalysis merges the analysis pass into the stored document. A
// transcript already present for the fingerprint is preserved.
func (s *Store) SaveAnalysis(ctx context.Context, fingerprint, summary string, clips []clip.Clip) error {
	clipsJSON, err := json.Marshal(clips)
	if err != nil {
		return err
	}
	return s.merge(ctx, fingerprint, func(doc string) (string, error) {
		doc, err := sjson.Set(doc, "summary", summary)
		if err != nil {
			return "", err
		}
		return sjson.SetRaw(doc, "clips", string(clipsJSON))
	})
}

// SaveTranscript merges the transcript pass into the stored document,
// whether or not the analysis pass has landed yet.
func (s *Store) SaveTranscript(ctx context.Context, fingerprint string, segments []oracle.TranscriptSegment) error {
	segJSON, err := json.Marshal(segments)
	if err != nil {
		return err
	}
	return s.merge(ctx, fingerprint, func(doc string) (string, error) {
		return sjson.SetRaw(doc, "transcript", string(segJSON))
	})
}

// Delete drops the cached document, forcing a fresh analysis next time.
func (s *Store) Delete(ctx context.Context, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM analysis_cache WHERE fingerprint = ?", fingerprint)
	return err
}

func (s *Store) merge(ctx context.Context, fingerprint string, apply func(string) (string, error)) error {
	doc := "{}"
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT doc FROM analysis_cache WHERE fingerprint = ?", fingerprint,
	).Scan(&blob)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err == nil {
		raw, derr := s.dec.DecodeAll(blob, nil)
		if derr != nil {
			// A corrupt entry is rebuilt from scratch rather than wedging
			// the save path.
			s.logger.Warn("discarding corrupt cache entry", "fingerprint", fingerprint, "error", derr)
		} else {
			doc = string(raw)
		}
	}

	doc, err = apply(doc)
	if err != nil {
		return fmt.Errorf("merge cache entry: %w", err)
	}

	compressed := s.enc.EncodeAll([]byte(doc), nil)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_cache (fingerprint, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, fingerprint, compressed, time.Now().UTC().Format(time.RFC3339))
	return err
}
