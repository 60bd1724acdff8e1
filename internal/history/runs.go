package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = `id, input_path, status, languages, error_message, started_at, finished_at`

const trackColumns = `run_id, stream_index, codec, language, status, packet_count, dropped_count,
	cue_count, output_path, error_message, updated_at`

// StartRun records a new run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		run.ID, run.InputPath, string(run.Status), nullableString(run.Languages),
		nullableString(run.Error), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the final status of a run.
func (s *Store) FinishRun(ctx context.Context, id string, status Status, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(status), nullableString(message), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", id)
	}
	return nil
}

// SetLanguages stores the comma-separated languages a run resolved.
func (s *Store) SetLanguages(ctx context.Context, id, languages string) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE runs SET languages = ? WHERE id = ?`,
		nullableString(languages), id,
	); err != nil {
		return fmt.Errorf("set languages: %w", err)
	}
	return nil
}

// RecordTrack inserts or replaces the record for one track of a run.
func (s *Store) RecordTrack(ctx context.Context, track Track) error {
	track.UpdatedAt = time.Now()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO tracks (`+trackColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, stream_index) DO UPDATE SET
			codec = excluded.codec,
			language = excluded.language,
			status = excluded.status,
			packet_count = excluded.packet_count,
			dropped_count = excluded.dropped_count,
			cue_count = excluded.cue_count,
			output_path = excluded.output_path,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at`,
		track.RunID, track.StreamIndex, track.Codec, track.Language, string(track.Status),
		track.PacketCount, track.DroppedCount, track.CueCount,
		nullableString(track.OutputPath), nullableString(track.Error), formatTime(track.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("record track: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindRun resolves a full run id or a unique prefix of one. It returns nil
// when nothing matches.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, errors.New("run id is required")
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`,
		idOrPrefix, escapeLike(idOrPrefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == idOrPrefix {
			return &run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousRun, idOrPrefix)
	}
}

// Tracks returns the track records of a run ordered by stream index.
func (s *Store) Tracks(ctx context.Context, runID string) ([]Track, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+trackColumns+` FROM tracks WHERE run_id = ? ORDER BY stream_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// LatestForInput returns the most recent run for an input path, or nil.
func (s *Store) LatestForInput(ctx context.Context, inputPath string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE input_path = ? ORDER BY started_at DESC LIMIT 1`, inputPath)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Prune deletes finished runs that started before cutoff, with their tracks.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM runs WHERE started_at < ? AND status != ?`,
		formatTime(cutoff), string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (Run, error) {
	var (
		run                Run
		status             string
		languages, message sql.NullString
		startedRaw         string
		finishedRaw        sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.InputPath, &status, &languages, &message, &startedRaw, &finishedRaw); err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	run.Languages = languages.String
	run.Error = message.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func scanTrack(scanner rowScanner) (Track, error) {
	var (
		track           Track
		status          string
		output, message sql.NullString
		updatedRaw      string
	)
	if err := scanner.Scan(&track.RunID, &track.StreamIndex, &track.Codec, &track.Language, &status,
		&track.PacketCount, &track.DroppedCount, &track.CueCount, &output, &message, &updatedRaw); err != nil {
		return Track{}, fmt.Errorf("scan track: %w", err)
	}
	track.Status = Status(status)
	track.OutputPath = output.String
	track.Error = message.String
	if updated, err := parseTimeString(updatedRaw); err == nil {
		track.UpdatedAt = updated
	}
	return track, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
