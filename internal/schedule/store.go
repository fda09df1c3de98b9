package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/watzon/virtualdate/internal/database"
)

// Store persists finished builds so feeds can be served and compared
// without recomputing the schedule.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// BuildRecord is a persisted build: the window it covered plus the
// placements it produced, in start order.
type BuildRecord struct {
	ID          string
	WindowStart time.Time
	WindowEnd   time.Time
	CreatedAt   time.Time
	Instances   []InstanceRecord
}

// InstanceRecord is the stored form of a placement. The task is kept by
// id only; the explanation is flattened to text.
type InstanceRecord struct {
	TaskID      string
	Start       time.Time
	Finish      time.Time
	Explanation string
}

// SaveBuild stores the build for the given window and returns its id.
func (s *Store) SaveBuild(ctx context.Context, from, to time.Time, instances []*Instance) (string, error) {
	id := uuid.NewString()

	err := s.db.Transaction(ctx, func(tx *database.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO builds (id, window_start, window_end, created_at)
			VALUES (?, ?, ?, ?)
		`, id, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339), database.Now())
		if err != nil {
			return fmt.Errorf("inserting build: %w", err)
		}

		for _, inst := range instances {
			explanation := ""
			if inst.Explain != nil {
				explanation = strings.Join(inst.Explain.Lines(), "\n")
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO instances (build_id, task_id, start, finish, explanation)
				VALUES (?, ?, ?, ?, ?)
			`, id, inst.Task.ID,
				inst.Start.UTC().Format(time.RFC3339),
				inst.Finish.UTC().Format(time.RFC3339),
				explanation,
			)
			if err != nil {
				return fmt.Errorf("inserting instance for %s: %w", inst.Task.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// GetBuild loads a stored build by id. Returns nil when no such build
// exists.
func (s *Store) GetBuild(ctx context.Context, id string) (*BuildRecord, error) {
	var rec BuildRecord
	var windowStart, windowEnd, createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, window_start, window_end, created_at
		FROM builds
		WHERE id = ?
	`, id).Scan(&rec.ID, &windowStart, &windowEnd, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting build: %w", err)
	}

	if err := parseBuildTimes(&rec, windowStart, windowEnd, createdAt); err != nil {
		return nil, err
	}

	instances, err := s.loadInstances(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Instances = instances

	return &rec, nil
}

// LatestBuild loads the most recently created build, or nil when the
// store is empty.
func (s *Store) LatestBuild(ctx context.Context) (*BuildRecord, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM builds
		ORDER BY created_at DESC, id
		LIMIT 1
	`).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest build: %w", err)
	}

	return s.GetBuild(ctx, id)
}

// ListBuilds returns build headers without instances, newest first.
func (s *Store) ListBuilds(ctx context.Context) ([]*BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, window_start, window_end, created_at
		FROM builds
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying builds: %w", err)
	}
	defer rows.Close()

	var records []*BuildRecord
	for rows.Next() {
		var rec BuildRecord
		var windowStart, windowEnd, createdAt string

		if err := rows.Scan(&rec.ID, &windowStart, &windowEnd, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		if err := parseBuildTimes(&rec, windowStart, windowEnd, createdAt); err != nil {
			return nil, err
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating builds: %w", err)
	}

	return records, nil
}

// DeleteBuild removes a build and, via the cascade, its instances.
func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting build: %w", err)
	}
	return nil
}

func (s *Store) loadInstances(ctx context.Context, buildID string) ([]InstanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, start, finish, explanation
		FROM instances
		WHERE build_id = ?
		ORDER BY start, task_id
	`, buildID)
	if err != nil {
		return nil, fmt.Errorf("querying instances: %w", err)
	}
	defer rows.Close()

	var records []InstanceRecord
	for rows.Next() {
		var rec InstanceRecord
		var start, finish string

		if err := rows.Scan(&rec.TaskID, &start, &finish, &rec.Explanation); err != nil {
			return nil, fmt.Errorf("scanning instance: %w", err)
		}

		rec.Start, err = time.Parse(time.RFC3339, start)
		if err != nil {
			return nil, fmt.Errorf("parsing start: %w", err)
		}
		rec.Finish, err = time.Parse(time.RFC3339, finish)
		if err != nil {
			return nil, fmt.Errorf("parsing finish: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating instances: %w", err)
	}

	return records, nil
}

func parseBuildTimes(rec *BuildRecord, windowStart, windowEnd, createdAt string) error {
	var err error
	rec.WindowStart, err = time.Parse(time.RFC3339, windowStart)
	if err != nil {
		return fmt.Errorf("parsing window_start: %w", err)
	}
	rec.WindowEnd, err = time.Parse(time.RFC3339, windowEnd)
	if err != nil {
		return fmt.Errorf("parsing window_end: %w", err)
	}
	rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}
	return nil
}
