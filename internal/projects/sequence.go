package projects

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"mess-o-midi-backend/internal/database"
	"mess-o-midi-backend/internal/models"
)

// AssetFilename is the stored name of the n-th asset of fileType in a project.
func AssetFilename(ownerID, projectID uuid.UUID, fileType string, n int) string {
	return fmt.Sprintf("%s_%s_%s_%d.mid", ownerID, projectID, fileType, n)
}

// NextSequenceNumber reserves the next number for fileType within the
// project. The counter row is bumped first so concurrent reservations for
// the same pair serialize on it; existing file names seed the counter for
// assets recorded before it existed. A reserved number is never handed out
// again, even if the asset using it is deleted.
func (m *Manager) NextSequenceNumber(ctx context.Context, projectID uuid.UUID, fileType string) (int, error) {
	var next int
	err := m.store.WithTx(ctx, func(tx *database.Store) error {
		var counter int
		err := tx.FetchOne(ctx, &counter, `
			INSERT INTO asset_sequences (project_id, file_type, last_value)
			VALUES (?, ?, 1)
			ON CONFLICT (project_id, file_type)
			DO UPDATE SET last_value = asset_sequences.last_value + 1
			RETURNING last_value
		`, projectID, fileType)
		if err != nil {
			return err
		}

		var paths []string
		if err := tx.FetchAll(ctx, &paths,
			"SELECT file_path FROM midi_assets WHERE project_id = ? AND file_type = ?",
			projectID, fileType,
		); err != nil {
			return err
		}

		highest := 0
		for _, p := range paths {
			if n := models.SequenceFromPath(p); n > highest {
				highest = n
			}
		}

		next = counter
		if highest+1 > next {
			next = highest + 1
			_, err := tx.Update(ctx, "asset_sequences",
				map[string]interface{}{"last_value": next},
				"project_id = ? AND file_type = ?", projectID, fileType,
			)
			return err
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reserve sequence number: %w", err)
	}
	return next, nil
}
