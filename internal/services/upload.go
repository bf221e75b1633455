package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/filestore"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/metrics"
	"mess-o-midi-backend/internal/models"
	"mess-o-midi-backend/internal/projects"
)

// MaxUploadSize is the largest chord file accepted, in bytes.
const MaxUploadSize = 50 * 1024

var midiMagic = []byte("MThd")

const (
	msgInvalidType   = "Invalid file type. Please upload a .mid or .midi file"
	msgTooLarge      = "File is too large. Maximum size is 50KB"
	msgInvalidFormat = "Invalid MIDI file format"
)

// Uploaded is a chord file stored from a user upload.
type Uploaded struct {
	AssetID  uuid.UUID
	Filename string
	Number   int
}

type UploadService struct {
	manager *projects.Manager
	files   filestore.Store
	log     *logger.Logger
	now     func() time.Time
}

func NewUploadService(manager *projects.Manager, files filestore.Store, log *logger.Logger) *UploadService {
	return &UploadService{manager: manager, files: files, log: log, now: time.Now}
}

// Upload validates a user supplied MIDI file and records it as an
// uploaded_chords asset. Rejected files leave neither a row nor a file.
// size is the size the client declared; the body is bounded regardless.
func (s *UploadService) Upload(ctx context.Context, principal auth.Principal, projectID uuid.UUID, filename string, size int64, r io.Reader) (*Uploaded, error) {
	if _, err := s.manager.GetProject(ctx, projectID, principal.UserID); err != nil {
		return nil, err
	}

	data, err := validateUpload(filename, size, r)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			metrics.RecordUpload("rejected")
		}
		return nil, err
	}

	uploaded, err := s.attempt(ctx, principal.UserID, projectID, filename, data)
	if errors.Is(err, apperr.ErrConflict) {
		uploaded, err = s.attempt(ctx, principal.UserID, projectID, filename, data)
	}
	if err != nil {
		metrics.RecordUpload("failed")
		return nil, err
	}

	metrics.RecordUpload("success")
	return uploaded, nil
}

func validateUpload(filename string, size int64, r io.Reader) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mid", ".midi":
	default:
		return nil, apperr.Validation(msgInvalidType)
	}
	if size > MaxUploadSize {
		return nil, apperr.Validation(msgTooLarge)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, apperr.Validation(msgTooLarge)
	}
	if !bytes.HasPrefix(data, midiMagic) {
		return nil, apperr.Validation(msgInvalidFormat)
	}
	return data, nil
}

func (s *UploadService) attempt(ctx context.Context, ownerID, projectID uuid.UUID, original string, data []byte) (*Uploaded, error) {
	n, err := s.manager.NextSequenceNumber(ctx, projectID, models.FileTypeUploadedChords)
	if err != nil {
		return nil, err
	}
	path := projects.AssetFilename(ownerID, projectID, models.FileTypeUploadedChords, n)

	if err := s.files.Save(ctx, path, bytes.NewReader(data)); err != nil {
		return nil, err
	}

	assetID, err := s.manager.AddMidiAsset(ctx, projectID, models.FileTypeUploadedChords, path, models.Parameters{
		"original_filename": filepath.Base(original),
		"uploaded_at":       s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// Save refused to overwrite, so the file at path is the one just written.
		if rmErr := s.files.Remove(ctx, path); rmErr != nil {
			s.log.Error("Failed to roll back uploaded file", "path", path, "error", rmErr)
		}
		return nil, err
	}

	return &Uploaded{AssetID: assetID, Filename: path, Number: n}, nil
}
