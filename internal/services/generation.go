package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/filestore"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/metrics"
	"mess-o-midi-backend/internal/midigen"
	"mess-o-midi-backend/internal/models"
	"mess-o-midi-backend/internal/projects"
)

// Generator is the generation service as seen by GenerationService.
type Generator interface {
	IsAvailable(ctx context.Context) bool
	Generate(ctx context.Context, kind midigen.Kind, filename string, opts midigen.Options) (*midigen.Result, error)
	Download(ctx context.Context, filename string) (io.ReadCloser, error)
}

// Generated is a new asset produced by the generation service.
type Generated struct {
	AssetID  uuid.UUID
	Filename string
	Number   int
}

type GenerationService struct {
	manager   *projects.Manager
	generator Generator
	files     filestore.Store
	// outputDir is the generation service's output directory as mounted
	// here. Files outside it are never adopted; empty means download only.
	outputDir string
	log       *logger.Logger
	now       func() time.Time
}

func NewGenerationService(manager *projects.Manager, generator Generator, files filestore.Store, outputDir string, log *logger.Logger) *GenerationService {
	if outputDir != "" {
		if abs, err := filepath.Abs(outputDir); err == nil {
			outputDir = abs
		}
	}
	return &GenerationService{
		manager:   manager,
		generator: generator,
		files:     files,
		outputDir: outputDir,
		log:       log,
		now:       time.Now,
	}
}

// Generate creates a new MIDI asset of kind in the caller's project. A
// filename collision with a concurrent request is retried once with a fresh
// sequence number. Once the service is called the work runs to completion
// even if ctx is cancelled; the generator's own timeout bounds it.
func (s *GenerationService) Generate(ctx context.Context, principal auth.Principal, projectID uuid.UUID, kind midigen.Kind, opts midigen.Options) (*Generated, error) {
	start := time.Now()

	if _, err := s.manager.GetProject(ctx, projectID, principal.UserID); err != nil {
		return nil, err
	}

	if !s.generator.IsAvailable(ctx) {
		metrics.RecordGeneration(string(kind), "unavailable", 0)
		return nil, fmt.Errorf("%w: health check failed", apperr.ErrUpstream)
	}

	work := context.WithoutCancel(ctx)
	generated, err := s.attempt(work, principal.UserID, projectID, kind, opts)
	if errors.Is(err, apperr.ErrConflict) {
		s.log.Warn("Generated file name collided, retrying", "project_id", projectID, "kind", kind)
		generated, err = s.attempt(work, principal.UserID, projectID, kind, opts)
	}
	if ctx.Err() != nil {
		s.log.Info("Client went away during generation", "project_id", projectID, "kind", kind, "error", err)
	}
	if err != nil {
		metrics.RecordGeneration(string(kind), "failed", time.Since(start))
		return nil, err
	}

	metrics.RecordGeneration(string(kind), "success", time.Since(start))
	return generated, nil
}

func (s *GenerationService) attempt(ctx context.Context, ownerID, projectID uuid.UUID, kind midigen.Kind, opts midigen.Options) (*Generated, error) {
	n, err := s.manager.NextSequenceNumber(ctx, projectID, string(kind))
	if err != nil {
		return nil, err
	}
	path := projects.AssetFilename(ownerID, projectID, string(kind), n)

	result, err := s.generator.Generate(ctx, kind, path, opts)
	if err != nil {
		return nil, err
	}

	if err := s.store(ctx, result, path); err != nil {
		return nil, err
	}

	params := models.Parameters{
		"generated_at": s.now().UTC().Format(time.RFC3339),
		"sequence":     n,
	}
	if opts.Scale != nil {
		params["scale"] = opts.Scale
	}
	if opts.Rhythm != nil {
		params["rhythm"] = opts.Rhythm
	}

	assetID, err := s.manager.AddMidiAsset(ctx, projectID, string(kind), path, params)
	if err != nil {
		// On a conflict the path belongs to the row that won.
		if !errors.Is(err, apperr.ErrConflict) {
			s.discard(ctx, path)
		}
		return nil, err
	}

	return &Generated{AssetID: assetID, Filename: path, Number: n}, nil
}

// store moves the generated file into the blob store. When the reported
// path is not inside the shared output directory the file is fetched over
// HTTP instead.
func (s *GenerationService) store(ctx context.Context, result *midigen.Result, path string) error {
	if local, ok := s.sharedOutput(result.FilePath); ok {
		if _, err := os.Stat(local); err == nil {
			return s.files.Import(ctx, local, path)
		}
	}

	body, err := s.generator.Download(ctx, result.Filename)
	if err != nil {
		return err
	}
	defer body.Close()

	return s.files.Save(ctx, path, body)
}

func (s *GenerationService) sharedOutput(reported string) (string, bool) {
	if s.outputDir == "" || reported == "" {
		return "", false
	}
	full, err := filepath.Abs(reported)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(full, s.outputDir+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func (s *GenerationService) discard(ctx context.Context, path string) {
	if err := s.files.Remove(ctx, path); err != nil {
		s.log.Error("Failed to remove orphaned MIDI file", "path", path, "error", err)
	}
}
