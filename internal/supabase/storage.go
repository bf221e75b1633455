package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	storage "github.com/supabase-community/storage-go"
	"mess-o-midi-backend/internal/apperr"
)

const midiContentType = "audio/midi"

// StorageClient keeps MIDI files in a Supabase Storage bucket under
// "midi/{path}". It satisfies filestore.Store.
type StorageClient struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewStorageClient(supabaseURL, serviceKey, bucket string) (*StorageClient, error) {
	client, err := NewClient(supabaseURL, serviceKey)
	if err != nil {
		return nil, err
	}
	return &StorageClient{
		client: client.Storage,
		bucket: bucket,
		prefix: "midi",
	}, nil
}

func (s *StorageClient) objectPath(p string) string {
	return s.prefix + "/" + strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (s *StorageClient) Save(_ context.Context, p string, r io.Reader) error {
	contentType := midiContentType
	upsert := false
	_, err := s.client.UploadFile(s.bucket, s.objectPath(p), r, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		if isAlreadyExists(err) {
			return fmt.Errorf("%w: %s already exists", apperr.ErrConflict, p)
		}
		return fmt.Errorf("%w: failed to upload file: %v", apperr.ErrStorage, err)
	}
	return nil
}

func (s *StorageClient) Open(_ context.Context, p string) (io.ReadCloser, error) {
	data, err := s.client.DownloadFile(s.bucket, s.objectPath(p))
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to download file: %v", apperr.ErrStorage, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Remove succeeds for objects that do not exist; the storage API reports
// nothing removed rather than an error.
func (s *StorageClient) Remove(_ context.Context, p string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{s.objectPath(p)}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("%w: failed to delete file: %v", apperr.ErrStorage, err)
	}
	return nil
}

// Import uploads a file the generation service wrote to local disk and
// removes the local copy once it is stored.
func (s *StorageClient) Import(ctx context.Context, localPath, p string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("%w: generated file missing: %v", apperr.ErrStorage, err)
	}
	if err := s.Save(ctx, p, bytes.NewReader(data)); err != nil {
		return err
	}
	os.Remove(localPath)
	return nil
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "not_found")
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
