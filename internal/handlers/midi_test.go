package handlers_test

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mess-o-midi-backend/internal/models"
)

func (f *fixture) generate(t *testing.T, token, projectID, kind string) models.GenerateResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/midi/generate", token, models.GenerateRequest{ProjectID: projectID, Type: kind})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.GenerateResponse
	decode(t, w, &resp)
	return resp
}

func TestMidi_GenerateListDownload(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "ada")
	projectID := f.createProject(t, token, "Song")

	bass := f.generate(t, token, projectID, "bassline")
	assert.True(t, bass.Success)
	assert.Contains(t, bass.Filename, "_bass_1.mid")
	f.generate(t, token, projectID, "simple_chords")

	w := f.do(t, http.MethodGet, "/api/v1/projects/"+projectID+"/assets", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.MidiAssetListResponse
	decode(t, w, &list)
	require.Len(t, list.Assets, 2)
	assert.Equal(t, "simple_chords", list.Assets[0].FileType, "newest first")
	assert.Equal(t, "Bass 1", list.Assets[1].Label)

	w = f.do(t, http.MethodGet, "/api/v1/midi/download?id="+bass.FileID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Song - Bass 1.mid"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "MThd bass", w.Body.String())
}

func TestMidi_GenerateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "ada")
	projectID := f.createProject(t, token, "Song")

	w := f.do(t, http.MethodPost, "/api/v1/midi/generate", token, models.GenerateRequest{ProjectID: projectID, Type: "drums"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/midi/generate", token, map[string]string{"type": "bass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	other := f.login(t, "other")
	w = f.do(t, http.MethodPost, "/api/v1/midi/generate", other, models.GenerateRequest{ProjectID: projectID, Type: "bass"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMidi_GenerateServiceDown(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "ada")
	projectID := f.createProject(t, token, "Song")

	f.midi.Close()

	w := f.do(t, http.MethodPost, "/api/v1/midi/generate", token, models.GenerateRequest{ProjectID: projectID, Type: "bass"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+projectID+"/assets", token, nil)
	var list models.MidiAssetListResponse
	decode(t, w, &list)
	assert.Empty(t, list.Assets)
}

func TestMidi_RenameAndDelete(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "ada")
	projectID := f.createProject(t, token, "Song")
	asset := f.generate(t, token, projectID, "complex_chords")

	w := f.do(t, http.MethodPost, "/api/v1/midi/rename", token, models.RenameRequest{FileID: asset.FileID, DisplayName: "a/b"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Name cannot contain")

	w = f.do(t, http.MethodPost, "/api/v1/midi/rename", token, models.RenameRequest{FileID: asset.FileID, DisplayName: "  Groove  "})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/midi/download?id="+asset.FileID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Groove.mid"`, w.Header().Get("Content-Disposition"))

	other := f.login(t, "other")
	w = f.do(t, http.MethodPost, "/api/v1/midi/delete", other, models.FileIDRequest{FileID: asset.FileID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/midi/download?id="+asset.FileID, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/midi/delete", token, models.FileIDRequest{FileID: asset.FileID})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/midi/download?id="+asset.FileID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMidi_Upload(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "ada")
	projectID := f.createProject(t, token, "Song")

	w := f.upload(t, token, projectID, "progression.mid", []byte("MThd\x00\x00\x00\x06"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.UploadResponse
	decode(t, w, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.ChordNumber)

	w = f.upload(t, token, projectID, "song.mp3", []byte("MThd"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid file type. Please upload a .mid or .midi file")

	w = f.upload(t, token, projectID, "big.mid", append([]byte("MThd"), bytes.Repeat([]byte{0}, 60*1024)...))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "File is too large. Maximum size is 50KB")

	w = f.upload(t, token, projectID, "fake.mid", []byte("RIFF...."))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid MIDI file format")

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+projectID+"/assets", token, nil)
	var list models.MidiAssetListResponse
	decode(t, w, &list)
	require.Len(t, list.Assets, 1)
	assert.Equal(t, "uploaded_chords", list.Assets[0].FileType)
}
