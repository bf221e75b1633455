package handlers_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mess-o-midi-backend/internal/models"
)

func TestProjects_RequireAuth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjects_CRUD(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "ada")

	id := f.createProject(t, token, "Night Drive")

	w := f.do(t, http.MethodGet, "/api/v1/projects/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var project models.ProjectResponse
	decode(t, w, &project)
	assert.Equal(t, "Night Drive", project.Title)

	w = f.do(t, http.MethodPut, "/api/v1/projects/"+id, token, models.UpdateProjectRequest{Title: "Night Drive II", Description: "synthwave"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/projects", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list models.ProjectListResponse
	decode(t, w, &list)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, "Night Drive II", list.Projects[0].Title)
	assert.Equal(t, "synthwave", list.Projects[0].Description)

	w = f.do(t, http.MethodDelete, "/api/v1/projects/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjects_Validation(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "ada")

	w := f.do(t, http.MethodPost, "/api/v1/projects", token, map[string]string{"description": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/projects", token, models.CreateProjectRequest{Title: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Project title is required")

	w = f.do(t, http.MethodGet, "/api/v1/projects/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProjects_OtherUsersAreInvisible(t *testing.T) {
	f := newFixture(t)
	owner := f.login(t, "owner")
	intruder := f.login(t, "intruder")

	id := f.createProject(t, owner, "Private")

	for _, tc := range []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/api/v1/projects/" + id, nil},
		{http.MethodPut, "/api/v1/projects/" + id, models.UpdateProjectRequest{Title: "Mine now"}},
		{http.MethodDelete, "/api/v1/projects/" + id, nil},
		{http.MethodPost, "/api/v1/projects/" + id + "/duplicate", nil},
	} {
		w := f.do(t, tc.method, tc.path, intruder, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}

	w := f.do(t, http.MethodGet, "/api/v1/projects/"+uuid.NewString(), owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProjects_DuplicateAndQuota(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "ada")

	id := f.createProject(t, token, "Demo")

	w := f.do(t, http.MethodPost, "/api/v1/projects/"+id+"/duplicate", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var dup models.CreateProjectResponse
	decode(t, w, &dup)

	w = f.do(t, http.MethodGet, "/api/v1/projects/"+dup.ProjectID, token, nil)
	var project models.ProjectResponse
	decode(t, w, &project)
	assert.Equal(t, "Copy of Demo", project.Title)

	// free plan allows two projects
	w = f.do(t, http.MethodPost, "/api/v1/projects", token, models.CreateProjectRequest{Title: "Third"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "upgrade")

	w = f.do(t, http.MethodGet, "/api/v1/usage", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage models.Usage
	decode(t, w, &usage)
	assert.Equal(t, 2, usage.Current)
	require.NotNil(t, usage.Limit)
	assert.Equal(t, 2, *usage.Limit)
	assert.False(t, usage.CanCreate)
	assert.Equal(t, 100.0, usage.Percentage)
}
