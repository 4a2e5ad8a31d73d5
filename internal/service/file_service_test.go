package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/storage"
)

type mockFileRepo struct {
	files   map[string]models.ProjectFile
	entries []models.ActivityEntry
	failing bool
}

func (m *mockFileRepo) FindByID(ctx context.Context, id string) (*models.ProjectFile, error) {
	if f, ok := m.files[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockFileRepo) ListByProject(ctx context.Context, projectID string) ([]models.ProjectFile, error) {
	var out []models.ProjectFile
	for _, f := range m.files {
		if f.ProjectID == projectID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFileRepo) Create(ctx context.Context, file *models.ProjectFile, entry *models.ActivityEntry) error {
	if m.failing {
		return sql.ErrConnDone
	}
	if m.files == nil {
		m.files = map[string]models.ProjectFile{}
	}
	if file.ID == "" {
		file.ID = "f1"
	}
	m.files[file.ID] = *file
	entry.ProjectID = file.ProjectID
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockFileRepo) Delete(ctx context.Context, fileID, projectID string, entry *models.ActivityEntry) error {
	if _, ok := m.files[fileID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.files, fileID)
	entry.ProjectID = projectID
	m.entries = append(m.entries, *entry)
	return nil
}

type mockByteStore struct {
	saved   map[string][]byte
	deleted []string
}

func (m *mockByteStore) Save(projectID, originalName string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	path := projectID + "/" + originalName
	m.saved[path] = data
	return path, nil
}

func (m *mockByteStore) Delete(relPath string) error {
	m.deleted = append(m.deleted, relPath)
	delete(m.saved, relPath)
	return nil
}

func (m *mockByteStore) Path(relPath string) string { return "/uploads/" + relPath }

func newTestFileService(repo *mockFileRepo, store *mockByteStore, roles map[string]models.CollaboratorRole) *FileService {
	projects := &mockProjectFinder{projects: map[string]models.Project{
		"p1": {ID: "p1", OwnerID: "owner"},
	}}
	if roles == nil {
		roles = map[string]models.CollaboratorRole{}
	}
	permissions := NewPermissionService(projects, &mockRoleFinder{roles: roles}, nil)
	signer := storage.NewSignedURLSigner("test-secret", 30*time.Minute)
	policy := FileUploadPolicy{MaxSizeBytes: 1024, AllowedExtensions: []string{"pdf", "txt"}}
	return NewFileService(repo, store, signer, permissions, policy, nil)
}

func TestUpload(t *testing.T) {
	repo := &mockFileRepo{}
	store := &mockByteStore{}
	svc := newTestFileService(repo, store, nil)

	payload := []byte("lecture notes")
	file, err := svc.Upload(context.Background(), "owner", "p1", "notes.txt", int64(len(payload)), bytes.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", file.OriginalName)
	assert.Equal(t, payload, store.saved[file.StoredPath])
	require.Len(t, repo.entries, 1)
	assert.Equal(t, models.ActivityFileUploaded, repo.entries[0].Action)
}

func TestUploadRejectsOversize(t *testing.T) {
	svc := newTestFileService(&mockFileRepo{}, &mockByteStore{}, nil)

	_, err := svc.Upload(context.Background(), "owner", "p1", "big.pdf", 4096, bytes.NewReader(nil))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFileTooLarge.Code, appErrors.FromError(err).Code)
}

func TestUploadRejectsExtension(t *testing.T) {
	svc := newTestFileService(&mockFileRepo{}, &mockByteStore{}, nil)

	_, err := svc.Upload(context.Background(), "owner", "p1", "malware.exe", 10, bytes.NewReader([]byte("xx")))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFileType.Code, appErrors.FromError(err).Code)
}

func TestUploadCleansUpOnRepoFailure(t *testing.T) {
	repo := &mockFileRepo{failing: true}
	store := &mockByteStore{}
	svc := newTestFileService(repo, store, nil)

	payload := []byte("data")
	_, err := svc.Upload(context.Background(), "owner", "p1", "notes.txt", int64(len(payload)), bytes.NewReader(payload))
	require.Error(t, err)
	assert.Len(t, store.deleted, 1)
	assert.Empty(t, store.saved)
}

func TestDeleteOnlyUploaderOrOwner(t *testing.T) {
	repo := &mockFileRepo{files: map[string]models.ProjectFile{
		"f1": {ID: "f1", ProjectID: "p1", UploaderID: "bob", StoredPath: "p1/notes.txt", OriginalName: "notes.txt"},
	}}
	store := &mockByteStore{}
	roles := map[string]models.CollaboratorRole{
		"p1:bob": models.CollaboratorRoleCollaborator,
		"p1:eve": models.CollaboratorRoleCollaborator,
	}
	svc := newTestFileService(repo, store, roles)

	// A different collaborator cannot delete bob's file.
	err := svc.Delete(context.Background(), "eve", "f1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// The uploader can.
	require.NoError(t, svc.Delete(context.Background(), "bob", "f1"))
	assert.Equal(t, []string{"p1/notes.txt"}, store.deleted)
}

func TestDownloadGrantRoundTrip(t *testing.T) {
	repo := &mockFileRepo{files: map[string]models.ProjectFile{
		"f1": {ID: "f1", ProjectID: "p1", UploaderID: "owner", StoredPath: "p1/notes.txt", OriginalName: "notes.txt"},
	}}
	svc := newTestFileService(repo, &mockByteStore{}, nil)

	grant, err := svc.DownloadGrant(context.Background(), "owner", "f1")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", grant.FileName)

	file, path, err := svc.Resolve(context.Background(), grant.Token)
	require.NoError(t, err)
	assert.Equal(t, "f1", file.ID)
	assert.Equal(t, "/uploads/p1/notes.txt", path)

	_, _, err = svc.Resolve(context.Background(), grant.Token+"tampered")
	require.Error(t, err)
}
