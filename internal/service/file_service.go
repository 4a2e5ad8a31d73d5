package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studyhub-app/studyhub-api/internal/models"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/storage"
)

type fileRepository interface {
	FindByID(ctx context.Context, id string) (*models.ProjectFile, error)
	ListByProject(ctx context.Context, projectID string) ([]models.ProjectFile, error)
	Create(ctx context.Context, file *models.ProjectFile, entry *models.ActivityEntry) error
	Delete(ctx context.Context, fileID, projectID string, entry *models.ActivityEntry) error
}

type fileStore interface {
	Save(projectID, originalName string, r io.Reader) (string, error)
	Delete(relPath string) error
	Path(relPath string) string
}

// FileUploadPolicy bounds what may be uploaded.
type FileUploadPolicy struct {
	MaxSizeBytes      int64
	AllowedExtensions []string
}

// DownloadGrant is a short-lived signed token for fetching file bytes
// without re-authenticating.
type DownloadGrant struct {
	Token     string    `json:"token"`
	FileName  string    `json:"file_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileService manages project attachments: metadata in the database,
// bytes in the storage layer, download access via signed tokens.
type FileService struct {
	repo        fileRepository
	store       fileStore
	signer      *storage.SignedURLSigner
	permissions *PermissionService
	policy      FileUploadPolicy
	logger      *zap.Logger
}

// NewFileService creates a new file service instance.
func NewFileService(repo fileRepository, store fileStore, signer *storage.SignedURLSigner, permissions *PermissionService, policy FileUploadPolicy, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{repo: repo, store: store, signer: signer, permissions: permissions, policy: policy, logger: logger}
}

// Upload validates the file against the policy, persists the bytes and
// records the metadata row plus a file_uploaded entry in one
// transaction. A failed metadata insert removes the stored bytes.
func (s *FileService) Upload(ctx context.Context, actorID, projectID, originalName string, size int64, r io.Reader) (*models.ProjectFile, error) {
	if _, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityUploadFile); err != nil {
		return nil, err
	}

	if s.policy.MaxSizeBytes > 0 && size > s.policy.MaxSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", s.policy.MaxSizeBytes))
	}
	if !s.extensionAllowed(originalName) {
		return nil, appErrors.Clone(appErrors.ErrFileType,
			fmt.Sprintf("file type %s is not allowed", filepath.Ext(originalName)))
	}

	storedPath, err := s.store.Save(projectID, originalName, io.LimitReader(r, size))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	file := &models.ProjectFile{
		ProjectID:    projectID,
		UploaderID:   actorID,
		StoredPath:   storedPath,
		OriginalName: originalName,
		SizeBytes:    size,
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityFileUploaded,
		Detail:  fmt.Sprintf("uploaded file %q (%d bytes)", originalName, size),
	}

	if err := s.repo.Create(ctx, file, entry); err != nil {
		if cleanupErr := s.store.Delete(storedPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload",
				zap.String("path", storedPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record file")
	}

	return file, nil
}

// Delete removes a file. Allowed for the uploader themselves or for
// anyone who can manage the project.
func (s *FileService) Delete(ctx context.Context, actorID, fileID string) error {
	file, err := s.findFile(ctx, fileID)
	if err != nil {
		return err
	}

	_, role, err := s.permissions.RequireProject(ctx, actorID, file.ProjectID, models.CapabilityView)
	if err != nil {
		return err
	}
	if file.UploaderID != actorID && !role.Can(models.CapabilityManageProject) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader or the project owner can delete this file")
	}

	entry := &models.ActivityEntry{
		ActorID: actorID,
		Action:  models.ActivityFileDeleted,
		Detail:  fmt.Sprintf("deleted file %q", file.OriginalName),
	}

	if err := s.repo.Delete(ctx, file.ID, file.ProjectID, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}

	if err := s.store.Delete(file.StoredPath); err != nil {
		s.logger.Warn("failed to remove file bytes",
			zap.String("path", file.StoredPath), zap.Error(err))
	}

	return nil
}

// DownloadGrant issues a signed token for the file, valid for the
// signer's TTL. Anyone who can view the project can download.
func (s *FileService) DownloadGrant(ctx context.Context, actorID, fileID string) (*DownloadGrant, error) {
	file, err := s.findFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if _, _, err := s.permissions.RequireProject(ctx, actorID, file.ProjectID, models.CapabilityView); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(file.ID, file.StoredPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download URL")
	}

	return &DownloadGrant{Token: token, FileName: file.OriginalName, ExpiresAt: expiresAt}, nil
}

// Resolve validates a download token and returns the file metadata and
// the absolute path to its bytes.
func (s *FileService) Resolve(ctx context.Context, token string) (*models.ProjectFile, string, error) {
	fileID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	file, err := s.findFile(ctx, fileID)
	if err != nil {
		return nil, "", err
	}
	if file.StoredPath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	return file, s.store.Path(file.StoredPath), nil
}

// List returns the project's file metadata.
func (s *FileService) List(ctx context.Context, actorID, projectID string) ([]models.ProjectFile, error) {
	if _, _, err := s.permissions.RequireProject(ctx, actorID, projectID, models.CapabilityView); err != nil {
		return nil, err
	}

	files, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	return files, nil
}

func (s *FileService) findFile(ctx context.Context, fileID string) (*models.ProjectFile, error) {
	file, err := s.repo.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	return file, nil
}

func (s *FileService) extensionAllowed(name string) bool {
	if len(s.policy.AllowedExtensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, allowed := range s.policy.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
