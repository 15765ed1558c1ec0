package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/dmitrijs2005/geocrypt/internal/dbx"
	"github.com/dmitrijs2005/geocrypt/internal/logging"
	"github.com/dmitrijs2005/geocrypt/internal/server/models"
	"github.com/dmitrijs2005/geocrypt/internal/server/objectstore"
	"github.com/dmitrijs2005/geocrypt/internal/server/repositories/repomanager"
)

// UploadInput describes a file being uploaded.
type UploadInput struct {
	DisplayName string
	MimeType    string
	// Size is the byte length of Body, or -1 if unknown.
	Size    int64
	Geohash *string
	Body    io.Reader
}

// FileService manages file metadata and the stored objects behind it.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	objects     objectstore.Gateway
	logger      logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, objects objectstore.Gateway, logger logging.Logger) *FileService {
	return &FileService{db: db, repomanager: m, objects: objects, logger: logger.With("module", "files")}
}

// Upload streams in.Body to a new object and records its metadata. The row
// is created only after the object is stored; if the insert fails the object
// is removed best-effort.
func (s *FileService) Upload(ctx context.Context, userID string, in UploadInput) (*models.File, error) {
	if in.DisplayName == "" {
		return nil, fmt.Errorf("%w: filename is required", common.ErrorValidation)
	}
	if in.MimeType == "" {
		in.MimeType = "application/octet-stream"
	}

	key := objectstore.NewStorageKey(userID)
	if err := s.objects.Put(ctx, key, in.Body, in.Size, in.MimeType); err != nil {
		return nil, err
	}

	size := in.Size
	if size < 0 {
		size = 0
	}
	file := &models.File{
		UserID:      userID,
		StorageKey:  key,
		DisplayName: in.DisplayName,
		MimeType:    in.MimeType,
		Size:        size,
		Geohash:     in.Geohash,
	}

	created, err := s.repomanager.Files(s.db).Create(ctx, file)
	if err != nil {
		if delErr := s.objects.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn(ctx, "orphaned object after failed insert", "storage_key", key, "error", delErr)
		}
		return nil, fmt.Errorf("error creating file record: %w", err)
	}

	s.logger.Info(ctx, "file uploaded", "file_id", created.ID, "user_id", userID, "size", created.Size)
	return created, nil
}

// List returns userID's files, newest first.
func (s *FileService) List(ctx context.Context, userID string) ([]*models.File, error) {
	return s.repomanager.Files(s.db).ListByUser(ctx, userID)
}

// Get returns the file if it exists and belongs to userID. A missing file is
// common.ErrorNotFound; another user's file is common.ErrForbidden.
func (s *FileService) Get(ctx context.Context, fileID, userID string) (*models.File, error) {
	return ownedFile(ctx, s.repomanager.Files(s.db), fileID, userID)
}

// Delete removes the metadata row and then the object. The ownership check
// and the row delete share one transaction; the object is removed after
// commit. Failure to remove the object is logged; the file is already gone
// from the caller's view.
func (s *FileService) Delete(ctx context.Context, fileID, userID string) error {
	var f *models.File
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)

		var err error
		f, err = ownedFile(ctx, repo, fileID, userID)
		if err != nil {
			return err
		}
		return repo.Delete(ctx, f.ID)
	})
	if err != nil {
		return err
	}

	if err := s.objects.Delete(ctx, f.StorageKey); err != nil {
		s.logger.Warn(ctx, "object delete failed", "file_id", f.ID, "storage_key", f.StorageKey, "error", err)
	}
	s.logger.Info(ctx, "file deleted", "file_id", f.ID, "user_id", userID)
	return nil
}

type fileGetter interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
}

func ownedFile(ctx context.Context, repo fileGetter, fileID, userID string) (*models.File, error) {
	f, err := repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	if f.UserID != userID {
		return nil, common.ErrForbidden
	}
	return f, nil
}
