package lesson

import (
	"context"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
)

// MaxFileSize caps every uploaded lesson file.
const MaxFileSize = 5 << 20 // 5MB

var (
	// errors
	ErrNotFound     = errors.New("lesson not found")
	ErrNameExists   = errors.New("a lesson with this name already exists")
	errNotAnImage   = errors.New("file must be a jpeg, png or webp image")
	errNotADocument = errors.New("file must be a pdf, doc or docx document")
	errFileTooLarge = errors.New("file may not exceed 5MB")
	errInvalidFiles = errors.New("invalid lesson files")

	// NowFunc is overridable for tests
	NowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string) error
		CreateLesson(ctx context.Context, les Lesson) (Lesson, error)
		QueryAllLessons(ctx context.Context) ([]Lesson, error)
		GetLessonByID(ctx context.Context, id int) (Lesson, error)
		DeleteLesson(ctx context.Context, id int) error
	}

	Service interface {
		Create(ctx context.Context, nl NewLesson) (Lesson, error)
		QueryAll(ctx context.Context) ([]Lesson, error)
		GetByID(ctx context.Context, id int) (Lesson, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo   Repository
		files  FileStore
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, files FileStore, logger core.Logger) Service {
	return &service{
		repo:   repo,
		files:  files,
		logger: logger,
	}
}

// Create stores the uploaded files then persists the lesson.
// Stored files are removed again if persisting fails.
func (svc *service) Create(ctx context.Context, nl NewLesson) (Lesson, error) {
	if err := svc.repo.CheckNameUniqueness(ctx, nl.Name); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return Lesson{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return Lesson{}, err
	}

	now := NowFunc()
	les := Lesson{
		Name:      nl.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var saved []string
	cleanup := func() {
		for _, p := range saved {
			if err := svc.files.Remove(ctx, p); err != nil {
				svc.logger.Warn("lesson: removing orphaned file "+p, err)
			}
		}
	}

	save := func(upload *FileUpload, ext string) (string, error) {
		p := path.Join("lessons", uuid.New().String()+ext)
		if err := svc.files.Save(ctx, p, upload.Content, upload.Size, upload.ContentType); err != nil {
			return "", errors.Wrapf(err, "saving %s", upload.Filename)
		}
		saved = append(saved, p)
		return p, nil
	}

	var err error
	if les.ThumbnailImage, err = save(nl.ThumbnailImage, imageContentTypes[nl.ThumbnailImage.ContentType]); err != nil {
		cleanup()
		return Lesson{}, err
	}
	if les.TheoryFile, err = save(nl.TheoryFile, documentContentTypes[nl.TheoryFile.ContentType]); err != nil {
		cleanup()
		return Lesson{}, err
	}
	if nl.PracticalFile != nil {
		if les.PracticalFile, err = save(nl.PracticalFile, documentContentTypes[nl.PracticalFile.ContentType]); err != nil {
			cleanup()
			return Lesson{}, err
		}
	}
	if nl.ConsultationSheet != nil {
		if les.ConsultationSheet, err = save(nl.ConsultationSheet, documentContentTypes[nl.ConsultationSheet.ContentType]); err != nil {
			cleanup()
			return Lesson{}, err
		}
	}

	les, err = svc.repo.CreateLesson(ctx, les)
	if err != nil {
		cleanup()
		return Lesson{}, err
	}
	return les, nil
}

func (svc *service) QueryAll(ctx context.Context) ([]Lesson, error) {
	return svc.repo.QueryAllLessons(ctx)
}

func (svc *service) GetByID(ctx context.Context, id int) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

// Delete removes the lesson row first, then its files; its quiz
// (if any) goes with it via the schema's cascade.
func (svc *service) Delete(ctx context.Context, id int) error {
	les, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteLesson(ctx, id); err != nil {
		return err
	}
	for _, p := range []string{les.ThumbnailImage, les.TheoryFile, les.PracticalFile, les.ConsultationSheet} {
		if p == "" {
			continue
		}
		if err := svc.files.Remove(ctx, p); err != nil {
			svc.logger.Warn("lesson: removing file "+p, err)
		}
	}
	return nil
}
