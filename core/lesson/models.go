package lesson

import (
	"context"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrembo/urembo/core"
)

type Lesson struct {
	ID                int       `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	ThumbnailImage    string    `json:"thumbnail_image" db:"thumbnail_image"`
	TheoryFile        string    `json:"theory_file" db:"theory_file"`
	PracticalFile     string    `json:"practical_file,omitempty" db:"practical_file"`
	ConsultationSheet string    `json:"consultation_sheet,omitempty" db:"consultation_sheet"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// FileUpload is an uploaded file pending storage.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// NewLesson contains information needed to create a new Lesson.
// Practical and consultation files are optional but a practical
// lesson requires its consultation sheet.
type NewLesson struct {
	Name              string      `json:"name" validate:"required"`
	ThumbnailImage    *FileUpload `json:"thumbnail_image" validate:"required"`
	TheoryFile        *FileUpload `json:"theory_file" validate:"required"`
	PracticalFile     *FileUpload `json:"practical_file"`
	ConsultationSheet *FileUpload `json:"consultation_sheet" validate:"required_with=PracticalFile"`
}

var (
	imageContentTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
	}
	documentContentTypes = map[string]string{
		"application/pdf":    ".pdf",
		"application/msword": ".doc",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	}
)

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)

	if err := validate.Struct(nl); err != nil {
		return err
	}

	var flds []core.FieldError
	if nl.ThumbnailImage != nil {
		if _, ok := imageContentTypes[nl.ThumbnailImage.ContentType]; !ok {
			flds = append(flds, core.FieldError{Field: "thumbnail_image", Error: errNotAnImage.Error()})
		}
	}
	for field, upload := range map[string]*FileUpload{
		"theory_file":        nl.TheoryFile,
		"practical_file":     nl.PracticalFile,
		"consultation_sheet": nl.ConsultationSheet,
	} {
		if upload == nil {
			continue
		}
		if _, ok := documentContentTypes[upload.ContentType]; !ok {
			flds = append(flds, core.FieldError{Field: field, Error: errNotADocument.Error()})
		}
	}
	for field, upload := range map[string]*FileUpload{
		"thumbnail_image":    nl.ThumbnailImage,
		"theory_file":        nl.TheoryFile,
		"practical_file":     nl.PracticalFile,
		"consultation_sheet": nl.ConsultationSheet,
	} {
		if upload != nil && upload.Size > MaxFileSize {
			flds = append(flds, core.FieldError{Field: field, Error: errFileTooLarge.Error()})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(errInvalidFiles, flds...)
	}
	return nil
}

// FileStore is any service that can persist and serve lesson files.
type FileStore interface {
	Save(ctx context.Context, path string, content io.Reader, size int64, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}
