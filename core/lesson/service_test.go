package lesson

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrembo/urembo/core"
)

type fakeRepo struct {
	seq     int
	lessons map[int]Lesson
	failing bool
}

func newFakeRepo() *fakeRepo { return &fakeRepo{lessons: make(map[int]Lesson)} }

func (r *fakeRepo) CheckNameUniqueness(_ context.Context, name string) error {
	for _, les := range r.lessons {
		if strings.EqualFold(les.Name, name) {
			return ErrNameExists
		}
	}
	return nil
}

func (r *fakeRepo) CreateLesson(_ context.Context, les Lesson) (Lesson, error) {
	if r.failing {
		return Lesson{}, errors.New("db down")
	}
	r.seq++
	les.ID = r.seq
	r.lessons[les.ID] = les
	return les, nil
}

func (r *fakeRepo) QueryAllLessons(_ context.Context) ([]Lesson, error) {
	all := make([]Lesson, 0, len(r.lessons))
	for _, les := range r.lessons {
		all = append(all, les)
	}
	return all, nil
}

func (r *fakeRepo) GetLessonByID(_ context.Context, id int) (Lesson, error) {
	if les, ok := r.lessons[id]; ok {
		return les, nil
	}
	return Lesson{}, ErrNotFound
}

func (r *fakeRepo) DeleteLesson(_ context.Context, id int) error {
	if _, ok := r.lessons[id]; !ok {
		return ErrNotFound
	}
	delete(r.lessons, id)
	return nil
}

type fakeStore struct {
	files map[string][]byte
}

func newFakeStore() *fakeStore { return &fakeStore{files: make(map[string][]byte)} }

func (s *fakeStore) Save(_ context.Context, path string, content io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	s.files[path] = data
	return nil
}

func (s *fakeStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Remove(_ context.Context, path string) error {
	delete(s.files, path)
	return nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func upload(name, ct, content string) *FileUpload {
	return &FileUpload{
		Filename:    name,
		ContentType: ct,
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	}
}

func newTestValidator() *validator.Validate {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func TestNewLessonValidate(t *testing.T) {
	validate := newTestValidator()

	tests := []struct {
		name    string
		nl      NewLesson
		wantErr bool
	}{
		{
			name: "ok theory only",
			nl: NewLesson{
				Name:           "Gel Manicure",
				ThumbnailImage: upload("thumb.png", "image/png", "png"),
				TheoryFile:     upload("theory.pdf", "application/pdf", "pdf"),
			},
		},
		{
			name: "ok full",
			nl: NewLesson{
				Name:              "Gel Manicure",
				ThumbnailImage:    upload("thumb.jpg", "image/jpeg", "jpg"),
				TheoryFile:        upload("theory.pdf", "application/pdf", "pdf"),
				PracticalFile:     upload("practical.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx"),
				ConsultationSheet: upload("sheet.doc", "application/msword", "doc"),
			},
		},
		{
			name: "missing name",
			nl: NewLesson{
				ThumbnailImage: upload("thumb.png", "image/png", "png"),
				TheoryFile:     upload("theory.pdf", "application/pdf", "pdf"),
			},
			wantErr: true,
		},
		{
			name: "missing theory",
			nl: NewLesson{
				Name:           "Gel Manicure",
				ThumbnailImage: upload("thumb.png", "image/png", "png"),
			},
			wantErr: true,
		},
		{
			name: "practical without consultation sheet",
			nl: NewLesson{
				Name:           "Gel Manicure",
				ThumbnailImage: upload("thumb.png", "image/png", "png"),
				TheoryFile:     upload("theory.pdf", "application/pdf", "pdf"),
				PracticalFile:  upload("practical.pdf", "application/pdf", "pdf"),
			},
			wantErr: true,
		},
		{
			name: "thumbnail not an image",
			nl: NewLesson{
				Name:           "Gel Manicure",
				ThumbnailImage: upload("thumb.pdf", "application/pdf", "pdf"),
				TheoryFile:     upload("theory.pdf", "application/pdf", "pdf"),
			},
			wantErr: true,
		},
		{
			name: "theory not a document",
			nl: NewLesson{
				Name:           "Gel Manicure",
				ThumbnailImage: upload("thumb.png", "image/png", "png"),
				TheoryFile:     upload("theory.exe", "application/octet-stream", "bin"),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nl := tt.nl
			err := nl.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewLessonValidateFileSize(t *testing.T) {
	validate := newTestValidator()

	oversized := func(name, ct string) *FileUpload {
		return &FileUpload{
			Filename:    name,
			ContentType: ct,
			Size:        MaxFileSize + 1,
			Content:     strings.NewReader(""),
		}
	}

	nl := NewLesson{
		Name:           "Gel Manicure",
		ThumbnailImage: oversized("thumb.png", "image/png"),
		TheoryFile:     oversized("theory.pdf", "application/pdf"),
	}
	err := nl.Validate(validate)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)

	fields := make([]string, 0, len(vErr.Fields))
	for _, fld := range vErr.Fields {
		fields = append(fields, fld.Field)
		assert.Equal(t, "file may not exceed 5MB", fld.Error)
	}
	assert.ElementsMatch(t, []string{"thumbnail_image", "theory_file"}, fields)

	// exactly at the cap is fine
	atCap := NewLesson{
		Name:           "Gel Manicure",
		ThumbnailImage: upload("thumb.png", "image/png", "png"),
		TheoryFile:     upload("theory.pdf", "application/pdf", "pdf"),
	}
	atCap.TheoryFile.Size = MaxFileSize
	assert.NoError(t, atCap.Validate(validate))
}

func TestServiceCreate(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	svc := NewService(repo, store, nopLogger{})
	ctx := context.Background()

	les, err := svc.Create(ctx, NewLesson{
		Name:           "Gel Manicure",
		ThumbnailImage: upload("thumb.png", "image/png", "png"),
		TheoryFile:     upload("theory.pdf", "application/pdf", "pdf"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Gel Manicure", les.Name)
	assert.Contains(t, store.files, les.ThumbnailImage)
	assert.Contains(t, store.files, les.TheoryFile)
	assert.True(t, strings.HasSuffix(les.ThumbnailImage, ".png"))
	assert.True(t, strings.HasSuffix(les.TheoryFile, ".pdf"))

	// duplicate name is a validation error
	_, err = svc.Create(ctx, NewLesson{
		Name:           "gel manicure",
		ThumbnailImage: upload("thumb.png", "image/png", "png"),
		TheoryFile:     upload("theory.pdf", "application/pdf", "pdf"),
	})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Fields[0].Field)
}

func TestServiceCreateRollsBackFiles(t *testing.T) {
	repo := newFakeRepo()
	repo.failing = true
	store := newFakeStore()
	svc := NewService(repo, store, nopLogger{})

	_, err := svc.Create(context.Background(), NewLesson{
		Name:           "Gel Manicure",
		ThumbnailImage: upload("thumb.png", "image/png", "png"),
		TheoryFile:     upload("theory.pdf", "application/pdf", "pdf"),
	})
	require.Error(t, err)
	assert.Empty(t, store.files)
}

func TestServiceDelete(t *testing.T) {
	repo := newFakeRepo()
	store := newFakeStore()
	svc := NewService(repo, store, nopLogger{})
	ctx := context.Background()

	les, err := svc.Create(ctx, NewLesson{
		Name:           "Gel Manicure",
		ThumbnailImage: upload("thumb.png", "image/png", "png"),
		TheoryFile:     upload("theory.pdf", "application/pdf", "pdf"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, les.ID))
	assert.Empty(t, store.files)

	assert.Equal(t, ErrNotFound, errors.Cause(svc.Delete(ctx, les.ID)))
}
