package pgdb

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/lesson"
)

type lessonRepository struct {
	db core.DBExecutor
}

func NewLessonRepository(db core.DBExecutor) lesson.Repository {
	return &lessonRepository{db: db}
}

func (repo *lessonRepository) CheckNameUniqueness(ctx context.Context, name string) error {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM lessons WHERE LOWER(name) = LOWER($1)`, name); err != nil {
		return errors.Wrap(err, "checking lesson name uniqueness")
	}
	if count > 0 {
		return lesson.ErrNameExists
	}
	return nil
}

func (repo *lessonRepository) CreateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	query := `
		INSERT INTO lessons (name, thumbnail_image, theory_file, practical_file, consultation_sheet, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.GetContext(
		ctx, &les.ID, query,
		les.Name, les.ThumbnailImage, les.TheoryFile, les.PracticalFile, les.ConsultationSheet,
		les.CreatedAt, les.UpdatedAt,
	)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return les, nil
}

func (repo *lessonRepository) QueryAllLessons(ctx context.Context) ([]lesson.Lesson, error) {
	lessons := make([]lesson.Lesson, 0)
	if err := repo.db.SelectContext(ctx, &lessons, `SELECT * FROM lessons ORDER BY `+byNewestFirst.String()); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return lessons, nil
}

func (repo *lessonRepository) GetLessonByID(ctx context.Context, id int) (lesson.Lesson, error) {
	var les lesson.Lesson
	if err := repo.db.GetContext(ctx, &les, `SELECT * FROM lessons WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return lesson.Lesson{}, lesson.ErrNotFound
		}
		return lesson.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return les, nil
}

func (repo *lessonRepository) DeleteLesson(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lesson.ErrNotFound
	}
	return nil
}
