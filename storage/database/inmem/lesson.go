package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/mrembo/urembo/core/lesson"
)

type lessonRepository struct {
	db *lessonTable
}

func NewLessonRepository(db *DB) lesson.Repository {
	return &lessonRepository{db: db.lesson}
}

func (repo *lessonRepository) query() []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0, len(repo.db.table))
	for _, les := range repo.db.table {
		lessons = append(lessons, *les)
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ID < lessons[j].ID })
	return lessons
}

func (repo *lessonRepository) CheckNameUniqueness(_ context.Context, name string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, les := range repo.query() {
		if strings.EqualFold(les.Name, name) {
			return lesson.ErrNameExists
		}
	}
	return nil
}

func (repo *lessonRepository) CreateLesson(_ context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.seq++
	les.ID = repo.db.seq
	repo.db.table[les.ID] = &les
	return les, nil
}

func (repo *lessonRepository) QueryAllLessons(_ context.Context) ([]lesson.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *lessonRepository) GetLessonByID(_ context.Context, id int) (lesson.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if les, ok := repo.db.table[id]; ok {
		return *les, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) DeleteLesson(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return lesson.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
