package inmemdb

import (
	"context"

	"github.com/mrembo/urembo/core/quiz"
)

type quizRepository struct {
	db *quizTable
}

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{db: db.quiz}
}

func (repo *quizRepository) CheckLessonQuizUniqueness(_ context.Context, lessonID int) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, qz := range repo.db.table {
		if qz.LessonID == lessonID {
			return quiz.ErrLessonQuizExists
		}
	}
	return nil
}

func (repo *quizRepository) CreateQuiz(_ context.Context, qz quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.seq++
	qz.ID = repo.db.seq
	repo.db.table[qz.ID] = &qz
	return qz, nil
}

func (repo *quizRepository) GetQuizByID(_ context.Context, id int) (quiz.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if qz, ok := repo.db.table[id]; ok {
		return *qz, nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) GetQuizByLessonID(_ context.Context, lessonID int) (quiz.Quiz, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, qz := range repo.db.table {
		if qz.LessonID == lessonID {
			return *qz, nil
		}
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) CreateResult(_ context.Context, res quiz.Result) (quiz.Result, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.resSeq++
	res.ID = repo.db.resSeq
	repo.db.results[res.ID] = &res
	return res, nil
}

func (repo *quizRepository) GetResult(_ context.Context, quizID, userID int) (quiz.Result, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, res := range repo.db.results {
		if res.QuizID == quizID && res.UserID == userID {
			return *res, nil
		}
	}
	return quiz.Result{}, quiz.ErrResultNotFound
}
