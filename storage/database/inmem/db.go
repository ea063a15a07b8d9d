package inmemdb

import (
	"sync"

	"github.com/mrembo/urembo/core/lesson"
	"github.com/mrembo/urembo/core/quiz"
	"github.com/mrembo/urembo/core/user"
)

// DB is a map-backed store for development and tests.
type DB struct {
	user   *userTable
	lesson *lessonTable
	quiz   *quizTable
}

type (
	userTable struct {
		mutex sync.RWMutex
		seq   int
		table map[int]*user.User
	}

	lessonTable struct {
		mutex sync.RWMutex
		seq   int
		table map[int]*lesson.Lesson
	}

	quizTable struct {
		mutex   sync.RWMutex
		seq     int
		resSeq  int
		table   map[int]*quiz.Quiz
		results map[int]*quiz.Result
	}
)

func NewDB() *DB {
	return &DB{
		user:   &userTable{table: make(map[int]*user.User)},
		lesson: &lessonTable{table: make(map[int]*lesson.Lesson)},
		quiz:   &quizTable{table: make(map[int]*quiz.Quiz), results: make(map[int]*quiz.Result)},
	}
}
