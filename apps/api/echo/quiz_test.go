package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrembo/urembo/core/quiz"
	"github.com/mrembo/urembo/core/user"
)

const (
	testQuizJSON = `{'questions': [` +
		`{'question_id': 1, 'type': 'single_choice', 'question': 'Q1', 'answers': ['A', 'B']}, ` +
		`{'question_id': 2, 'type': 'multiple_choice', 'question': 'Q2', 'answers': ['X', 'Y', 'Z']}]}`
	testQuizKey = `{'answers': [` +
		`{'question_id': 1, 'answer': ['A']}, ` +
		`{'question_id': 2, 'answer': ['X', 'Z']}]}`
)

func createQuiz(t *testing.T, svc quiz.Service, lessonID int) quiz.Quiz {
	t.Helper()
	qz, err := svc.Create(context.Background(), quiz.NewQuiz{
		Name:        "Nail Prep",
		LessonID:    lessonID,
		QuizJSON:    testQuizJSON,
		QuizAnswers: testQuizKey,
		Duration:    5,
	})
	require.NoError(t, err)
	return qz
}

func TestQuizCreate(t *testing.T) {
	env := setup(t)
	admin := createUser(t, env.usrSvc, "admin@test.cm", user.RoleAdmin)
	usr := createUser(t, env.usrSvc, "jane@test.cm", user.RoleUser)
	les := createLesson(t, env.lessonSvc, "Facial Massage")

	newQuizBody := func(lessonID int, quizJSON string) []byte {
		return marshallObj(t, quiz.NewQuiz{
			Name:        "Nail Prep",
			LessonID:    lessonID,
			QuizJSON:    quizJSON,
			QuizAnswers: testQuizKey,
			Duration:    5,
		})
	}

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/quiz/create_quiz", getToken(t, admin), newQuizBody(les.ID, testQuizJSON))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var qz quiz.Quiz
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qz))
		assert.Equal(t, les.ID, qz.LessonID)
		assert.Equal(t, 5, qz.Duration)
	})

	tests := []httpTest{
		{
			name:     "standard user forbidden",
			body:     newQuizBody(les.ID, testQuizJSON),
			token:    getToken(t, usr),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Detail: "permission denied"}),
		},
		{
			name:     "lesson already has a quiz",
			body:     newQuizBody(les.ID, testQuizJSON),
			token:    getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"detail": {"lesson_id": "this lesson already has a quiz"}}`),
		},
		{
			name:     "malformed questions payload",
			body:     newQuizBody(les.ID + 1, "{'questions': ["),
			token:    getToken(t, admin),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/quiz/create_quiz", tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			if tt.wantData == nil {
				assert.Equal(t, tt.wantCode, rec.Code)
				assert.Contains(t, rec.Body.String(), "quiz_json")
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestQuizGetByLesson(t *testing.T) {
	env := setup(t)
	admin := createUser(t, env.usrSvc, "admin@test.cm", user.RoleAdmin)
	usr := createUser(t, env.usrSvc, "jane@test.cm", user.RoleUser)
	les := createLesson(t, env.lessonSvc, "Facial Massage")
	createQuiz(t, env.quizSvc, les.ID)

	t.Run("standard user gets no answer key", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/api/quiz/get_quiz/%d", les.ID), getToken(t, usr))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var qz quiz.Quiz
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qz))
		assert.NotEmpty(t, qz.QuizJSON)
		assert.Empty(t, qz.QuizAnswers)
	})

	t.Run("admin gets the answer key", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/api/quiz/get_quiz/%d", les.ID), getToken(t, admin))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var qz quiz.Quiz
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qz))
		assert.NotEmpty(t, qz.QuizAnswers)
	})

	t.Run("lesson without a quiz", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/quiz/get_quiz/9999", getToken(t, usr))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Detail: "not found"}),
		}, rec)
	})
}

func TestQuizSubmit(t *testing.T) {
	env := setup(t)
	usr := createUser(t, env.usrSvc, "jane@test.cm", user.RoleUser)
	other := createUser(t, env.usrSvc, "awa@test.cm", user.RoleUser)
	les := createLesson(t, env.lessonSvc, "Facial Massage")
	qz := createQuiz(t, env.quizSvc, les.ID)

	now := time.Now().UTC().Truncate(time.Second)
	submission := func(answers []quiz.SubmittedAnswer) []byte {
		return marshallObj(t, quiz.Submission{
			QuizID:           qz.ID,
			StartTime:        now.Add(-2 * time.Minute),
			EndTime:          now,
			SubmittedAnswers: quiz.SubmittedAnswers{Answers: answers},
		})
	}

	t.Run("ok", func(t *testing.T) {
		body := submission([]quiz.SubmittedAnswer{
			{QuestionID: 1, Answer: []string{"A"}},
			{QuestionID: 2, Answer: []string{"Z", "X"}},
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/quiz/submit_quiz", getToken(t, usr), body)
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res quiz.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, 100, res.Score)
		assert.Equal(t, qz.ID, res.QuizID)
		assert.Equal(t, usr.ID, res.UserID)

		// the recorded result is retrievable
		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/api/quiz/quiz_results/%d", qz.ID), getToken(t, usr))
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var fetched quiz.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
		assert.Equal(t, res.ID, fetched.ID)
		assert.Equal(t, 100, fetched.Score)
	})

	t.Run("retake rejected", func(t *testing.T) {
		body := submission([]quiz.SubmittedAnswer{
			{QuestionID: 1, Answer: []string{"B"}},
			{QuestionID: 2, Answer: []string{"Y"}},
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/quiz/submit_quiz", getToken(t, usr), body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Detail: "quiz was already completed"}),
		}, rec)
	})

	t.Run("wrong answers score zero", func(t *testing.T) {
		body := submission([]quiz.SubmittedAnswer{
			{QuestionID: 1, Answer: []string{"B"}},
			{QuestionID: 2, Answer: []string{"Y"}},
		})
		req, rec := newAuthRequest(http.MethodPost, "/api/quiz/submit_quiz", getToken(t, other), body)
		env.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res quiz.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, 0, res.Score)
	})

	t.Run("unknown quiz", func(t *testing.T) {
		body := marshallObj(t, quiz.Submission{QuizID: 9999, StartTime: now, EndTime: now})
		req, rec := newAuthRequest(http.MethodPost, "/api/quiz/submit_quiz", getToken(t, other), body)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Detail: "not found"}),
		}, rec)
	})

	t.Run("no result yet", func(t *testing.T) {
		fresh := createUser(t, env.usrSvc, "new@test.cm", user.RoleUser)
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/api/quiz/quiz_results/%d", qz.ID), getToken(t, fresh))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Detail: "not found"}),
		}, rec)
	})
}
