package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core/quiz"
)

// GetQuiz fetches the lesson's quiz and parses the question payload at
// the boundary; malformed payloads fail with a *quiz.ParseError instead
// of leaking downstream.
func (c *Client) GetQuiz(ctx context.Context, lessonID int) (quiz.Quiz, error) {
	var qz quiz.Quiz
	if err := c.getJSON(ctx, fmt.Sprintf("/api/quiz/get_quiz/%d", lessonID), &qz); err != nil {
		return quiz.Quiz{}, err
	}
	if _, err := qz.Document(); err != nil {
		return quiz.Quiz{}, err
	}
	return qz, nil
}

// GetQuizResult fetches the caller's recorded result for the quiz.
// A missing result maps to quiz.ErrResultNotFound.
func (c *Client) GetQuizResult(ctx context.Context, quizID int) (quiz.Result, error) {
	var res quiz.Result
	if err := c.getJSON(ctx, fmt.Sprintf("/api/quiz/quiz_results/%d", quizID), &res); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return quiz.Result{}, quiz.ErrResultNotFound
		}
		return quiz.Result{}, err
	}
	return res, nil
}

// SubmitQuiz posts a finished attempt; Client satisfies quiz.Submitter so
// sessions can submit straight through it.
func (c *Client) SubmitQuiz(ctx context.Context, sub quiz.Submission) error {
	return c.postJSON(ctx, "/api/quiz/submit_quiz", sub, nil)
}

var _ quiz.Submitter = (*Client)(nil)

// CreateQuiz authors a quiz for a lesson (admin only).
func (c *Client) CreateQuiz(ctx context.Context, nq quiz.NewQuiz) (quiz.Quiz, error) {
	var qz quiz.Quiz
	if err := c.postJSON(ctx, "/api/quiz/create_quiz", nq, &qz); err != nil {
		return quiz.Quiz{}, err
	}
	return qz, nil
}

// OpenQuizSession fetches the lesson's quiz and prepares a local session
// for it. A quiz the caller already completed cannot be reopened.
func (c *Client) OpenQuizSession(ctx context.Context, lessonID int) (*quiz.Session, error) {
	qz, err := c.GetQuiz(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	if _, err = c.GetQuizResult(ctx, qz.ID); err == nil {
		return nil, quiz.ErrAlreadyCompleted
	} else if errors.Cause(err) != quiz.ErrResultNotFound {
		return nil, err
	}

	return quiz.NewSession(qz, c)
}
