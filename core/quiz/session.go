package quiz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
)

// Session states
type State int

const (
	Idle State = iota
	InProgress
	Submitting
	Submitted
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InProgress:
		return "in progress"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrSessionNotOpen  = errors.New("quiz session is not in progress")
	ErrSessionOpened   = errors.New("quiz session was already opened")
	ErrUnknownQuestion = errors.New("unknown question")
	errInvalidAnswers  = errors.New("invalid answers")

	// NowFunc is overridable for tests
	NowFunc = func() time.Time { return time.Now().UTC() }

	tickInterval = time.Second
)

// Submitter hands a finished attempt over for grading.
type Submitter interface {
	SubmitQuiz(ctx context.Context, sub Submission) error
}

// Session drives a single quiz attempt from open to graded submission.
// A timed session counts down once per second and submits itself when
// the countdown reaches zero; the tick and a manual Submit are mutually
// exclusive so at most one submission ever reaches the Submitter.
type Session struct {
	quiz      Quiz
	doc       Document
	submitter Submitter

	mu        sync.Mutex
	state     State
	startTime time.Time
	remaining int           // seconds; only meaningful when quiz.Duration > 0
	answers   map[int][]int // question ID -> selected values (1-based)
	done      chan struct{}
	err       error // last submission failure
}

// NewSession parses the quiz document and prepares an Idle session.
func NewSession(qz Quiz, submitter Submitter) (*Session, error) {
	doc, err := qz.Document()
	if err != nil {
		return nil, err
	}
	return &Session{
		quiz:      qz,
		doc:       doc,
		submitter: submitter,
		answers:   make(map[int][]int),
	}, nil
}

// Open records the start timestamp and, for a timed quiz, starts the
// countdown. ctx bounds the countdown and any submission it triggers.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return ErrSessionOpened
	}
	s.startTime = NowFunc()
	s.remaining = s.quiz.Duration * 60
	s.state = InProgress

	if s.quiz.Duration > 0 {
		s.done = make(chan struct{})
		go s.countdown(ctx, s.done)
	}
	return nil
}

func (s *Session) countdown(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if !s.tick(ctx) {
				return
			}
		}
	}
}

// tick decrements the countdown and fires the automatic submission on
// expiry. It reports whether the countdown should keep running.
func (s *Session) tick(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != InProgress || s.remaining <= 0 {
		return false
	}
	s.remaining--
	if s.remaining > 0 {
		return true
	}

	// time is up: submit whatever answers exist. An attempt that does
	// not validate is not sent anywhere; the session closes with the
	// failures retained on Err.
	if fails := s.validateLocked(); len(fails) > 0 {
		s.err = newValidationErr(fails)
		s.state = Closed
		return false
	}
	s.state = Submitting
	sub := s.buildSubmissionLocked()
	if err := s.submitter.SubmitQuiz(ctx, sub); err != nil {
		s.err = errors.Wrap(err, "submitting quiz")
		s.state = Closed
		return false
	}
	s.answers = make(map[int][]int)
	s.state = Submitted
	return false
}

// SelectSingleChoice replaces any existing answer for the question with
// the single value optionIndex + 1. Last call wins.
func (s *Session) SelectSingleChoice(questionID, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != InProgress {
		return ErrSessionNotOpen
	}
	if questionID < 1 || questionID > len(s.doc.Questions) {
		return ErrUnknownQuestion
	}
	s.answers[questionID] = []int{optionIndex + 1}
	return nil
}

// ToggleMultipleChoice adds or removes optionIndex + 1 from the
// question's selected set. Unchecking the last value leaves an empty
// (invalid) answer recorded; unchecking with no prior answer is a no-op.
func (s *Session) ToggleMultipleChoice(questionID, optionIndex int, checked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != InProgress {
		return ErrSessionNotOpen
	}
	if questionID < 1 || questionID > len(s.doc.Questions) {
		return ErrUnknownQuestion
	}

	value := optionIndex + 1
	vals, ok := s.answers[questionID]
	if checked {
		for _, v := range vals {
			if v == value {
				return nil
			}
		}
		s.answers[questionID] = append(vals, value)
		return nil
	}
	if !ok {
		return nil
	}
	kept := vals[:0]
	for _, v := range vals {
		if v != value {
			kept = append(kept, v)
		}
	}
	s.answers[questionID] = kept
	return nil
}

// Validate returns every failure that would block submission.
func (s *Session) Validate() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Session) validateLocked() []string {
	var fails []string
	for _, q := range s.doc.Questions {
		vals, ok := s.answers[q.ID]
		if !ok {
			fails = append(fails, fmt.Sprintf("unanswered question %d", q.ID))
			continue
		}
		switch q.Kind {
		case KindSingleChoice:
			if len(vals) != 1 {
				fails = append(fails, fmt.Sprintf("question %d requires exactly one answer", q.ID))
				continue
			}
		case KindMultipleChoice:
			if len(vals) == 0 {
				fails = append(fails, fmt.Sprintf("question %d has no options selected", q.ID))
				continue
			}
		}
		for _, v := range vals {
			if v < 1 || v > len(q.Answers) {
				fails = append(fails, fmt.Sprintf("question %d answer %d is out of range", q.ID, v))
			}
		}
	}
	return fails
}

func newValidationErr(fails []string) error {
	flds := make([]core.FieldError, 0, len(fails))
	for _, f := range fails {
		flds = append(flds, core.FieldError{Field: "answers", Error: f})
	}
	return core.NewValidationError(errInvalidAnswers, flds...)
}

// Submit validates the attempt and hands it over for grading. On a
// backend failure the session rolls back to InProgress with the
// countdown still running and the answers intact.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != InProgress {
		return ErrSessionNotOpen
	}
	if fails := s.validateLocked(); len(fails) > 0 {
		return newValidationErr(fails)
	}

	s.state = Submitting
	sub := s.buildSubmissionLocked()
	if err := s.submitter.SubmitQuiz(ctx, sub); err != nil {
		s.state = InProgress
		s.err = errors.Wrap(err, "submitting quiz")
		return s.err
	}
	s.answers = make(map[int][]int)
	s.state = Submitted
	s.stopCountdownLocked()
	return nil
}

// buildSubmissionLocked converts selected values to option texts.
func (s *Session) buildSubmissionLocked() Submission {
	answers := make([]SubmittedAnswer, 0, len(s.doc.Questions))
	for _, q := range s.doc.Questions {
		vals := append([]int(nil), s.answers[q.ID]...)
		sort.Ints(vals)
		texts := make([]string, 0, len(vals))
		for _, v := range vals {
			texts = append(texts, q.Answers[v-1])
		}
		answers = append(answers, SubmittedAnswer{QuestionID: q.ID, Answer: texts})
	}
	return Submission{
		QuizID:           s.quiz.ID,
		StartTime:        s.startTime,
		EndTime:          NowFunc(),
		SubmittedAnswers: SubmittedAnswers{Answers: answers},
	}
}

func (s *Session) stopCountdownLocked() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

// Close cancels the countdown and seals the session.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCountdownLocked()
	s.state = Closed
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remaining returns the countdown's remaining seconds.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Err returns the last submission failure, if any. An expired timed
// session that failed validation or grading retains its failure here.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Questions returns the parsed questions, in order.
func (s *Session) Questions() []Question {
	return s.doc.Questions
}
