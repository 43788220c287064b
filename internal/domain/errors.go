package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz definition could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question ID is not part of the definition.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNotStarted is returned for operations that need an in-progress attempt.
	ErrNotStarted = errors.New("quiz not started")
	// ErrNoActiveQuestion is returned when the cursor is past the last question.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrSnapshotNotFound indicates no persisted attempt exists for a quiz.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
