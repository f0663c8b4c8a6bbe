package editor

import "errors"

var (
	// ErrDisposed is returned by mutating calls on a disposed editor.
	ErrDisposed = errors.New("editor: disposed")

	// ErrUnknownCommand is returned by Trigger for unsupported commands.
	ErrUnknownCommand = errors.New("editor: unknown command")

	// ErrBadPayload is returned by Trigger when a payload has the wrong shape.
	ErrBadPayload = errors.New("editor: bad command payload")

	// ErrInvalidPosition is returned for positions outside the model.
	ErrInvalidPosition = errors.New("editor: invalid position")

	// ErrOverlappingEdits is returned when a batch of edits overlaps.
	ErrOverlappingEdits = errors.New("editor: overlapping edits")
)
