package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("registro no encontrado")

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindAmbiguous  ErrorKind = "ambiguous"
)

type Problem struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// ErrorList accumulates problems found while validating a request.
// Batch inputs report every problem at once instead of failing on the first.
type ErrorList struct {
	Problems []Problem `json:"errors"`
}

func (l *ErrorList) Add(kind ErrorKind, format string, args ...interface{}) {
	l.Problems = append(l.Problems, Problem{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

func (l *ErrorList) Has() bool {
	return len(l.Problems) > 0
}

// Err returns nil when no problem was recorded.
func (l *ErrorList) Err() error {
	if !l.Has() {
		return nil
	}
	return l
}

func (l *ErrorList) Error() string {
	msgs := make([]string, 0, len(l.Problems))
	for _, p := range l.Problems {
		msgs = append(msgs, p.Message)
	}
	return strings.Join(msgs, "; ")
}

func (l *ErrorList) Messages() []string {
	msgs := make([]string, 0, len(l.Problems))
	for _, p := range l.Problems {
		msgs = append(msgs, p.Message)
	}
	return msgs
}

// Kind reports the dominant kind of the list. Not-found and conflict win over
// plain validation so callers can pick a status code.
func (l *ErrorList) Kind() ErrorKind {
	kind := KindValidation
	for _, p := range l.Problems {
		switch p.Kind {
		case KindNotFound:
			if kind == KindValidation {
				kind = KindNotFound
			}
		case KindConflict, KindAmbiguous:
			return p.Kind
		}
	}
	return kind
}

// Fail builds a single-problem error.
func Fail(kind ErrorKind, format string, args ...interface{}) error {
	l := &ErrorList{}
	l.Add(kind, format, args...)
	return l
}

// AsErrorList unwraps err into an ErrorList when it is one.
func AsErrorList(err error) (*ErrorList, bool) {
	var l *ErrorList
	if errors.As(err, &l) {
		return l, true
	}
	return nil, false
}
