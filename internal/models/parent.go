package models

import (
	"errors"
	"fmt"
)

// ParentKind discriminates what a comment hangs off.
type ParentKind string

const (
	ParentPost    ParentKind = "ParentPost"
	ParentComment ParentKind = "ParentComment"
)

// ErrInvalidParent is returned when a parent reference cannot be built.
var ErrInvalidParent = errors.New("invalid parent reference")

// Parent is either a post or a comment. The zero value is invalid; build one
// with PostParent, CommentParent or ParseParent.
type Parent struct {
	kind ParentKind
	id   string
}

// PostParent refers to a post.
func PostParent(postID string) Parent {
	return Parent{kind: ParentPost, id: postID}
}

// CommentParent refers to a comment.
func CommentParent(commentID string) Parent {
	return Parent{kind: ParentComment, id: commentID}
}

// ParseParent builds a Parent from its stored representation.
func ParseParent(kind, id string) (Parent, error) {
	if id == "" {
		return Parent{}, fmt.Errorf("%w: empty id", ErrInvalidParent)
	}
	switch ParentKind(kind) {
	case ParentPost:
		return PostParent(id), nil
	case ParentComment:
		return CommentParent(id), nil
	default:
		return Parent{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidParent, kind)
	}
}

func (p Parent) Kind() ParentKind { return p.kind }
func (p Parent) ID() string       { return p.id }

// Valid reports whether p was built by one of the constructors.
func (p Parent) Valid() bool {
	return p.id != "" && (p.kind == ParentPost || p.kind == ParentComment)
}

func (p Parent) String() string {
	return string(p.kind) + ":" + p.id
}

// Target returns the entity the parent points at.
func (p Parent) Target() Target {
	if p.kind == ParentComment {
		return Target{Kind: KindComment, ID: p.id}
	}
	return Target{Kind: KindPost, ID: p.id}
}
