package models

// EntityKind names one of the three owned entity types.
type EntityKind string

const (
	KindGroup   EntityKind = "group"
	KindPost    EntityKind = "post"
	KindComment EntityKind = "comment"
)

// Target addresses a single group, post or comment.
type Target struct {
	Kind EntityKind
	ID   string
}

func GroupTarget(id string) Target   { return Target{Kind: KindGroup, ID: id} }
func PostTarget(id string) Target    { return Target{Kind: KindPost, ID: id} }
func CommentTarget(id string) Target { return Target{Kind: KindComment, ID: id} }

func (t Target) String() string {
	return string(t.Kind) + ":" + t.ID
}

// Likeable reports whether likes can be recorded on the target.
func (t Target) Likeable() bool {
	return t.Kind == KindPost || t.Kind == KindComment
}
