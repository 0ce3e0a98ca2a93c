// Package access decides whether a caller may run a git transport
// operation against a repository. The decision is a pure function over
// repository metadata; both transports (SSH and smart HTTP) share it.
package access

import (
	"context"

	"github.com/huntiep/valentine/internal/db"
	"github.com/huntiep/valentine/internal/gitcmd"
)

// Identity is a resolved caller. The zero UserID never occurs for a real
// user; absence of identity is modeled as a nil *Identity.
type Identity struct {
	UserID   int64
	Username string
}

// Store is the subset of database lookups the decision engine needs.
type Store interface {
	UserExists(ctx context.Context, username string) (bool, error)
	GetRepo(ctx context.Context, username, name string) (*db.Repo, bool, error)
	GetUserByKeyID(ctx context.Context, keyID int64) (*db.User, bool, error)
}

// Authorizer answers whether an identity may access a repository beyond
// public reads. Ownership equality is the only implementation today; the
// interface exists so a real ACL lookup can replace it without touching
// the pipeline.
type Authorizer interface {
	Authorize(ctx context.Context, id Identity, repo *db.Repo) (bool, error)
}

// OwnerAuthorizer grants access to the repository owner only.
type OwnerAuthorizer struct{}

func (OwnerAuthorizer) Authorize(_ context.Context, id Identity, repo *db.Repo) (bool, error) {
	return id.UserID == repo.Owner, nil
}

// Reason classifies a decision for server-side logs. Clients only ever
// see the unified denial message, so a denial never reveals whether the
// owner or repository exists.
type Reason int

const (
	ReasonAllowed Reason = iota
	ReasonOwnerMissing
	ReasonRepoMissing
	ReasonNoIdentity
	ReasonNotAuthorized
)

func (r Reason) String() string {
	switch r {
	case ReasonAllowed:
		return "allowed"
	case ReasonOwnerMissing:
		return "owner missing"
	case ReasonRepoMissing:
		return "repo missing"
	case ReasonNoIdentity:
		return "no identity"
	case ReasonNotAuthorized:
		return "not authorized"
	default:
		return "unknown"
	}
}

// DeniedMessage is the single user-visible denial text, shared across
// all denial reasons.
const DeniedMessage = "Repository does not exist or you do not have access"

// Decision is the outcome of an access check. Repo is set only on Allow.
type Decision struct {
	Allowed bool
	Reason  Reason
	Repo    *db.Repo
}

// Decider evaluates access decisions against a Store.
type Decider struct {
	Store Store
	Auth  Authorizer
}

// NewDecider wires the default owner-equality authorizer.
func NewDecider(store Store) *Decider {
	return &Decider{Store: store, Auth: OwnerAuthorizer{}}
}

// Decide applies the access algorithm, short-circuiting in order:
// owner exists, repo exists, then identity + authorization for writes and
// private reads. Public reads need no identity. A returned error is a
// storage failure, reported to the client as an internal error only.
func (d *Decider) Decide(ctx context.Context, id *Identity, owner, repo string, mode gitcmd.AccessMode) (Decision, error) {
	ok, err := d.Store.UserExists(ctx, owner)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{Reason: ReasonOwnerMissing}, nil
	}

	r, ok, err := d.Store.GetRepo(ctx, owner, repo)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return Decision{Reason: ReasonRepoMissing}, nil
	}

	if mode == gitcmd.Write || r.Private {
		if id == nil {
			return Decision{Reason: ReasonNoIdentity}, nil
		}
		allowed, err := d.Auth.Authorize(ctx, *id, r)
		if err != nil {
			return Decision{}, err
		}
		if !allowed {
			return Decision{Reason: ReasonNotAuthorized}, nil
		}
	}

	return Decision{Allowed: true, Reason: ReasonAllowed, Repo: r}, nil
}

// ResolveKeyID maps an SSH key row id to the owning user's identity.
// A miss yields (nil, nil): no identity, not an error.
func ResolveKeyID(ctx context.Context, store Store, keyID int64) (*Identity, error) {
	u, ok, err := store.GetUserByKeyID(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Identity{UserID: u.ID, Username: u.Username}, nil
}
