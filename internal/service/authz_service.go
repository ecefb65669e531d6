package service

import (
	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/internal/model"
	"github.com/scioarena/scioarena/internal/repository"
)

// Action is a capability the engine checks before an operation.
type Action string

const (
	ActionTakeTest          Action = "take_test"
	ActionViewResults       Action = "view_results"
	ActionManageTest        Action = "manage_test"
	ActionViewAllAttempts   Action = "view_all_attempts"
	ActionRequestSuggestion Action = "request_suggestion"
)

// Actor is the resolved identity the engine authorizes against: a user id
// plus the membership they hold in the resource's scope (nil when none).
type Actor struct {
	UserID     uint
	Membership *model.Membership
}

func (a *Actor) IsPrivileged() bool {
	return a.Membership != nil && a.Membership.IsPrivileged()
}

// ActorSet holds a user's memberships loaded in one query, so that
// catalog-sized listings can resolve the actor per test in memory.
type ActorSet struct {
	UserID      uint
	Memberships []model.Membership
}

// For returns the actor for one test, matching the membership in the test's
// owning scope. Same semantics as ResolveActor, without the query.
func (s *ActorSet) For(test *model.Test) *Actor {
	for i := range s.Memberships {
		m := &s.Memberships[i]
		if m.ScopeKind != test.ScopeKind {
			continue
		}
		switch test.ScopeKind {
		case model.ScopeClub:
			if test.ClubID != nil && m.ClubID != nil && *m.ClubID == *test.ClubID {
				return &Actor{UserID: s.UserID, Membership: m}
			}
		case model.ScopeTournamentEvent:
			if test.TournamentID != nil && m.TournamentID != nil && *m.TournamentID == *test.TournamentID {
				return &Actor{UserID: s.UserID, Membership: m}
			}
		}
	}
	return &Actor{UserID: s.UserID}
}

// AuthzService is the single capability check every engine operation goes
// through, replacing per-route inline role queries.
type AuthzService interface {
	// ResolveActor finds the membership the user holds in the test's owning
	// scope. Membership == nil means the test should read as not-found to
	// this user, hiding its existence.
	ResolveActor(userID uint, test *model.Test) (*Actor, error)
	// ResolveActorSet loads all of the user's memberships at once for
	// matching many tests without a per-test query.
	ResolveActorSet(userID uint) (*ActorSet, error)
	Can(actor *Actor, action Action, test *model.Test) bool
}

type authzService struct {
	membershipRepo repository.MembershipRepository
}

func NewAuthzService(membershipRepo repository.MembershipRepository) AuthzService {
	return &authzService{membershipRepo: membershipRepo}
}

func (s *authzService) ResolveActor(userID uint, test *model.Test) (*Actor, error) {
	membership, err := s.membershipRepo.FindForUserInScope(userID, test.ScopeKind, test.ClubID, test.TournamentID)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Uint("testID", test.ID).Msg("Failed to resolve membership for scope")
		return nil, err
	}
	return &Actor{UserID: userID, Membership: membership}, nil
}

func (s *authzService) ResolveActorSet(userID uint) (*ActorSet, error) {
	memberships, err := s.membershipRepo.FindAllForUser(userID)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("Failed to load memberships for user")
		return nil, err
	}
	return &ActorSet{UserID: userID, Memberships: memberships}, nil
}

func (s *authzService) Can(actor *Actor, action Action, test *model.Test) bool {
	if actor == nil || actor.Membership == nil {
		return false
	}

	switch action {
	case ActionManageTest, ActionViewAllAttempts, ActionRequestSuggestion:
		return actor.IsPrivileged()
	case ActionTakeTest, ActionViewResults:
		// Tournament-event tests additionally require an event-roster
		// assignment; admins and directors bypass the assignment check.
		if test.ScopeKind == model.ScopeTournamentEvent && test.EventID != nil && !actor.IsPrivileged() {
			return actor.Membership.AssignedToEvent(*test.EventID)
		}
		return true
	}
	return false
}
