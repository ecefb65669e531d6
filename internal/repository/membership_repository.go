package repository

import (
	"errors"

	"github.com/scioarena/scioarena/internal/model"
	"gorm.io/gorm"
)

type MembershipRepository interface {
	FindByID(id uint) (*model.Membership, error)
	FindForUserInScope(userID uint, scopeKind model.ScopeKind, clubID, tournamentID *uint) (*model.Membership, error)
	FindAllForUser(userID uint) ([]model.Membership, error)
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) FindByID(id uint) (*model.Membership, error) {
	var membership model.Membership
	if err := r.db.First(&membership, id).Error; err != nil {
		return nil, err
	}
	return &membership, nil
}

// FindAllForUser loads every membership a user holds, across all scopes.
// Listing endpoints match tests against these in memory instead of issuing
// a scope query per test.
func (r *membershipRepository) FindAllForUser(userID uint) ([]model.Membership, error) {
	var memberships []model.Membership
	if err := r.db.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// FindForUserInScope resolves the membership a user holds in a test's owning
// scope. Returns nil when the user has none, which callers surface as
// not-found so out-of-scope tests do not leak existence.
func (r *membershipRepository) FindForUserInScope(userID uint, scopeKind model.ScopeKind, clubID, tournamentID *uint) (*model.Membership, error) {
	query := r.db.Where("user_id = ? AND scope_kind = ?", userID, scopeKind)
	switch scopeKind {
	case model.ScopeClub:
		if clubID == nil {
			return nil, nil
		}
		query = query.Where("club_id = ?", *clubID)
	case model.ScopeTournamentEvent:
		if tournamentID == nil {
			return nil, nil
		}
		query = query.Where("tournament_id = ?", *tournamentID)
	}

	var membership model.Membership
	err := query.First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &membership, nil
}
