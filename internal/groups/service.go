package groups

import (
	"context"

	"github.com/google/uuid"
)

// Service wraps group CRUD. Ownership enforcement lives in the
// repository queries; the service just shapes the calls.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new empty group for the user.
func (s *Service) Create(ctx context.Context, userID, name string) (Group, error) {
	group := Group{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		GuildIDs: []string{},
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return Group{}, err
	}
	return group, nil
}

// Get returns one of the user's groups with its members.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (Group, error) {
	return s.repo.Get(ctx, userID, id)
}

// List returns all of the user's groups.
func (s *Service) List(ctx context.Context, userID string) ([]Group, error) {
	return s.repo.List(ctx, userID)
}

// Rename changes a group's name.
func (s *Service) Rename(ctx context.Context, userID string, id uuid.UUID, name string) error {
	return s.repo.Rename(ctx, userID, id, name)
}

// Delete removes a group and its memberships.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

// AddGuild puts a guild into a group. Adding a guild that is already a
// member is a no-op.
func (s *Service) AddGuild(ctx context.Context, userID string, id uuid.UUID, guildID string) error {
	return s.repo.AddMember(ctx, userID, id, guildID)
}

// RemoveGuild takes a guild out of a group.
func (s *Service) RemoveGuild(ctx context.Context, userID string, id uuid.UUID, guildID string) error {
	return s.repo.RemoveMember(ctx, userID, id, guildID)
}
