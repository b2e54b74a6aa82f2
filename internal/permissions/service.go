package permissions

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Directory is the external membership collaborator. It owns membership
// lifecycle and role assignment; the engine only reads from it.
type Directory interface {
	// ProjectMembers lists the project's memberships in presentation
	// order. Returns ErrProjectNotFound for unknown projects.
	ProjectMembers(ctx context.Context, projectID int64) ([]Membership, error)
	// Member fetches a single membership. Returns ErrMemberNotFound when
	// the member does not belong to the project.
	Member(ctx context.Context, projectID, memberID int64) (Membership, error)
}

// Service is the engine boundary: reads (single member, matrix) and the
// transactional replace-overrides write.
type Service struct {
	registry  *Registry
	resolver  *Resolver
	store     OverrideStore
	directory Directory
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the engine from injected configuration and
// collaborators. Registry and role defaults are constructed once at
// process start and passed in; they are never ambient globals.
func NewService(registry *Registry, defaults *RoleDefaults, store OverrideStore, directory Directory, publisher EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry:  registry,
		resolver:  NewResolver(registry, defaults, logger),
		store:     store,
		directory: directory,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// GetMemberPermissions resolves one member's effective set together with
// the explicit overrides behind it.
func (s *Service) GetMemberPermissions(ctx context.Context, projectID, memberID int64) (MemberPermissions, error) {
	member, err := s.directory.Member(ctx, projectID, memberID)
	if err != nil {
		return MemberPermissions{}, err
	}
	overrides, err := s.store.LoadOverrides(ctx, projectID, memberID)
	if err != nil {
		return MemberPermissions{}, err
	}
	return MemberPermissions{
		MemberID:  member.MemberID,
		Role:      member.Role,
		Effective: s.resolver.Resolve(member.Role, overrides),
		Overrides: overrides,
	}, nil
}

// GetMatrix builds the full project matrix. The member list and the
// project-wide override map are fetched concurrently, with exactly one
// override query regardless of member count. Rows follow the directory's
// member ordering; columns follow registry order. A project with zero
// members yields an empty slice, not an error.
func (s *Service) GetMatrix(ctx context.Context, projectID int64) ([]MatrixRow, error) {
	var (
		members   []Membership
		overrides map[int64]map[Kind]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.directory.ProjectMembers(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = s.store.LoadProjectOverrides(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]MatrixRow, 0, len(members))
	for _, member := range members {
		rows = append(rows, MatrixRow{
			MemberID:    member.MemberID,
			DisplayName: member.DisplayName,
			Role:        member.Role,
			Effective:   s.resolver.Resolve(member.Role, overrides[member.MemberID]),
		})
	}
	return rows, nil
}

// SetMemberOverrides validates and atomically replaces the member's whole
// override set, then publishes the change event and returns the freshly
// resolved effective set so callers can render without a second read.
func (s *Service) SetMemberOverrides(ctx context.Context, projectID, memberID int64, entries []OverrideEntry, actor int64) ([]Kind, error) {
	set := make(map[Kind]bool, len(entries))
	for _, entry := range entries {
		if !s.registry.Contains(entry.Permission) {
			return nil, UnknownKindError{Kind: entry.Permission}
		}
		set[entry.Permission] = entry.Granted
	}

	member, err := s.directory.Member(ctx, projectID, memberID)
	if err != nil {
		return nil, err
	}

	previous, err := s.store.LoadOverrides(ctx, projectID, memberID)
	if err != nil {
		return nil, err
	}

	if err := s.store.ReplaceOverrides(ctx, projectID, memberID, set, actor); err != nil {
		return nil, err
	}

	// The write is committed; a publish failure must not fail the request.
	if s.publisher != nil {
		evt := OverrideChangedEvent{
			ID:         uuid.NewString(),
			ProjectID:  projectID,
			MemberID:   memberID,
			Actor:      actor,
			Previous:   previous,
			New:        set,
			OccurredAt: s.now().UTC(),
		}
		if err := s.publisher.PublishOverrideChanged(ctx, evt); err != nil {
			s.logger.Error("publish override change",
				slog.Int64("project_id", projectID),
				slog.Int64("member_id", memberID),
				slog.Any("error", err))
		}
	}

	return s.resolver.Resolve(member.Role, set), nil
}
