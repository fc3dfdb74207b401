// Package registration implements the registration transaction coordinator:
// it validates a candidate role/sub-event selection against the current
// catalog, computes the fee and drives the atomic persistence of the change.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkalvoda/seminar-registration/internal/catalog"
	"github.com/mkalvoda/seminar-registration/internal/lib/sl"
	"github.com/mkalvoda/seminar-registration/internal/metrics"
	"github.com/mkalvoda/seminar-registration/internal/models"
	"github.com/mkalvoda/seminar-registration/internal/services/eligibility"
	"github.com/mkalvoda/seminar-registration/internal/services/fee"
)

var (
	// ErrUnknownItem is returned when a selected role or sub-event ID does
	// not exist in the catalog visible to the user.
	ErrUnknownItem = errors.New("unknown role or subevent")
	// ErrNoExplicitSubevents is returned for an add-subevents request when
	// the seminar runs without explicit sub-events.
	ErrNoExplicitSubevents = errors.New("seminar has no explicit subevents")
	// ErrNotOwner is returned when the edited application belongs to
	// a different user.
	ErrNotOwner = errors.New("application belongs to another user")
	// ErrApplicationCancelled is returned when the edited application has
	// been cancelled.
	ErrApplicationCancelled = errors.New("application is cancelled")
)

// Repository defines the storage operations the coordinator needs.
type Repository interface {
	// GetUserByUsername returns the user with their current role and
	// sub-event IDs.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// ListRegisterableOrUserRoles returns roles that are open for
	// registration at now or already held by the user.
	ListRegisterableOrUserRoles(ctx context.Context, userUID string, now time.Time) ([]models.Role, error)
	// ListExplicitSubevents returns all explicit sub-events with occupancy.
	ListExplicitSubevents(ctx context.Context) ([]models.Subevent, error)
	// ListApplicationsByUser returns the user's applications.
	ListApplicationsByUser(ctx context.Context, userUID string) ([]models.Application, error)
	// FindApplicationByID returns one application.
	FindApplicationByID(ctx context.Context, id int) (*models.Application, error)
	// CreateApplication inserts a new application with a transactional
	// capacity recheck for newSubeventIDs.
	CreateApplication(ctx context.Context, app *models.Application, newSubeventIDs []int, symbolPrefix string) (*models.Application, error)
	// UpdateRegistration applies an atomic edit of roles and sub-events.
	UpdateRegistration(ctx context.Context, params models.RegistrationUpdate) error
}

// Synchronizer re-derives state that depends on the user's roles and
// sub-events after a successful mutation.
type Synchronizer interface {
	// Resync recomputes the user's program enrollments.
	Resync(ctx context.Context, userUID string) error
}

// Sessions refreshes the cached roles of an authenticated session.
type Sessions interface {
	// RefreshRoles replaces the role set cached for the username.
	RefreshRoles(ctx context.Context, username string, roleIDs []int) error
}

// Notifier publishes registration change events for asynchronous consumers.
type Notifier interface {
	// RegistrationChanged announces a created or edited application.
	RegistrationChanged(ctx context.Context, event models.RegistrationEvent) error
}

// Service coordinates registration mutations.
type Service struct {
	repo         Repository
	sync         Synchronizer
	sessions     Sessions
	notifier     Notifier
	log          *slog.Logger
	maturityDays int
	symbolPrefix string
	now          func() time.Time
}

// New creates the coordinator. maturityDays sets the payment deadline
// relative to the application date, symbolPrefix prefixes generated variable
// symbols.
func New(repo Repository, sync Synchronizer, sessions Sessions, notifier Notifier,
	log *slog.Logger, maturityDays int, symbolPrefix string) *Service {
	return &Service{
		repo:         repo,
		sync:         sync,
		sessions:     sessions,
		notifier:     notifier,
		log:          log,
		maturityDays: maturityDays,
		symbolPrefix: symbolPrefix,
		now:          time.Now,
	}
}

// AddSubevents creates a new application adding the requested explicit
// sub-events to the user's registration. The new application never carries
// role fees; only the prices of the requested sub-events are charged.
func (s *Service) AddSubevents(ctx context.Context, username string, req models.DummyAddSubevents) (*models.Application, error) {
	const op = "registration.AddSubevents"

	app, err := s.addSubevents(ctx, username, req)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("add_subevents", resultLabel(err)).Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RegistrationsTotal.WithLabelValues("add_subevents", "ok").Inc()
	return app, nil
}

func (s *Service) addSubevents(ctx context.Context, username string, req models.DummyAddSubevents) (*models.Application, error) {
	now := s.now()

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	snap, err := s.loadCatalog(ctx, user.UID, now)
	if err != nil {
		return nil, err
	}
	if snap.CountExplicitSubevents() == 0 {
		return nil, ErrNoExplicitSubevents
	}

	requested := make([]models.Subevent, 0, len(req.SubeventIDs))
	for _, id := range req.SubeventIDs {
		subevent := snap.SubeventByID(id)
		if subevent == nil {
			return nil, fmt.Errorf("subevent %d: %w", id, ErrUnknownItem)
		}
		requested = append(requested, *subevent)
	}

	if err := eligibility.CheckSubeventCapacities(snap, req.SubeventIDs, user); err != nil {
		return nil, err
	}
	candidate := union(user.SubeventIDs, req.SubeventIDs)
	if err := eligibility.CheckSubevents(snap, candidate); err != nil {
		return nil, err
	}

	totalFee := fee.CountFee(nil, requested, false)
	maturity := now.AddDate(0, 0, s.maturityDays)
	state := models.ApplicationStateWaitingForPayment
	if totalFee == 0 {
		state = models.ApplicationStatePaid
	}

	app := &models.Application{
		UserUID:         user.UID,
		SubeventIDs:     req.SubeventIDs,
		Fee:             totalFee,
		ApplicationDate: now,
		MaturityDate:    &maturity,
		State:           state,
		First:           false,
	}
	created, err := s.repo.CreateApplication(ctx, app, subtract(req.SubeventIDs, user.SubeventIDs), s.symbolPrefix)
	if err != nil {
		return nil, err
	}

	if err := s.sync.Resync(ctx, user.UID); err != nil {
		return nil, err
	}
	s.publish(ctx, models.RegistrationEvent{
		Username:      username,
		Operation:     "add_subevents",
		ApplicationID: created.ID,
		Fee:           created.Fee,
		State:         created.State,
	})
	return created, nil
}

// EditRolesSubevents reassigns the user's roles and, when the seminar has
// explicit sub-events, the sub-events of the given application. The fee is
// recomputed over the full selection and the application state follows it.
func (s *Service) EditRolesSubevents(ctx context.Context, username string, applicationID int, req models.DummyEditApplication) (*models.Application, error) {
	const op = "registration.EditRolesSubevents"

	app, err := s.editRolesSubevents(ctx, username, applicationID, req)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("edit", resultLabel(err)).Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RegistrationsTotal.WithLabelValues("edit", "ok").Inc()
	return app, nil
}

func (s *Service) editRolesSubevents(ctx context.Context, username string, applicationID int, req models.DummyEditApplication) (*models.Application, error) {
	now := s.now()

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	app, err := s.repo.FindApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.UserUID != user.UID {
		return nil, ErrNotOwner
	}
	if app.State == models.ApplicationStateCancelled {
		return nil, ErrApplicationCancelled
	}

	snap, err := s.loadCatalog(ctx, user.UID, now)
	if err != nil {
		return nil, err
	}

	selectedRoles := make([]models.Role, 0, len(req.RoleIDs))
	for _, id := range req.RoleIDs {
		role := snap.RoleByID(id)
		if role == nil {
			return nil, fmt.Errorf("role %d: %w", id, ErrUnknownItem)
		}
		selectedRoles = append(selectedRoles, *role)
	}

	if err := eligibility.CheckRoleCapacities(snap, req.RoleIDs, user); err != nil {
		return nil, err
	}
	if err := eligibility.CheckRolesRegisterable(snap, req.RoleIDs, user, now); err != nil {
		return nil, err
	}
	if err := eligibility.CheckRoles(snap, req.RoleIDs); err != nil {
		return nil, err
	}

	hasExplicit := snap.CountExplicitSubevents() > 0
	var selectedSubevents []models.Subevent
	subeventIDs := app.SubeventIDs
	if hasExplicit {
		subeventIDs = req.SubeventIDs
		selectedSubevents = make([]models.Subevent, 0, len(req.SubeventIDs))
		for _, id := range req.SubeventIDs {
			subevent := snap.SubeventByID(id)
			if subevent == nil {
				return nil, fmt.Errorf("subevent %d: %w", id, ErrUnknownItem)
			}
			selectedSubevents = append(selectedSubevents, *subevent)
		}
		if err := eligibility.CheckSubeventCapacities(snap, req.SubeventIDs, user); err != nil {
			return nil, err
		}
		if err := eligibility.CheckSubevents(snap, req.SubeventIDs); err != nil {
			return nil, err
		}
	} else {
		for _, id := range subeventIDs {
			if subevent := snap.SubeventByID(id); subevent != nil {
				selectedSubevents = append(selectedSubevents, *subevent)
			}
		}
	}

	// Approval is recomputed from scratch on every edit: only a newly gained
	// role that needs manual approval drops the flag, so a pending user whose
	// edit adds nothing needing approval becomes approved.
	approved := true
	for _, role := range selectedRoles {
		if !role.ApprovedAfterRegistration && !user.HasRole(role.ID) {
			approved = false
		}
	}

	totalFee := fee.CountFee(selectedRoles, selectedSubevents, true)
	state := models.ApplicationStateWaitingForPayment
	if totalFee == 0 {
		state = models.ApplicationStatePaid
	}

	update := models.RegistrationUpdate{
		UserUID:       user.UID,
		RoleIDs:       req.RoleIDs,
		NewRoleIDs:    subtract(req.RoleIDs, user.RoleIDs),
		Approved:      approved,
		ApplicationID: app.ID,
		Fee:           totalFee,
		State:         state,
	}
	if hasExplicit {
		update.SubeventIDs = req.SubeventIDs
		update.NewSubeventIDs = subtract(req.SubeventIDs, user.SubeventIDs)
	}
	if err := s.repo.UpdateRegistration(ctx, update); err != nil {
		return nil, err
	}

	if err := s.sync.Resync(ctx, user.UID); err != nil {
		return nil, err
	}
	if err := s.sessions.RefreshRoles(ctx, username, req.RoleIDs); err != nil {
		s.log.Warn("failed to refresh session roles", sl.Err(err))
	}
	s.publish(ctx, models.RegistrationEvent{
		Username:      username,
		Operation:     "edit",
		ApplicationID: app.ID,
		Fee:           totalFee,
		State:         state,
	})

	updated := *app
	updated.SubeventIDs = subeventIDs
	updated.Fee = totalFee
	updated.State = state
	return &updated, nil
}

// ListApplications returns the user's applications ordered by order number.
func (s *Service) ListApplications(ctx context.Context, username string) ([]models.Application, error) {
	const op = "registration.ListApplications"

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	apps, err := s.repo.ListApplicationsByUser(ctx, user.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return apps, nil
}

// Catalog returns the roles visible to the user and all explicit sub-events,
// with current occupancy.
func (s *Service) Catalog(ctx context.Context, username string) (*catalog.Snapshot, error) {
	const op = "registration.Catalog"

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	snap, err := s.loadCatalog(ctx, user.UID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}

// ListRoles returns the roles visible to the user with current occupancy.
func (s *Service) ListRoles(ctx context.Context, username string) ([]models.Role, error) {
	const op = "registration.ListRoles"
	snap, err := s.Catalog(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snap.Roles, nil
}

// ListSubevents returns all explicit sub-events with current occupancy.
func (s *Service) ListSubevents(ctx context.Context, username string) ([]models.Subevent, error) {
	const op = "registration.ListSubevents"
	snap, err := s.Catalog(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snap.Subevents, nil
}

func (s *Service) loadCatalog(ctx context.Context, userUID string, now time.Time) (*catalog.Snapshot, error) {
	roles, err := s.repo.ListRegisterableOrUserRoles(ctx, userUID, now)
	if err != nil {
		return nil, err
	}
	subevents, err := s.repo.ListExplicitSubevents(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.NewSnapshot(roles, subevents), nil
}

func (s *Service) publish(ctx context.Context, event models.RegistrationEvent) {
	if err := s.notifier.RegistrationChanged(ctx, event); err != nil {
		s.log.Warn("failed to publish registration event", sl.Err(err))
	}
}

func resultLabel(err error) string {
	var capacityErr *eligibility.CapacityError
	var windowErr *eligibility.NotRegisterableError
	var incompatibleErr *eligibility.IncompatibleError
	var requiredErr *eligibility.RequiredError
	if errors.As(err, &capacityErr) || errors.As(err, &windowErr) ||
		errors.As(err, &incompatibleErr) || errors.As(err, &requiredErr) {
		return "rejected"
	}
	return "error"
}

// union returns a∪b preserving a's order first.
func union(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	result := make([]int, 0, len(a)+len(b))
	for _, ids := range [][]int{a, b} {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				result = append(result, id)
			}
		}
	}
	return result
}

// subtract returns the elements of a not present in b.
func subtract(a, b []int) []int {
	drop := make(map[int]bool, len(b))
	for _, id := range b {
		drop[id] = true
	}
	var result []int
	for _, id := range a {
		if !drop[id] {
			result = append(result, id)
		}
	}
	return result
}
