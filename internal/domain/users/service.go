package users

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type Service struct {
	repo        Repository
	adminEmails map[string]struct{}
	logger      zerolog.Logger
}

func NewService(repo Repository, adminEmails []string, logger zerolog.Logger) *Service {
	normalized := lo.FilterMap(adminEmails, func(e string, _ int) (string, bool) {
		e = strings.ToLower(strings.TrimSpace(e))
		return e, e != ""
	})
	return &Service{
		repo:        repo,
		adminEmails: lo.SliceToMap(normalized, func(e string) (string, struct{}) { return e, struct{}{} }),
		logger:      logger.With().Str("component", "users").Logger(),
	}
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (s *Service) IsAdminEmail(email string) bool {
	_, ok := s.adminEmails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// RoleFor returns the role used to pick the audience tier for a request.
// Admin emails win, then the stored role. Unknown users are recorded on
// first sight. Any lookup failure yields the patient role.
func (s *Service) RoleFor(ctx context.Context, userID, email string) string {
	if s.IsAdminEmail(email) {
		return RoleAdmin
	}
	if userID == "" {
		return RolePatient
	}

	u, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		if err := s.repo.Upsert(ctx, &User{ID: userID, Email: email}); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to record user")
		}
		return RolePatient
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("role lookup failed, defaulting to patient")
		return RolePatient
	}

	switch u.Role {
	case "", RoleDoctorPending, RoleClinicianPending:
		return RolePatient
	}
	return u.Role
}
