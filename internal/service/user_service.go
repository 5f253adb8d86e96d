package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prn-tf/lendery/internal/config"
	"github.com/prn-tf/lendery/internal/domain"
	"github.com/prn-tf/lendery/internal/repository"
)

// UserService handles user registration, authentication and profile
// management.
type UserService struct {
	userRepo repository.UserRepository
	lending  config.LendingConfig
	logger   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, lending config.LendingConfig, logger zerolog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		lending:  lending,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// titleCase normalizes free-form input to title case ("ursula le guin"
// becomes "Ursula Le Guin"). A fresh Caser per call: Casers are stateful
// and must not be shared between requests.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// RegisterInput contains the data needed to register a new user.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// RegisterOutput contains the result of registering a user.
type RegisterOutput struct {
	User *domain.User
}

// Register creates a new user account.
// Names are normalized to title case and the email is stored lowercased;
// duplicate emails are rejected regardless of case.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if firstName == "" || lastName == "" || email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("failed to check email existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(
		titleCase(firstName),
		titleCase(lastName),
		email,
		string(passwordHash),
	)
	user.LendDuration = s.lending.DefaultDays

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			// Lost the race against a concurrent registration.
			return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Msg("user registered")

	return &RegisterOutput{User: user}, nil
}

// Authenticate verifies user credentials and returns the user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		// Don't expose whether the email exists.
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Msg("failed to get user for authentication")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.CanAuthenticate() {
		return nil, ErrUserInactive
	}

	s.logger.Debug().Int64("user_id", user.ID).Msg("user authenticated")

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// ChangeDurationInput contains the data needed to change a user's
// lending duration.
type ChangeDurationInput struct {
	UserID int64
	Days   int
}

// ChangeDuration updates the lending duration of a user.
// The new value applies to future hand-overs only; running loans keep
// the return date computed when the book was handed over.
func (s *UserService) ChangeDuration(ctx context.Context, input ChangeDurationInput) error {
	if input.Days < s.lending.MinDays || input.Days > s.lending.MaxDays {
		return fmt.Errorf("%w: must be between %d and %d days",
			domain.ErrInvalidLendDuration, s.lending.MinDays, s.lending.MaxDays)
	}

	if err := s.userRepo.UpdateLendDuration(ctx, input.UserID, input.Days); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("failed to update lend duration")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", input.UserID).
		Int("days", input.Days).
		Msg("lend duration changed")

	return nil
}

// SetActive enables or disables a user account.
// Disabled users keep their data but cannot authenticate.
func (s *UserService) SetActive(ctx context.Context, userID int64, active bool) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to update user activity")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", userID).
		Bool("active", active).
		Msg("user activity changed")

	return nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}
