package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmail     = &apierrors.FormatError{Message: "invalid email format"}
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least %d characters", apierrors.ErrValidation, constants.MinPasswordLength)
	ErrInvalidRole      = fmt.Errorf("%w: role must be one of manager, team_lead, developer", apierrors.ErrValidation)
	ErrNameTooShort     = fmt.Errorf("%w: name must be at least %d characters", apierrors.ErrValidation, constants.MinNameLength)
	ErrEmailTaken       = fmt.Errorf("%w: a user with this email already exists", apierrors.ErrConflict)
	ErrUserNotFound     = fmt.Errorf("%w: user not found", apierrors.ErrNotFound)
)

// AuthService stores users and checks their credentials.
type AuthService struct {
	userRepo repository.UserRepository
	validate *validator.Validate
	cost     int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return NewAuthServiceWithCost(userRepo, bcrypt.DefaultCost)
}

// NewAuthServiceWithCost creates an AuthService hashing with the given bcrypt
// cost. Tests use bcrypt.MinCost to stay fast.
func NewAuthServiceWithCost(userRepo repository.UserRepository, cost int) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		validate: validator.New(),
		cost:     cost,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// Register validates the input, hashes the password and persists the user.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	name := strings.TrimSpace(input.Name)
	if utf8.RuneCountInString(name) < constants.MinNameLength {
		return nil, ErrNameTooShort
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         input.Role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Verify returns the user when the password matches. An unknown email and a
// wrong password are both reported as ok == false with a nil error; only
// storage failures produce an error.
func (s *AuthService) Verify(ctx context.Context, email, password string) (*models.User, bool, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// compare anyway so unknown emails cost as much as wrong passwords
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, false, nil
	}

	return user, true, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
