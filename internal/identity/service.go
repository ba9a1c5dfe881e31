package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials indicates a failed email/password check.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service manages identity lifecycle around the external KYC workflow.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new user with a hashed password and a pending KYC
// status. A referral code, when supplied, must name an existing user; the
// link drives commission stamping on the referred user's investments.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	if len(creds.Password) < 8 {
		return User{}, errors.New("password must be at least 8 characters")
	}

	referrerID := ""
	if creds.ReferralCode != "" {
		referrer, err := s.repo.FindByID(ctx, creds.ReferralCode)
		if err != nil {
			return User{}, errors.New("unknown referral code")
		}
		referrerID = referrer.ID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        creds.Email,
		Role:         RoleUser,
		KYCStatus:    KYCPending,
		PasswordHash: hash,
		ReferrerID:   referrerID,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies the user's credentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, creds.Email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Get fetches a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// SetKYCStatus records the externally decided KYC outcome for a user.
func (s *Service) SetKYCStatus(ctx context.Context, id, status string) error {
	switch status {
	case KYCPending, KYCApproved, KYCRejected:
	default:
		return errors.New("invalid kyc status")
	}
	return s.repo.SetKYCStatus(ctx, id, status)
}
