package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"photogram/internal/model"
	"photogram/internal/repository"
)

// DefaultSearchLimit caps account search results.
const DefaultSearchLimit = 50

// IdentityService owns account records: registration, credential checks and lookups.
type IdentityService struct {
	accounts   repository.AccountRepository
	bcryptCost int
}

func NewIdentityService(accounts repository.AccountRepository) *IdentityService {
	return &IdentityService{
		accounts:   accounts,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Create stores a new account from an already-hashed credential.
func (s *IdentityService) Create(ctx context.Context, email, passwordHash, firstName, lastName string) (*model.Account, error) {
	account := &model.Account{
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		log.Printf("[IdentityService] Create FAILED: email=%s err=%v", account.Email, err)
		return nil, fmt.Errorf("create account: %w", err)
	}

	log.Printf("[IdentityService] Create OK: id=%d", account.ID)
	return account, nil
}

// Register hashes the password and creates the account.
func (s *IdentityService) Register(ctx context.Context, req *model.RegisterRequest) (*model.Account, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", model.ErrInvalidInput)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return s.Create(ctx, req.Email, string(hashed), req.FirstName, req.LastName)
}

// Login authenticates by email and password.
func (s *IdentityService) Login(ctx context.Context, req *model.LoginRequest) (*model.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, req.Email)
	if errors.Is(err, model.ErrAccountNotFound) {
		// Don't reveal whether the email exists
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return account, nil
}

// FindByID returns the account with its photos and relationship sets.
func (s *IdentityService) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// FindByQuery matches the query case-insensitively against first and last names.
func (s *IdentityService) FindByQuery(ctx context.Context, query string) ([]model.AccountSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.AccountSummary{}, nil
	}

	accounts, err := s.accounts.Search(ctx, query, DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search accounts: %w", err)
	}
	return accounts, nil
}
