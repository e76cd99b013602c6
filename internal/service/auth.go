package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"photogram/internal/config"
	"photogram/internal/model"
	"photogram/internal/repository"
)

// ErrTokenExpired distinguishes an expired token from a malformed one.
var ErrTokenExpired = fmt.Errorf("%w: token expired", model.ErrUnauthenticated)

// AuthService issues access tokens and resolves them back to the acting account.
type AuthService struct {
	accounts repository.AccountRepository
	config   *config.Config
}

func NewAuthService(accounts repository.AccountRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		accounts: accounts,
		config:   cfg,
	}
}

// IssueToken returns a signed HS256 token carrying the account id.
func (s *AuthService) IssueToken(accountID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": accountID,
		"exp":     now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ParseToken validates the token and returns its account id.
func (s *AuthService) ParseToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("%w: invalid claims", model.ErrUnauthenticated)
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: missing user_id claim", model.ErrUnauthenticated)
	}
	return int64(userIDFloat), nil
}

// Authenticate resolves a credential to the acting account. A valid token whose account
// no longer exists yields model.ErrAccountNotFound.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*model.AccountSummary, error) {
	accountID, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	summaries, err := s.accounts.GetSummaries(ctx, []int64{accountID})
	if err != nil {
		return nil, err
	}
	account, ok := summaries[accountID]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return &account, nil
}
