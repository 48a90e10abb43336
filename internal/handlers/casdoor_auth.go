package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/docuhub/exam-service/internal/config"
	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories"
	"github.com/docuhub/exam-service/internal/repositories/casdoor"
	"github.com/docuhub/exam-service/internal/utils"
)

var (
	ErrMissingToken = errors.New("authorization header missing")
	ErrInvalidToken = errors.New("invalid token")
)

// Authenticator turns a bearer token into the calling user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// casdoorTokenParser is the part of the Casdoor client used to verify tokens
type casdoorTokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthenticator verifies Casdoor-issued JWTs
type CasdoorAuthenticator struct {
	parser   casdoorTokenParser
	userRepo repositories.UserRepository
	logger   utils.Logger
}

func NewCasdoorAuthenticator(cfg config.CasdoorConfig, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthenticator {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return newCasdoorAuthenticator(client, userRepo, logger)
}

func newCasdoorAuthenticator(parser casdoorTokenParser, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthenticator {
	if logger == nil {
		logger = utils.Discard()
	}
	return &CasdoorAuthenticator{parser: parser, userRepo: userRepo, logger: logger}
}

func (a *CasdoorAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := a.parser.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Id == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	// Prefer the directory copy, it carries the current roles
	if a.userRepo != nil {
		user, err := a.userRepo.GetByID(ctx, claims.Id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			a.logger.Warn("Falling back to token claims", "user_id", claims.Id, "error", err)
		}
	}

	user := casdoor.ConvertUser(&claims.User)
	if user.Role == models.RoleUser && claims.User.Type != "" {
		user.Role = casdoor.MapRole(claims.User.Type)
	}
	return user, nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrInvalidToken)
	}
	return parts[1], nil
}
