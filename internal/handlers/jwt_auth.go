package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/docuhub/exam-service/internal/models"
	"github.com/docuhub/exam-service/internal/repositories/casdoor"
)

const tokenIssuer = "exam-service"

// TokenClaims are the claims carried by locally signed tokens
type TokenClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// userRecorder remembers identities seen in tokens so responses can populate them
type userRecorder interface {
	Save(user *models.User)
}

// JWTAuthenticator verifies HS256 tokens signed with a shared secret
type JWTAuthenticator struct {
	secret []byte
	users  userRecorder
	now    func() time.Time
}

func NewJWTAuthenticator(secret string, users userRecorder) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), users: users, now: time.Now}
}

// IssueToken signs a token for the given user
func (a *JWTAuthenticator) IssueToken(user *models.User, ttl time.Duration) (string, error) {
	now := a.now()
	claims := &TokenClaims{
		Name:  user.FullName,
		Email: user.Email,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, tokenStr string) (*models.User, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	user := &models.User{
		ID:       claims.Subject,
		Username: claims.Subject,
		FullName: claims.Name,
		Email:    claims.Email,
		Role:     casdoor.MapRole(claims.Role),
	}
	if a.users != nil {
		a.users.Save(user)
	}
	return user, nil
}
