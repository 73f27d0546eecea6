package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"garageops/internal/model"
)

// AuthService mints and validates technician tokens. Identity itself is
// owned by the workshop's account system; this service only resolves a
// token into (technicianId, orgId) for request scoping.
type AuthService struct {
	username  string
	password  string
	orgID     string
	jwtSecret []byte
}

// NewAuthService creates a new auth service
func NewAuthService(username, password, orgID, jwtSecret string) *AuthService {
	return &AuthService{
		username:  username,
		password:  password,
		orgID:     orgID,
		jwtSecret: []byte(jwtSecret),
	}
}

// Login validates credentials and returns a technician token
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if username != s.username || password != s.password {
		return nil, ErrInvalidCredentials
	}

	technicianID := "tech_" + uuid.New().String()[:8]

	token, err := s.GenerateTechnicianToken(technicianID, s.orgID)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:        token,
		TechnicianID: technicianID,
		OrgID:        s.orgID,
	}, nil
}

// GenerateTechnicianToken creates an org-scoped token for a technician
func (s *AuthService) GenerateTechnicianToken(technicianID, orgID string) (string, error) {
	claims := &model.TechnicianClaims{
		TechnicianID: technicianID,
		OrgID:        orgID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateTechnicianToken validates a technician JWT and returns claims
func (s *AuthService) ValidateTechnicianToken(tokenString string) (*model.TechnicianClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.TechnicianClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.TechnicianClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TechnicianID == "" || claims.OrgID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
