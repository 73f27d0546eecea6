package model

import "github.com/golang-jwt/jwt/v5"

// TechnicianClaims are JWT claims for technician authentication. Every
// session read and write is scoped by the orgId carried here.
type TechnicianClaims struct {
	TechnicianID string `json:"technicianId"`
	OrgID        string `json:"orgId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for technician login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token        string `json:"token"`
	TechnicianID string `json:"technicianId"`
	OrgID        string `json:"orgId"`
}
