package dto

import (
	authDomain "github.com/allisson/authd/internal/auth/domain"
)

// CreationCodeResponse carries the creation token for a pending signup. The
// one-time code itself is delivered out of band.
type CreationCodeResponse struct {
	CreationToken string `json:"creation_token"`
}

// TokenPairResponse carries a freshly issued access and refresh token.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewTokenPairResponse maps a domain token pair to its response form.
func NewTokenPairResponse(pair *authDomain.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}
