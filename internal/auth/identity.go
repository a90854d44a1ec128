package auth

import (
	"github.com/google/uuid"
	"github.com/tullo/modchat/internal/models"
)

// Resolution is the outcome of resolving a session's claimed identity
type Resolution struct {
	Identity models.Identity
	Ticket   string
	// Issued is true when a new identity was minted and the client must store Ticket
	Issued bool
}

// Manager maps claimed tickets to identity tokens, minting new identities for
// anything it cannot verify
type Manager struct {
	jwt *JWTService
}

func NewManager(jwt *JWTService) *Manager {
	return &Manager{jwt: jwt}
}

// Resolve never fails on bad input: an empty, forged, expired or otherwise
// malformed ticket yields a brand new identity.
func (m *Manager) Resolve(claimedTicket, displayName string) (Resolution, error) {
	name := models.NormalizeDisplayName(displayName)

	if token, ok := m.Verify(claimedTicket); ok {
		return Resolution{
			Identity: models.Identity{Token: token, DisplayName: name},
			Ticket:   claimedTicket,
		}, nil
	}

	token := uuid.NewString()
	ticket, err := m.jwt.GenerateToken(token)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{
		Identity: models.Identity{Token: token, DisplayName: name},
		Ticket:   ticket,
		Issued:   true,
	}, nil
}

// Verify returns the identity token carried by a well-formed ticket
func (m *Manager) Verify(ticket string) (string, bool) {
	if ticket == "" {
		return "", false
	}
	claims, err := m.jwt.ValidateToken(ticket)
	if err != nil {
		return "", false
	}
	if !IsWellFormedToken(claims.Token) {
		return "", false
	}
	return claims.Token, true
}

// IsWellFormedToken reports whether s looks like an identity token
func IsWellFormedToken(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}
