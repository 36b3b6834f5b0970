package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/form3tech-oss/jwt-go"

	"navalwar/internal/domain"
)

// ErrInvalidTicket is returned for tickets that are malformed, expired or signed with another key.
var ErrInvalidTicket = errors.New("invalid seat ticket")

// Seat is what a ticket grants: one player slot in one match.
type Seat struct {
	MatchID string
	Player  domain.Player
}

// TicketService issues and verifies HS256 seat tickets for the standalone transport.
type TicketService struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewTicketService(secret, issuer string, ttl time.Duration) *TicketService {
	return &TicketService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue signs a ticket for player p of matchID.
func (s *TicketService) Issue(matchID string, p domain.Player) (string, error) {
	if s == nil {
		return "", fmt.Errorf("ticket service is nil")
	}
	if matchID == "" {
		return "", fmt.Errorf("match id is required")
	}
	if !p.Valid() {
		return "", fmt.Errorf("player %d: %w", p, domain.ErrUnknownPlayer)
	}
	if s.secret == "" {
		return "", fmt.Errorf("ticket secret is not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  fmt.Sprintf("%s/%d", matchID, p),
		"exp":  now.Add(s.ttl).Unix(),
		"jti":  fmt.Sprintf("%d-%d", now.UnixNano(), rand.Int63()),
		"mid":  matchID,
		"seat": int(p),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks the signature and expiry of a ticket and returns the seat it grants.
func (s *TicketService) Verify(ticket string) (Seat, error) {
	if s == nil || s.secret == "" {
		return Seat{}, fmt.Errorf("ticket service is not configured")
	}
	token, err := jwt.Parse(ticket, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return Seat{}, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Seat{}, ErrInvalidTicket
	}
	if s.issuer != "" && !claims.VerifyIssuer(s.issuer, true) {
		return Seat{}, fmt.Errorf("%w: issuer mismatch", ErrInvalidTicket)
	}
	matchID, _ := claims["mid"].(string)
	seat, _ := claims["seat"].(float64)
	p := domain.Player(int(seat))
	if matchID == "" || !p.Valid() {
		return Seat{}, fmt.Errorf("%w: missing seat claims", ErrInvalidTicket)
	}
	return Seat{MatchID: matchID, Player: p}, nil
}
