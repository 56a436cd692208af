package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	siwe "github.com/spruceid/siwe-go"

	"github.com/CharlotteMargare/savewater/internal/config"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Claims struct {
	Address string
	jwt.RegisteredClaims
}

// Service authenticates the wallet owner with Sign-In With Ethereum and
// issues short-lived API tokens. Only the account whose key this service
// holds may log in.
type Service struct {
	secret    []byte
	ttl       time.Duration
	nonces    *nonceStore
	domain    string
	uri       string
	statement string
	chainID   uint64
	wallet    common.Address
}

func NewService(cfg config.AuthConfig, wallet common.Address) *Service {
	return &Service{
		secret:    []byte(cfg.JWTSecret),
		ttl:       cfg.JWTTTL,
		nonces:    newNonceStore(cfg.NonceTTL),
		domain:    strings.TrimSpace(cfg.SIWEDomain),
		uri:       strings.TrimSpace(cfg.SIWEURI),
		statement: strings.TrimSpace(cfg.SIWEStatement),
		chainID:   cfg.SIWEChainID,
		wallet:    wallet,
	}
}

func (s *Service) IssueNonce() (string, error) {
	return s.nonces.Issue()
}

func (s *Service) LoginWithSIWE(message, signature string) (string, error) {
	if strings.TrimSpace(message) == "" || strings.TrimSpace(signature) == "" {
		return "", ErrInvalidCredentials
	}

	parsed, err := siwe.ParseMessage(message)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	nonce := parsed.GetNonce()
	if !s.nonces.Has(nonce) {
		return "", ErrInvalidCredentials
	}
	var domain *string
	if s.domain != "" {
		d := s.domain
		domain = &d
	}
	if s.uri != "" {
		if uri := parsed.GetURI(); uri.String() != s.uri {
			return "", ErrInvalidCredentials
		}
	}
	if s.statement != "" {
		if stmt := parsed.GetStatement(); stmt == nil || strings.TrimSpace(*stmt) != s.statement {
			return "", ErrInvalidCredentials
		}
	}
	if s.chainID > 0 && parsed.GetChainID() != int(s.chainID) {
		return "", ErrInvalidCredentials
	}
	if _, err := parsed.Verify(signature, domain, &nonce, nil); err != nil {
		return "", ErrInvalidCredentials
	}
	addr := parsed.GetAddress()
	if addr != s.wallet {
		return "", ErrInvalidCredentials
	}
	s.nonces.Consume(nonce)

	now := time.Now()
	claims := Claims{
		Address: addr.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   addr.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredentials
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidCredentials
}
