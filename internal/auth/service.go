package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/keshav2k4/employee-tracker-App/internal/remote"
	"github.com/redis/go-redis/v9"
)

const (
	TokenKey = "auth_token"
	UserKey  = "user_data"

	accessTokenTTL = 12 * time.Hour
)

var (
	ErrLoginFailed      = errors.New("login failed")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// LoginClient performs the remote credential check.
type LoginClient interface {
	Login(ctx context.Context, username, password string) (remote.User, error)
}

// Service owns the persisted session (token + profile) and issues the
// bearer tokens of the local control API.
type Service struct {
	secret []byte
	rdb    *redis.Client
	remote LoginClient
}

type Claims struct {
	EmployeeID string `json:"employee_id"`
	jwt.RegisteredClaims
}

func NewService(secret string, rdb *redis.Client, remote LoginClient) *Service {
	return &Service{
		secret: []byte(secret),
		rdb:    rdb,
		remote: remote,
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (remote.User, TokenResponse, error) {
	if req.Username == "" || req.Password == "" {
		return remote.User{}, TokenResponse{}, fmt.Errorf("%w: username and password required", ErrLoginFailed)
	}
	if s.rdb == nil {
		return remote.User{}, TokenResponse{}, ErrStoreUnavailable
	}

	user, err := s.remote.Login(ctx, req.Username, req.Password)
	if err != nil {
		var loginErr *remote.LoginError
		if errors.As(err, &loginErr) {
			return remote.User{}, TokenResponse{}, fmt.Errorf("%w: %s", ErrLoginFailed, loginErr.Message)
		}
		return remote.User{}, TokenResponse{}, err
	}

	profile, err := json.Marshal(user)
	if err != nil {
		return remote.User{}, TokenResponse{}, err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, TokenKey, user.AccessToken, 0)
		pipe.Set(ctx, UserKey, profile, 0)
		return nil
	})
	if err != nil {
		return remote.User{}, TokenResponse{}, fmt.Errorf("persist session: %w", err)
	}

	tokens, err := s.GenerateToken(user.EmployeeID.String())
	if err != nil {
		return remote.User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) Logout(ctx context.Context) error {
	if s.rdb == nil {
		return ErrStoreUnavailable
	}
	return s.rdb.Del(ctx, TokenKey, UserKey).Err()
}

// Token returns the remote access token, or "" when logged out.
func (s *Service) Token(ctx context.Context) (string, error) {
	if s.rdb == nil {
		return "", ErrStoreUnavailable
	}
	token, err := s.rdb.Get(ctx, TokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

// CurrentUser returns nil when no profile is stored.
func (s *Service) CurrentUser(ctx context.Context) (*remote.User, error) {
	if s.rdb == nil {
		return nil, ErrStoreUnavailable
	}
	raw, err := s.rdb.Get(ctx, UserKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var user remote.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &user, nil
}

func (s *Service) EmployeeID(ctx context.Context) (string, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil || user == nil {
		return "", err
	}
	return user.EmployeeID.String(), nil
}

func (s *Service) GenerateToken(employeeID string) (TokenResponse, error) {
	access, err := signTokenFn(s, employeeID, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.EmployeeID, nil
}

var signTokenFn = (*Service).signToken

func (s *Service) signToken(employeeID string, ttl time.Duration) (string, error) {
	claims := Claims{
		EmployeeID: employeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   employeeID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}
