package user

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
)

var (
	// ErrInvalidOTP is returned when a one-time code does not match.
	ErrInvalidOTP = errors.New("invalid one-time code")
	// ErrNotVerified is returned when an unverified account tries to log in.
	ErrNotVerified = errors.New("account is not verified")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = errors.New("invalid token")
)

var mobilePattern = regexp.MustCompile(`^[0-9]{11}$`)

// Service handles OTP registration and login, profiles and roles.
type Service struct {
	repo      userrepo.Repository
	tokens    *tokenManager
	sms       SMSSender
	logger    *zap.Logger
	accessTTL time.Duration
	otpLength int
	hashCost  int
}

type Option func(*Service)

func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) { s.accessTTL = ttl }
}

func WithOTPLength(n int) Option {
	return func(s *Service) { s.otpLength = n }
}

// WithHashCost sets the bcrypt cost used for one-time codes.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service with sane defaults.
func New(repo userrepo.Repository, tokens tokenrepo.Repository, sms SMSSender, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		sms:       sms,
		logger:    zap.NewNop(),
		accessTTL: 48 * time.Hour,
		otpLength: 6,
		hashCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = newTokenManager(tokens, time.Now)
	s.logger = s.logger.Named("user")
	return s
}

// ProfileInput carries the editable profile fields. Nil fields are left untouched.
type ProfileInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
}

// Register creates an unverified account and sends it a code. Registering an
// existing unverified number resends the code.
func (s *Service) Register(ctx context.Context, mobile string) (*domain.User, error) {
	mobile, err := normalizeMobile(mobile)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByMobile(ctx, mobile)
	switch {
	case err == nil && existing.IsVerified:
		return nil, domain.ErrAlreadyExists
	case err == nil:
		if err := s.sendCode(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	code, hash, err := s.newCode()
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Create(ctx, domain.User{MobileNumber: mobile, OTPHash: hash})
	if err != nil {
		return nil, err
	}
	if err := s.sms.SendCode(ctx, mobile, code); err != nil {
		return nil, fmt.Errorf("send code: %w", err)
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// VerifyRegistration confirms the code sent by Register and signs the user in.
func (s *Service) VerifyRegistration(ctx context.Context, mobile, code string) (*domain.User, string, error) {
	u, err := s.checkCode(ctx, mobile, code)
	if err != nil {
		return nil, "", err
	}
	u, err = s.repo.MarkVerified(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(ctx, u.ID, s.accessTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user verified", zap.String("user_id", u.ID))
	return u, token, nil
}

// Login sends a fresh code to a verified account.
func (s *Service) Login(ctx context.Context, mobile string) error {
	mobile, err := normalizeMobile(mobile)
	if err != nil {
		return err
	}
	u, err := s.repo.GetByMobile(ctx, mobile)
	if err != nil {
		return err
	}
	if !u.IsVerified {
		return ErrNotVerified
	}
	return s.sendCode(ctx, u)
}

// VerifyLogin consumes the login code and returns an access token.
func (s *Service) VerifyLogin(ctx context.Context, mobile, code string) (*domain.User, string, error) {
	u, err := s.checkCode(ctx, mobile, code)
	if err != nil {
		return nil, "", err
	}
	if !u.IsVerified {
		return nil, "", ErrNotVerified
	}
	if err := s.repo.SetOTP(ctx, u.ID, ""); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(ctx, u.ID, s.accessTTL)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", zap.String("user_id", u.ID))
	return u, token, nil
}

// LookupByToken returns the user bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.User, error) {
	userID, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := u.Profile
	if in.FirstName != nil {
		p.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		p.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		p.Email = strings.TrimSpace(*in.Email)
		if p.Email != "" && !strings.Contains(p.Email, "@") {
			return nil, fmt.Errorf("%w: email is malformed", domain.ErrInvalidInput)
		}
	}
	if in.Address != nil {
		p.Address = strings.TrimSpace(*in.Address)
	}
	return s.repo.UpdateProfile(ctx, userID, p)
}

func (s *Service) SetAdmin(ctx context.Context, userID string, admin bool) (*domain.User, error) {
	u, err := s.repo.SetAdmin(ctx, userID, admin)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user role changed", zap.String("user_id", userID), zap.Bool("admin", admin))
	return u, nil
}

// PurgeExpiredTokens deletes every token past its expiry and reports how many were removed.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.tokens.Purge(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged expired tokens", zap.Int64("count", n))
	}
	return n, nil
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

func (s *Service) checkCode(ctx context.Context, mobile, code string) (*domain.User, error) {
	mobile, err := normalizeMobile(mobile)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetByMobile(ctx, mobile)
	if err != nil {
		return nil, err
	}
	if u.OTPHash == "" || bcrypt.CompareHashAndPassword([]byte(u.OTPHash), []byte(strings.TrimSpace(code))) != nil {
		return nil, ErrInvalidOTP
	}
	return u, nil
}

func (s *Service) sendCode(ctx context.Context, u *domain.User) error {
	code, hash, err := s.newCode()
	if err != nil {
		return err
	}
	if err := s.repo.SetOTP(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := s.sms.SendCode(ctx, u.MobileNumber, code); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

func (s *Service) newCode() (code, hash string, err error) {
	code, err = generateOTP(s.otpLength)
	if err != nil {
		return "", "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return "", "", err
	}
	return code, string(hashed), nil
}

func generateOTP(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func normalizeMobile(mobile string) (string, error) {
	mobile = strings.TrimSpace(mobile)
	if !mobilePattern.MatchString(mobile) {
		return "", fmt.Errorf("%w: mobile number must be 11 digits", domain.ErrInvalidInput)
	}
	return mobile, nil
}
