package user

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

// memoryRepo is a lightweight in-memory user repository for tests.
type memoryRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
	seq   int
}

type memoryTokenRepo struct {
	tokens map[string]tokenrepo.Token
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]domain.User)}
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{tokens: make(map[string]tokenrepo.Token)}
}

func (r *memoryTokenRepo) Create(_ context.Context, token tokenrepo.Token) error {
	if _, exists := r.tokens[token.Token]; exists {
		return domain.ErrAlreadyExists
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryTokenRepo) Get(_ context.Context, token string) (*tokenrepo.Token, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := t
	return &clone, nil
}

func (r *memoryTokenRepo) Delete(_ context.Context, token string) error {
	if _, ok := r.tokens[token]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *memoryTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, t := range r.tokens {
		if !t.ExpiresAt.After(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Create(_ context.Context, u domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.MobileNumber == u.MobileNumber {
			return nil, domain.ErrAlreadyExists
		}
	}
	r.seq++
	u.ID = "user-" + strconv.Itoa(r.seq)
	r.users[u.ID] = u
	return &u, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *memoryRepo) GetByMobile(_ context.Context, mobile string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.MobileNumber == mobile {
			clone := u
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) update(id string, fn func(u *domain.User)) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	fn(&u)
	r.users[id] = u
	return &u, nil
}

func (r *memoryRepo) SetOTP(_ context.Context, id, otpHash string) error {
	_, err := r.update(id, func(u *domain.User) { u.OTPHash = otpHash })
	return err
}

func (r *memoryRepo) MarkVerified(_ context.Context, id string) (*domain.User, error) {
	return r.update(id, func(u *domain.User) {
		u.IsVerified = true
		u.OTPHash = ""
	})
}

func (r *memoryRepo) UpdateProfile(_ context.Context, id string, p domain.Profile) (*domain.User, error) {
	return r.update(id, func(u *domain.User) { u.Profile = p })
}

func (r *memoryRepo) SetAdmin(_ context.Context, id string, admin bool) (*domain.User, error) {
	return r.update(id, func(u *domain.User) { u.IsAdmin = admin })
}

type recordingSender struct {
	codes map[string]string
	err   error
}

func (s *recordingSender) SendCode(_ context.Context, mobile, code string) error {
	if s.err != nil {
		return s.err
	}
	s.codes[mobile] = code
	return nil
}

func newTestService() (*Service, *memoryRepo, *memoryTokenRepo, *recordingSender) {
	repo := newMemoryRepo()
	tokens := newMemoryTokenRepo()
	sms := &recordingSender{codes: make(map[string]string)}
	return New(repo, tokens, sms, WithHashCost(bcrypt.MinCost)), repo, tokens, sms
}

const mobile = "09121234567"

func TestRegisterAndVerify(t *testing.T) {
	svc, repo, _, sms := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, " "+mobile+" ")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.IsVerified {
		t.Fatalf("new user must start unverified")
	}
	code := sms.codes[mobile]
	if len(code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", code)
	}
	stored, _ := repo.GetByID(ctx, u.ID)
	if stored.OTPHash == code || stored.OTPHash == "" {
		t.Fatalf("code must be stored hashed")
	}

	if _, _, err := svc.VerifyRegistration(ctx, mobile, "000000x"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}

	verified, token, err := svc.VerifyRegistration(ctx, mobile, code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !verified.IsVerified || token == "" {
		t.Fatalf("unexpected verify result %+v token=%q", verified, token)
	}
	if _, _, err := svc.VerifyRegistration(ctx, mobile, code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("code must be single use, got %v", err)
	}

	if _, err := svc.Register(ctx, mobile); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRegister_ResendsForUnverifiedUser(t *testing.T) {
	svc, _, _, sms := newTestService()
	ctx := context.Background()

	first, err := svc.Register(ctx, mobile)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	oldCode := sms.codes[mobile]
	second, err := svc.Register(ctx, mobile)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same user, got %s and %s", first.ID, second.ID)
	}
	newCode := sms.codes[mobile]
	if _, _, err := svc.VerifyRegistration(ctx, mobile, newCode); err != nil {
		t.Fatalf("verify with latest code: %v", err)
	}
	if oldCode != newCode {
		if _, _, err := svc.VerifyLogin(ctx, mobile, oldCode); !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("stale code accepted: %v", err)
		}
	}
}

func TestRegister_RejectsMalformedMobile(t *testing.T) {
	svc, _, _, _ := newTestService()
	for _, m := range []string{"", "0912", "0912123456a", "091212345678"} {
		if _, err := svc.Register(context.Background(), m); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("mobile %q: expected ErrInvalidInput, got %v", m, err)
		}
	}
}

func TestLoginFlow(t *testing.T) {
	svc, _, _, sms := newTestService()
	ctx := context.Background()

	if err := svc.Login(ctx, mobile); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
	if _, err := svc.Register(ctx, mobile); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Login(ctx, mobile); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
	if _, _, err := svc.VerifyRegistration(ctx, mobile, sms.codes[mobile]); err != nil {
		t.Fatalf("verify: %v", err)
	}

	if err := svc.Login(ctx, mobile); err != nil {
		t.Fatalf("login: %v", err)
	}
	u, token, err := svc.VerifyLogin(ctx, mobile, sms.codes[mobile])
	if err != nil {
		t.Fatalf("verify login: %v", err)
	}

	got, err := svc.LookupByToken(ctx, token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected user %s, got %s", u.ID, got.ID)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.LookupByToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
}

func TestLookupByToken_Expired(t *testing.T) {
	svc, repo, tokens, _ := newTestService()
	ctx := context.Background()
	u, _ := repo.Create(ctx, domain.User{MobileNumber: mobile, IsVerified: true})

	_ = tokens.Create(ctx, tokenrepo.Token{Token: "old", UserID: u.ID, Kind: tokenrepo.KindAccess, ExpiresAt: time.Now().Add(-time.Minute)})
	if _, err := svc.LookupByToken(ctx, "old"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, ok := tokens.tokens["old"]; ok {
		t.Fatalf("expired token should be deleted on lookup")
	}
	if _, err := svc.LookupByToken(ctx, "missing"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestUpdateProfileAndRole(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	u, _ := repo.Create(ctx, domain.User{MobileNumber: mobile, IsVerified: true, Profile: domain.Profile{Address: "Main St"}})

	first, email := "Sara", "sara@example.com"
	got, err := svc.UpdateProfile(ctx, u.ID, ProfileInput{FirstName: &first, Email: &email})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if got.Profile.FirstName != "Sara" || got.Profile.Email != email || got.Profile.Address != "Main St" {
		t.Fatalf("unexpected profile %+v", got.Profile)
	}

	bad := "not-an-email"
	if _, err := svc.UpdateProfile(ctx, u.ID, ProfileInput{Email: &bad}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	admin, err := svc.SetAdmin(ctx, u.ID, true)
	if err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if !admin.IsAdmin {
		t.Fatalf("expected admin")
	}
	if _, err := svc.SetAdmin(ctx, "nobody", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegister_SendFailure(t *testing.T) {
	svc, _, _, sms := newTestService()
	sms.err = errors.New("sms gateway down")
	if _, err := svc.Register(context.Background(), mobile); !errors.Is(err, sms.err) {
		t.Fatalf("expected send error, got %v", err)
	}
}

func TestGenerateOTP(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		code, err := generateOTP(n)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != n {
			t.Fatalf("expected length %d, got %q", n, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in %q", code)
			}
		}
	}
}

func TestPurgeExpiredTokens(t *testing.T) {
	svc, _, tokens, _ := newTestService()
	ctx := context.Background()
	now := time.Now()
	_ = tokens.Create(ctx, tokenrepo.Token{Token: "a", UserID: "u", Kind: tokenrepo.KindAccess, ExpiresAt: now.Add(-time.Hour)})
	_ = tokens.Create(ctx, tokenrepo.Token{Token: "b", UserID: "u", Kind: tokenrepo.KindAccess, ExpiresAt: now.Add(time.Hour)})

	n, err := svc.PurgeExpiredTokens(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged token, got %d", n)
	}
	if _, ok := tokens.tokens["b"]; !ok {
		t.Fatalf("live token must survive")
	}
}
