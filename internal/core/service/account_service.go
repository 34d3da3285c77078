package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/onboardhq/account-service/internal/api/metrics"
	"github.com/onboardhq/account-service/internal/core/credentials"
	"github.com/onboardhq/account-service/internal/core/domain"
	"github.com/onboardhq/account-service/internal/core/ports"
	"github.com/onboardhq/account-service/internal/core/token"
)

// AccountService implements the account lifecycle: registration, email
// verification, login/logout, password change/reset and admin management.
type AccountService struct {
	repo    ports.AccountRepository
	hasher  *credentials.Hasher
	tokens  *token.Issuer
	mail    ports.MailQueue
	baseURL string
	log     zerolog.Logger
}

func NewAccountService(
	repo ports.AccountRepository,
	hasher *credentials.Hasher,
	tokens *token.Issuer,
	mail ports.MailQueue,
	baseURL string,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		mail:    mail,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log,
	}
}

// Register creates an unverified account and queues the verification email.
// Emails are stored lower-cased; a duplicate in any case is rejected.
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if err != domain.ErrAccountNotFound {
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	verifyToken, err := s.tokens.IssueVerification(email)
	if err != nil {
		return nil, fmt.Errorf("register: issue token: %w", err)
	}

	now := time.Now().UTC()
	account := &domain.Account{
		Username:          in.Username,
		Email:             email,
		PasswordHash:      hash,
		VerificationToken: verifyToken,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	created, err := s.repo.Insert(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("register: insert account: %w", err)
	}

	s.sendVerificationMail(created, verifyToken, "Kindly Verify", "verify")
	metrics.RegistrationsTotal.Inc()
	s.log.Info().Str("account_id", created.ID).Str("email", created.Email).Msg("account registered")

	return created, nil
}

// VerifyEmail validates the link token first and marks the account verified
// only when the token is good. An expired or forged token leaves the account
// untouched.
func (s *AccountService) VerifyEmail(ctx context.Context, id, linkToken string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.tokens.Verify(linkToken); err != nil {
		metrics.VerificationsTotal.WithLabelValues("expired").Inc()
		return nil, domain.ErrTokenExpired
	}

	account.IsVerified = true
	account.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("verify email: update account: %w", err)
	}

	metrics.VerificationsTotal.WithLabelValues("verified").Inc()
	s.log.Info().Str("account_id", updated.ID).Msg("email verified")
	return updated, nil
}

// ResendVerification issues a fresh verification token and queues a new
// email. The verified flag is not touched here; only the link flips it.
func (s *AccountService) ResendVerification(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}

	verifyToken, err := s.tokens.IssueVerification(account.Email)
	if err != nil {
		return nil, fmt.Errorf("resend verification: issue token: %w", err)
	}

	account.VerificationToken = verifyToken
	account.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("resend verification: update account: %w", err)
	}

	s.sendVerificationMail(updated, verifyToken, "Kindly RE-VERIFY", "re-verify")
	return updated, nil
}

// Login checks verification state and password, marks the account logged in,
// and returns a short-lived access token.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, err
	}

	if !account.IsVerified {
		metrics.LoginsTotal.WithLabelValues("unverified").Inc()
		return "", nil, domain.ErrNotVerified
	}

	if !s.hasher.Compare(account.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("bad_password").Inc()
		return "", nil, domain.ErrIncorrectPassword
	}

	account.IsLoggedIn = true
	account.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return "", nil, fmt.Errorf("login: update account: %w", err)
	}

	accessToken, err := s.tokens.IssueAccess(updated)
	if err != nil {
		return "", nil, fmt.Errorf("login: issue access token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("account_id", updated.ID).Msg("login successful")
	return accessToken, updated, nil
}

// SignOut clears the stored token and the logged-in flag.
func (s *AccountService) SignOut(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	account.VerificationToken = ""
	account.IsLoggedIn = false
	account.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("sign out: update account: %w", err)
	}

	s.log.Info().Str("account_id", updated.ID).Msg("signed out")
	return updated, nil
}

// ListLoggedIn returns every account currently logged in.
func (s *AccountService) ListLoggedIn(ctx context.Context) ([]*domain.Account, error) {
	loggedIn := true
	accounts, err := s.repo.List(ctx, ports.ListAccountsFilter{IsLoggedIn: &loggedIn})
	if err != nil {
		return nil, fmt.Errorf("list logged in: %w", err)
	}
	if len(accounts) == 0 {
		return nil, domain.ErrNoAccounts
	}
	return accounts, nil
}

// ChangePassword requires the caller's current password before storing the
// new hash.
func (s *AccountService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Compare(account.PasswordHash, currentPassword) {
		return nil, domain.ErrIncorrectPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("change password: hash password: %w", err)
	}

	account.PasswordHash = hash
	account.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("change password: update account: %w", err)
	}

	s.log.Info().Str("account_id", updated.ID).Msg("password changed")
	return updated, nil
}

// ForgotPassword queues a reset link bound to the account id. The token is
// not persisted; expiry alone bounds its use.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}

	resetToken, err := s.tokens.IssueReset(account.ID)
	if err != nil {
		return fmt.Errorf("forgot password: issue token: %w", err)
	}

	link := fmt.Sprintf("%s/api/reset/%s/%s", s.baseURL, account.ID, resetToken)
	s.mail.Enqueue(domain.MailMessage{
		Recipient: account.Email,
		Subject:   "Link for Reset password",
		Body: fmt.Sprintf("Forgot your Password? it's okay, kindly use this link %s to re-set your account password. "+
			"Kindly note that this link will expire after 5(five) Minutes.", link),
	})
	return nil
}

// ResetPassword validates the link token first; the stored hash changes only
// when the token is good.
func (s *AccountService) ResetPassword(ctx context.Context, id, linkToken, newPassword string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	claims, err := s.tokens.Verify(linkToken)
	if err != nil {
		return nil, domain.ErrTokenExpired
	}
	if sub, _ := claims["sub"].(string); sub != account.ID {
		return nil, domain.ErrTokenExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("reset password: hash password: %w", err)
	}

	account.PasswordHash = hash
	account.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("reset password: update account: %w", err)
	}

	s.log.Info().Str("account_id", updated.ID).Msg("password reset")
	return updated, nil
}

// ListUsers returns every non-admin account.
func (s *AccountService) ListUsers(ctx context.Context) ([]*domain.Account, error) {
	isAdmin := false
	accounts, err := s.repo.List(ctx, ports.ListAccountsFilter{IsAdmin: &isAdmin})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if len(accounts) == 0 {
		return nil, domain.ErrNoAccounts
	}
	return accounts, nil
}

// AdminUpdate applies a partial update to the target account after checking
// that the acting account exists and carries the admin grant.
func (s *AccountService) AdminUpdate(ctx context.Context, adminID, targetID string, in ports.UpdateAccountInput) (*domain.Account, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	account, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if in.Username != "" {
		account.Username = in.Username
	}
	if in.Email != "" {
		account.Email = strings.ToLower(strings.TrimSpace(in.Email))
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("admin update: hash password: %w", err)
		}
		account.PasswordHash = hash
	}

	account.UpdatedAt = time.Now().UTC()
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("admin update: update account: %w", err)
	}

	s.log.Info().Str("admin_id", adminID).Str("account_id", updated.ID).Msg("account updated by admin")
	return updated, nil
}

// AdminDelete removes the target account after the admin check.
func (s *AccountService) AdminDelete(ctx context.Context, adminID, targetID string) error {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, targetID); err != nil {
		return err
	}

	s.log.Info().Str("admin_id", adminID).Str("account_id", targetID).Msg("account deleted by admin")
	return nil
}

// GetAccount loads a single account by id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.repo.FindByID(ctx, id)
}

// requireAdmin fails with ErrAccountNotFound when the acting account does not
// exist and ErrNotAdmin when it exists without the admin grant.
func (s *AccountService) requireAdmin(ctx context.Context, adminID string) error {
	admin, err := s.repo.FindByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin.IsAdmin {
		return domain.ErrNotAdmin
	}
	return nil
}

func (s *AccountService) sendVerificationMail(account *domain.Account, verifyToken, subject, verb string) {
	link := fmt.Sprintf("%s/api/verify/%s/%s", s.baseURL, account.ID, verifyToken)
	s.mail.Enqueue(domain.MailMessage{
		Recipient: account.Email,
		Subject:   subject,
		Body: fmt.Sprintf("Welcome onBoard, kindly use this link %s to %s your account. "+
			"Kindly note that this link will expire after 1(one) Day.", link, verb),
	})
}
