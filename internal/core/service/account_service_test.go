package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/onboardhq/account-service/internal/core/credentials"
	"github.com/onboardhq/account-service/internal/core/domain"
	"github.com/onboardhq/account-service/internal/core/ports"
	"github.com/onboardhq/account-service/internal/core/token"
)

type stubAccountRepo struct {
	accounts map[string]*domain.Account
	seq      int
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{accounts: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	if a, ok := r.accounts[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) Insert(_ context.Context, account *domain.Account) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.Email == account.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.seq++
	copy := cloneAccount(account)
	copy.ID = fmt.Sprintf("acc-%d", r.seq)
	r.accounts[copy.ID] = cloneAccount(copy)
	return cloneAccount(copy), nil
}

func (r *stubAccountRepo) Update(_ context.Context, account *domain.Account) (*domain.Account, error) {
	if _, ok := r.accounts[account.ID]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	r.accounts[account.ID] = cloneAccount(account)
	return cloneAccount(account), nil
}

func (r *stubAccountRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *stubAccountRepo) List(_ context.Context, filter ports.ListAccountsFilter) ([]*domain.Account, error) {
	var out []*domain.Account
	for _, a := range r.accounts {
		if filter.IsLoggedIn != nil && a.IsLoggedIn != *filter.IsLoggedIn {
			continue
		}
		if filter.IsAdmin != nil && a.IsAdmin != *filter.IsAdmin {
			continue
		}
		out = append(out, cloneAccount(a))
	}
	return out, nil
}

type stubMailQueue struct {
	sent []domain.MailMessage
}

func (q *stubMailQueue) Enqueue(msg domain.MailMessage) {
	q.sent = append(q.sent, msg)
}

func newTestService() (*AccountService, *stubAccountRepo, *stubMailQueue) {
	repo := newStubAccountRepo()
	mail := &stubMailQueue{}
	svc := NewAccountService(
		repo,
		credentials.NewHasher(),
		token.NewIssuer("secret"),
		mail,
		"http://localhost:8080",
		zerolog.Nop(),
	)
	return svc, repo, mail
}

func register(t *testing.T, svc *AccountService, username, email, password string) *domain.Account {
	t.Helper()
	account, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return account
}

func TestRegister_Success(t *testing.T) {
	svc, _, mail := newTestService()

	account := register(t, svc, "alice", "Alice@Example.com", "pass123")

	if account.Email != "alice@example.com" {
		t.Fatalf("expected lower-cased email, got %q", account.Email)
	}
	if account.IsVerified {
		t.Fatalf("new account must start unverified")
	}
	if account.PasswordHash == "pass123" || account.PasswordHash == "" {
		t.Fatalf("password must be hashed, got %q", account.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if account.VerificationToken == "" {
		t.Fatalf("verification token must be stored on the account")
	}

	if len(mail.sent) != 1 {
		t.Fatalf("expected 1 verification mail, got %d", len(mail.sent))
	}
	msg := mail.sent[0]
	if msg.Recipient != "alice@example.com" {
		t.Fatalf("unexpected recipient: %s", msg.Recipient)
	}
	wantLink := "http://localhost:8080/api/verify/" + account.ID + "/"
	if !strings.Contains(msg.Body, wantLink) {
		t.Fatalf("mail body missing verification link %q: %s", wantLink, msg.Body)
	}
}

func TestRegister_DuplicateEmailAnyCase(t *testing.T) {
	svc, _, _ := newTestService()

	register(t, svc, "a", "a@x.com", "p")

	_, err := svc.Register(context.Background(), ports.RegisterInput{
		Username: "b", Email: "A@X.COM", Password: "p2",
	})
	if err != domain.ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestVerifyEmail_ValidToken(t *testing.T) {
	svc, repo, _ := newTestService()

	account := register(t, svc, "alice", "alice@x.com", "p")

	verified, err := svc.VerifyEmail(context.Background(), account.ID, account.VerificationToken)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !verified.IsVerified {
		t.Fatalf("account must be verified after a valid token")
	}
	stored, _ := repo.FindByID(context.Background(), account.ID)
	if !stored.IsVerified {
		t.Fatalf("verified flag not persisted")
	}
}

func TestVerifyEmail_InvalidTokenLeavesAccountUnverified(t *testing.T) {
	svc, repo, _ := newTestService()

	account := register(t, svc, "alice", "alice@x.com", "p")

	if _, err := svc.VerifyEmail(context.Background(), account.ID, "not-a-token"); err != domain.ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), account.ID)
	if stored.IsVerified {
		t.Fatalf("invalid token must not flip the verified flag")
	}
}

func TestVerifyEmail_AccountNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.VerifyEmail(context.Background(), "ghost", "token"); err != domain.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestResendVerification_DoesNotMarkVerified(t *testing.T) {
	svc, repo, mail := newTestService()

	account := register(t, svc, "bob", "bob@x.com", "p")

	updated, err := svc.ResendVerification(context.Background(), "bob@x.com")
	if err != nil {
		t.Fatalf("resend failed: %v", err)
	}
	if updated.IsVerified {
		t.Fatalf("resend must not mark the account verified")
	}
	if updated.VerificationToken == "" {
		t.Fatalf("fresh token must be stored")
	}
	stored, _ := repo.FindByID(context.Background(), account.ID)
	if stored.IsVerified {
		t.Fatalf("verified flag must stay false in the store")
	}
	if len(mail.sent) != 2 {
		t.Fatalf("expected registration + resend mails, got %d", len(mail.sent))
	}
}

func TestResendVerification_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.ResendVerification(context.Background(), "ghost@x.com"); err != domain.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestLogin_UnverifiedAlwaysFails(t *testing.T) {
	svc, _, _ := newTestService()

	register(t, svc, "carol", "carol@x.com", "s3cret")

	// correct password, still rejected
	if _, _, err := svc.Login(context.Background(), "carol@x.com", "s3cret"); err != domain.ErrNotVerified {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "carol@x.com", "wrong"); err != domain.ErrNotVerified {
		t.Fatalf("expected ErrNotVerified for wrong password too, got %v", err)
	}
}

func verifyAccount(t *testing.T, svc *AccountService, account *domain.Account) {
	t.Helper()
	if _, err := svc.VerifyEmail(context.Background(), account.ID, account.VerificationToken); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, repo, _ := newTestService()

	account := register(t, svc, "carol", "carol@x.com", "s3cret")
	verifyAccount(t, svc, account)

	accessToken, logged, err := svc.Login(context.Background(), "Carol@X.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !logged.IsLoggedIn {
		t.Fatalf("login must set IsLoggedIn")
	}
	stored, _ := repo.FindByID(context.Background(), account.ID)
	if !stored.IsLoggedIn {
		t.Fatalf("IsLoggedIn not persisted")
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims["sub"] != account.ID {
		t.Fatalf("expected sub %s, got %v", account.ID, claims["sub"])
	}
	if claims["username"] != "carol" || claims["email"] != "carol@x.com" {
		t.Fatalf("unexpected identity claims: %v", claims)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo, _ := newTestService()

	account := register(t, svc, "dave", "dave@x.com", "goodpass")
	verifyAccount(t, svc, account)

	if _, _, err := svc.Login(context.Background(), "dave@x.com", "badpass"); err != domain.ErrIncorrectPassword {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
	stored, _ := repo.FindByID(context.Background(), account.ID)
	if stored.IsLoggedIn {
		t.Fatalf("failed login must not set IsLoggedIn")
	}
}

func TestLogin_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	if _, _, err := svc.Login(context.Background(), "ghost@x.com", "p"); err != domain.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestSignOut(t *testing.T) {
	svc, repo, _ := newTestService()

	account := register(t, svc, "erin", "erin@x.com", "p")
	verifyAccount(t, svc, account)
	if _, _, err := svc.Login(context.Background(), "erin@x.com", "p"); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, err := svc.SignOut(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("sign out failed: %v", err)
	}
	if out.IsLoggedIn {
		t.Fatalf("sign out must clear IsLoggedIn")
	}
	if out.VerificationToken != "" {
		t.Fatalf("sign out must clear the stored token")
	}
	stored, _ := repo.FindByID(context.Background(), account.ID)
	if stored.IsLoggedIn {
		t.Fatalf("logout not persisted")
	}
}

func TestListLoggedIn(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.ListLoggedIn(context.Background()); err != domain.ErrNoAccounts {
		t.Fatalf("expected ErrNoAccounts on empty list, got %v", err)
	}

	a := register(t, svc, "frank", "frank@x.com", "p")
	verifyAccount(t, svc, a)
	register(t, svc, "grace", "grace@x.com", "p")
	if _, _, err := svc.Login(context.Background(), "frank@x.com", "p"); err != nil {
		t.Fatalf("login: %v", err)
	}

	accounts, err := svc.ListLoggedIn(context.Background())
	if err != nil {
		t.Fatalf("list logged in: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Email != "frank@x.com" {
		t.Fatalf("unexpected logged-in set: %+v", accounts)
	}
}

func TestChangePassword_RequiresCurrentPassword(t *testing.T) {
	svc, _, _ := newTestService()

	account := register(t, svc, "henry", "henry@x.com", "oldpass")

	if _, err := svc.ChangePassword(context.Background(), account.ID, "wrong", "newpass"); err != domain.ErrIncorrectPassword {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}

	updated, err := svc.ChangePassword(context.Background(), account.ID, "oldpass", "newpass")
	if err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpass")); err != nil {
		t.Fatalf("new password not stored: %v", err)
	}
}

func TestForgotPassword_SendsResetLink(t *testing.T) {
	svc, _, mail := newTestService()

	account := register(t, svc, "ivy", "ivy@x.com", "p")
	mail.sent = nil

	if err := svc.ForgotPassword(context.Background(), "ivy@x.com"); err != nil {
		t.Fatalf("forgot password failed: %v", err)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected 1 reset mail, got %d", len(mail.sent))
	}
	wantLink := "http://localhost:8080/api/reset/" + account.ID + "/"
	if !strings.Contains(mail.sent[0].Body, wantLink) {
		t.Fatalf("mail body missing reset link %q: %s", wantLink, mail.sent[0].Body)
	}
}

func TestForgotPassword_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	if err := svc.ForgotPassword(context.Background(), "ghost@x.com"); err != domain.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestResetPassword_ValidToken(t *testing.T) {
	svc, _, _ := newTestService()

	account := register(t, svc, "jack", "jack@x.com", "oldpass")
	resetToken, err := token.NewIssuer("secret").IssueReset(account.ID)
	if err != nil {
		t.Fatalf("issue reset token: %v", err)
	}

	updated, err := svc.ResetPassword(context.Background(), account.ID, resetToken, "newpass")
	if err != nil {
		t.Fatalf("reset password failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpass")); err != nil {
		t.Fatalf("new password not stored: %v", err)
	}
}

func TestResetPassword_InvalidTokenKeepsOldPassword(t *testing.T) {
	svc, repo, _ := newTestService()

	account := register(t, svc, "kate", "kate@x.com", "oldpass")

	if _, err := svc.ResetPassword(context.Background(), account.ID, "garbage", "newpass"); err != domain.ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), account.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("oldpass")); err != nil {
		t.Fatalf("old password must survive a failed reset: %v", err)
	}
}

func TestResetPassword_TokenBoundToOtherAccount(t *testing.T) {
	svc, _, _ := newTestService()

	a := register(t, svc, "liam", "liam@x.com", "p")
	b := register(t, svc, "mia", "mia@x.com", "p")

	tokenForB, err := token.NewIssuer("secret").IssueReset(b.ID)
	if err != nil {
		t.Fatalf("issue reset token: %v", err)
	}
	if _, err := svc.ResetPassword(context.Background(), a.ID, tokenForB, "newpass"); err != domain.ErrTokenExpired {
		t.Fatalf("reset token must be bound to the account id, got %v", err)
	}
}

func TestListUsers_NonAdminsOnly(t *testing.T) {
	svc, repo, _ := newTestService()

	if _, err := svc.ListUsers(context.Background()); err != domain.ErrNoAccounts {
		t.Fatalf("expected ErrNoAccounts on empty list, got %v", err)
	}

	register(t, svc, "nina", "nina@x.com", "p")
	admin := register(t, svc, "root", "root@x.com", "p")
	stored, _ := repo.FindByID(context.Background(), admin.ID)
	stored.IsAdmin = true
	if _, err := repo.Update(context.Background(), stored); err != nil {
		t.Fatalf("grant admin: %v", err)
	}

	users, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].Email != "nina@x.com" {
		t.Fatalf("admins must be excluded: %+v", users)
	}
}

func grantAdmin(t *testing.T, repo *stubAccountRepo, id string) {
	t.Helper()
	stored, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	stored.IsAdmin = true
	if _, err := repo.Update(context.Background(), stored); err != nil {
		t.Fatalf("grant admin: %v", err)
	}
}

func TestAdminUpdate_PartialFallback(t *testing.T) {
	svc, repo, _ := newTestService()

	admin := register(t, svc, "root", "root@x.com", "p")
	grantAdmin(t, repo, admin.ID)
	target := register(t, svc, "olive", "olive@x.com", "p")

	updated, err := svc.AdminUpdate(context.Background(), admin.ID, target.ID, ports.UpdateAccountInput{
		Username: "olivia",
	})
	if err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	if updated.Username != "olivia" {
		t.Fatalf("username not updated: %s", updated.Username)
	}
	if updated.Email != "olive@x.com" {
		t.Fatalf("omitted email must keep current value, got %s", updated.Email)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("p")); err != nil {
		t.Fatalf("omitted password must keep current hash: %v", err)
	}
}

func TestAdminUpdate_RejectsNonAdmin(t *testing.T) {
	svc, _, _ := newTestService()

	actor := register(t, svc, "pete", "pete@x.com", "p")
	target := register(t, svc, "quinn", "quinn@x.com", "p")

	if _, err := svc.AdminUpdate(context.Background(), actor.ID, target.ID, ports.UpdateAccountInput{Username: "x"}); err != domain.ErrNotAdmin {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
}

func TestAdminUpdate_MissingAdminIsNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	target := register(t, svc, "ruth", "ruth@x.com", "p")

	if _, err := svc.AdminUpdate(context.Background(), "ghost", target.ID, ports.UpdateAccountInput{Username: "x"}); err != domain.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound for missing admin, got %v", err)
	}
}

func TestAdminDelete(t *testing.T) {
	svc, repo, _ := newTestService()

	admin := register(t, svc, "root", "root@x.com", "p")
	grantAdmin(t, repo, admin.ID)
	target := register(t, svc, "sam", "sam@x.com", "p")

	if err := svc.AdminDelete(context.Background(), admin.ID, target.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if _, err := repo.FindByID(context.Background(), target.ID); err != domain.ErrAccountNotFound {
		t.Fatalf("target must be gone, got %v", err)
	}

	if err := svc.AdminDelete(context.Background(), admin.ID, target.ID); err != domain.ErrAccountNotFound {
		t.Fatalf("deleting a missing target must be not-found, got %v", err)
	}
}

func TestAdminDelete_RejectsNonAdmin(t *testing.T) {
	svc, _, _ := newTestService()

	actor := register(t, svc, "tina", "tina@x.com", "p")
	target := register(t, svc, "uma", "uma@x.com", "p")

	if err := svc.AdminDelete(context.Background(), actor.ID, target.ID); err != domain.ErrNotAdmin {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
}
