package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oksasatya/go-water-tracker/config"
	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/internal/infrastructure/memory"
	"github.com/oksasatya/go-water-tracker/pkg/helpers"
	"github.com/oksasatya/go-water-tracker/pkg/mailer"
	tpl "github.com/oksasatya/go-water-tracker/pkg/mailer/templates"
)

type fakePublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
}

func (p *fakePublisher) PublishJSON(ctx context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, body.(mailer.EmailJob))
	return nil
}

func (p *fakePublisher) last(t *testing.T) mailer.EmailJob {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.jobs) == 0 {
		t.Fatal("no email published")
	}
	return p.jobs[len(p.jobs)-1]
}

type fakeIndex struct {
	indexed map[string]string
	deleted []string
}

func (x *fakeIndex) Index(ctx context.Context, u *entity.User) error {
	x.indexed[u.ID] = u.Email
	return nil
}

func (x *fakeIndex) Delete(ctx context.Context, userID string) error {
	x.deleted = append(x.deleted, userID)
	delete(x.indexed, userID)
	return nil
}

func (x *fakeIndex) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	var out []map[string]any
	for id, email := range x.indexed {
		if strings.Contains(email, q) {
			out = append(out, map[string]any{"id": id, "email": email})
		}
	}
	return out, nil
}

type userFixture struct {
	svc     *Service
	records *DailyRecordService
	pub     *fakePublisher
	index   *fakeIndex
	tokens  *memory.TokenStore
}

func newUserFixture(t *testing.T) userFixture {
	t.Helper()
	users := memory.NewUserRepository()
	recs := memory.NewDailyRecordRepository()
	tokens := memory.NewTokenStore()
	pub := &fakePublisher{}
	index := &fakeIndex{indexed: map[string]string{}}
	cfg := &config.Config{
		AppName:          "water",
		MailSendEnabled:  true,
		VerifyEmailURL:   "https://api.test/api/auth/verify",
		ResetPasswordURL: "https://app.test/recover-password",
	}
	svc := NewService(ServiceDeps{
		Users:       users,
		Records:     recs,
		Sessions:    memory.NewSessionStore(),
		Tokens:      tokens,
		JWT:         helpers.NewJWTManager("a-secret", "r-secret", time.Minute, time.Hour),
		Index:       index,
		Notify:      NewNotifier(pub, cfg, nil, nil),
		DefaultGoal: 2000,
	})
	return userFixture{
		svc:     svc,
		records: NewDailyRecordService(recs, users, 2000, nil),
		pub:     pub,
		index:   index,
		tokens:  tokens,
	}
}

func (f userFixture) registerVerified(t *testing.T, email, password string) *entity.User {
	t.Helper()
	ctx := context.Background()
	u, err := f.svc.Register(ctx, email, password, RequestMeta{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.svc.Verify(ctx, u.VerificationToken); err != nil {
		t.Fatalf("verify: %v", err)
	}
	return u
}

func TestRegister_DefaultsAndVerificationMail(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "  Jane.Doe@Example.com ", "password123", RequestMeta{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "jane.doe@example.com" || u.Name != "jane.doe" || u.Gender != entity.GenderWoman {
		t.Fatalf("unexpected defaults: %+v", u)
	}
	if u.DailyWaterGoal != 2000 || u.IsVerified || u.VerificationToken == "" {
		t.Fatalf("unexpected state: %+v", u)
	}
	if !strings.HasPrefix(u.AvatarURL, "https://") {
		t.Fatalf("expected gravatar url, got %q", u.AvatarURL)
	}
	if u.Password == "password123" {
		t.Fatal("password stored in clear text")
	}

	job := f.pub.last(t)
	if job.To != u.Email || job.Template != tpl.Universal || job.Data["Type"] != tpl.VerifyEmail {
		t.Fatalf("unexpected job: %+v", job)
	}
	if link, _ := job.Data["VerifyURL"].(string); link != "https://api.test/api/auth/verify/"+u.VerificationToken {
		t.Fatalf("unexpected verify link %q", link)
	}
	if _, ok := f.index.indexed[u.ID]; !ok {
		t.Fatal("user not indexed")
	}

	if _, err := f.svc.Register(ctx, "jane.doe@example.com", "password123", RequestMeta{}); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
}

func TestRegister_RejectsOverlongPassword(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Register(context.Background(), "long@example.com", strings.Repeat("p", helpers.MaxPasswordBytes+1), RequestMeta{})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.index.indexed) != 0 {
		t.Fatal("user created despite rejected password")
	}
}

func TestLogin_RequiresVerification(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, "a@example.com", "password123", RequestMeta{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := f.svc.Login(ctx, "a@example.com", "password123", RequestMeta{}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized before verification, got %v", err)
	}

	if err := f.svc.ResendVerification(ctx, "a@example.com", RequestMeta{}); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if err := f.svc.Verify(ctx, u.VerificationToken); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := f.svc.Verify(ctx, u.VerificationToken); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("token must be single use, got %v", err)
	}
	if err := f.svc.ResendVerification(ctx, "a@example.com", RequestMeta{}); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error once verified, got %v", err)
	}

	if _, _, err := f.svc.Login(ctx, "a@example.com", "wrong-password", RequestMeta{}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, _, err := f.svc.Login(ctx, "nobody@example.com", "password123", RequestMeta{}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
	got, pair, err := f.svc.Login(ctx, "A@Example.com", "password123", RequestMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("unexpected login result: %+v %+v", got, pair)
	}
}

func TestRefresh_RotatesSession(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u := f.registerVerified(t, "r@example.com", "password123")

	_, pair, err := f.svc.Login(ctx, "r@example.com", "password123", RequestMeta{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	next, uid, err := f.svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if uid != u.ID || next.RefreshToken == pair.RefreshToken {
		t.Fatalf("expected rotated tokens for %s, got uid=%s", u.ID, uid)
	}
	if _, _, err := f.svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("old refresh token must be rejected, got %v", err)
	}
	if _, _, err := f.svc.Refresh(ctx, pair.AccessToken); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	if err := f.svc.Logout(ctx, u.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := f.svc.Refresh(ctx, next.RefreshToken); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
}

func TestPasswordReset(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.registerVerified(t, "p@example.com", "password123")

	if err := f.svc.RequestPasswordReset(ctx, "unknown@example.com", RequestMeta{}); err != nil {
		t.Fatalf("unknown email must succeed silently, got %v", err)
	}
	if err := f.svc.RequestPasswordReset(ctx, "p@example.com", RequestMeta{}); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	job := f.pub.last(t)
	link, _ := job.Data["ResetURL"].(string)
	token := strings.TrimPrefix(link, "https://app.test/recover-password/")
	if token == "" || token == link {
		t.Fatalf("unexpected reset link %q", link)
	}

	if err := f.svc.ResetPassword(ctx, "bogus", "newpassword1"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for unknown token, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "newpassword1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "another-pass"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("token must be single use, got %v", err)
	}
	if _, _, err := f.svc.Login(ctx, "p@example.com", "password123", RequestMeta{}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, _, err := f.svc.Login(ctx, "p@example.com", "newpassword1", RequestMeta{}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u := f.registerVerified(t, "u@example.com", "password123")
	f.registerVerified(t, "taken@example.com", "password123")

	name, gender := "Ursula", entity.GenderMan
	got, err := f.svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: &name, Gender: &gender}, RequestMeta{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Ursula" || got.Gender != entity.GenderMan {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if job := f.pub.last(t); job.Data["Type"] != tpl.ProfileUpdated {
		t.Fatalf("expected profile updated mail, got %v", job.Data["Type"])
	}

	bad := "robot"
	if _, err := f.svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Gender: &bad}, RequestMeta{}); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for gender, got %v", err)
	}
	taken := "taken@example.com"
	if _, err := f.svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: &taken}, RequestMeta{}); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict for taken email, got %v", err)
	}
	if _, err := f.svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{OldPassword: "nope", NewPassword: "newpassword1"}, RequestMeta{}); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for wrong old password, got %v", err)
	}
	if _, err := f.svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{OldPassword: "password123", NewPassword: "newpassword1"}, RequestMeta{}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "u@example.com", "newpassword1"); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
}

func TestUploadAvatar_NotConfigured(t *testing.T) {
	f := newUserFixture(t)
	u := f.registerVerified(t, "av@example.com", "password123")
	if _, err := f.svc.UploadAvatar(context.Background(), u.ID, strings.NewReader("img"), "a.png", "image/png"); apperror.KindOf(err) != apperror.KindStore {
		t.Fatalf("expected store error without storage, got %v", err)
	}
}

func TestDeleteAccount_RequiresConfirmationAndCascades(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	u := f.registerVerified(t, "d@example.com", "password123")
	keep := f.registerVerified(t, "keep@example.com", "password123")

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		d := day.AddDate(0, 0, i)
		if _, err := f.records.AddIntake(ctx, u.ID, d, 200, d, 0); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := f.records.AddIntake(ctx, keep.ID, day, 200, day, 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := f.svc.DeleteAccount(ctx, u.ID, RequestMeta{}); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error without confirmation, got %v", err)
	}
	ok, err := f.svc.ValidatePassword(ctx, u.ID, "wrong")
	if err != nil || ok {
		t.Fatalf("wrong password must not arm deletion: ok=%v err=%v", ok, err)
	}
	if _, err := f.svc.DeleteAccount(ctx, u.ID, RequestMeta{}); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error after failed confirmation, got %v", err)
	}

	ok, err = f.svc.ValidatePassword(ctx, u.ID, "password123")
	if err != nil || !ok {
		t.Fatalf("validate password: ok=%v err=%v", ok, err)
	}
	res, err := f.svc.DeleteAccount(ctx, u.ID, RequestMeta{})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !res.IsDeleted || res.RecordsDeleted != 3 || res.Email != "d@example.com" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, err := f.svc.GetProfile(ctx, u.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("user must be gone, got %v", err)
	}
	if len(f.index.deleted) != 1 || f.index.deleted[0] != u.ID {
		t.Fatalf("expected index delete, got %v", f.index.deleted)
	}
	if job := f.pub.last(t); job.Data["Type"] != tpl.AccountDeleted {
		t.Fatalf("expected account deleted mail, got %v", job.Data["Type"])
	}

	if _, err := f.records.GetDailyRecord(ctx, keep.ID, day); err != nil {
		t.Fatalf("other user's records must survive: %v", err)
	}
}

func TestSearchUsers(t *testing.T) {
	f := newUserFixture(t)
	f.registerVerified(t, "alice@example.com", "password123")
	f.registerVerified(t, "bob@example.com", "password123")

	out, err := f.svc.SearchUsers(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out) != 1 || out[0]["email"] != "alice@example.com" {
		t.Fatalf("unexpected hits: %v", out)
	}

	f.svc.Index = nil
	out, err = f.svc.SearchUsers(context.Background(), "alice", 10)
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("expected empty result without index, got %v (%v)", out, err)
	}
}

func TestNotifier_DisabledPublishesNothing(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub, &config.Config{MailSendEnabled: false}, nil, nil)
	n.LoginNotification(context.Background(), &entity.User{Email: "x@example.com"}, RequestMeta{})
	if len(pub.jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(pub.jobs))
	}

	var nilNotifier *Notifier
	nilNotifier.VerifyEmail(context.Background(), &entity.User{Email: "x@example.com"}, RequestMeta{})
	if got := nilNotifier.VerifyLink("tok"); got != "/api/auth/verify/tok" {
		t.Fatalf("unexpected default link %q", got)
	}
}
