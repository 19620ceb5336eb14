package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-water-tracker/internal/domain/repository"
	"github.com/oksasatya/go-water-tracker/pkg/helpers"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	ResetTokenTTL     = 30 * time.Minute
	DeleteConfirmTTL  = 5 * time.Minute
)

var ErrInvalidCredentials = apperror.Unauthorized("email or password is wrong")

func keyResetToken(t string) string { return "pwd:reset:token:" + t }
func keyDeleteConfirm(uid string) string { return "user:delete:confirmed:" + uid }

// Service implements the account use cases: registration, verification,
// sessions, profile and account deletion.
type Service struct {
	Repo       repo.UserRepository
	Records    repo.DailyRecordRepository
	Sessions   repo.SessionStore
	Tokens     repo.TokenStore
	JWT        *helpers.JWTManager
	Avatars    AvatarStorage
	Index      UserIndex
	Notify     *Notifier
	Logger     *logrus.Logger
	SessionTTL time.Duration

	DefaultGoal int
}

type ServiceDeps struct {
	Users       repo.UserRepository
	Records     repo.DailyRecordRepository
	Sessions    repo.SessionStore
	Tokens      repo.TokenStore
	JWT         *helpers.JWTManager
	Avatars     AvatarStorage
	Index       UserIndex
	Notify      *Notifier
	Logger      *logrus.Logger
	SessionTTL  time.Duration
	DefaultGoal int
}

func NewService(d ServiceDeps) *Service {
	if d.SessionTTL <= 0 {
		d.SessionTTL = DefaultSessionTTL
	}
	if d.DefaultGoal <= 0 {
		d.DefaultGoal = entity.DefaultDailyWaterGoal
	}
	return &Service{
		Repo:        d.Users,
		Records:     d.Records,
		Sessions:    d.Sessions,
		Tokens:      d.Tokens,
		JWT:         d.JWT,
		Avatars:     d.Avatars,
		Index:       d.Index,
		Notify:      d.Notify,
		Logger:      loggerOrDiscard(d.Logger),
		SessionTTL:  d.SessionTTL,
		DefaultGoal: d.DefaultGoal,
	}
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(plain string) (string, error) {
	hash, err := helpers.HashPassword(plain)
	if errors.Is(err, helpers.ErrPasswordTooLong) {
		return "", apperror.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return "", apperror.Store("hash password", err)
	}
	return hash, nil
}

// Register creates an unverified account and sends the verification email.
func (s *Service) Register(ctx context.Context, email, password string, meta RequestMeta) (*entity.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.Validation("email and password are required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		Email:             email,
		Password:          hash,
		Name:              helpers.NameFromEmail(email),
		Gender:            entity.GenderWoman,
		DailyWaterGoal:    s.DefaultGoal,
		AvatarURL:         helpers.GravatarURL(email),
		VerificationToken: uuid.NewString(),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.indexUser(ctx, u)
	s.Notify.VerifyEmail(ctx, u, meta)
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user registered")
	return u, nil
}

func (s *Service) Verify(ctx context.Context, token string) error {
	u, err := s.Repo.GetByVerificationToken(ctx, token)
	if err != nil {
		return err
	}
	u.IsVerified = true
	u.VerificationToken = ""
	return s.Repo.Update(ctx, u)
}

// ResendVerification mails the verification link again. It fails with a
// validation error once the account is verified.
func (s *Service) ResendVerification(ctx context.Context, email string, meta RequestMeta) error {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if u.IsVerified {
		return apperror.Validation("verification has already been passed")
	}
	if u.VerificationToken == "" {
		u.VerificationToken = uuid.NewString()
		if err := s.Repo.Update(ctx, u); err != nil {
			return err
		}
	}
	s.Notify.VerifyEmail(ctx, u, meta)
	return nil
}

// Authenticate validates email/password without issuing tokens.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueTokens generates access/refresh tokens and records the session.
func (s *Service) IssueTokens(ctx context.Context, u *entity.User) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.signPair(u.ID, sid)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate tokens failed")
		return TokenPair{}, err
	}
	sess := entity.Session{UserID: u.ID, SessionID: sid, Email: u.Email, Name: u.Name, AvatarURL: u.AvatarURL}
	if err := s.Sessions.Save(ctx, sess, s.SessionTTL); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

func (s *Service) signPair(userID, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(userID, sid)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Login requires a verified account.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (*entity.User, TokenPair, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !u.IsVerified {
		return nil, TokenPair{}, apperror.Unauthorized("email is not verified")
	}
	pair, err := s.IssueTokens(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.Notify.LoginNotification(ctx, u, meta)
	return u, pair, nil
}

// Refresh rotates the session id and both tokens. The refresh token must
// belong to the current session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, string, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, "", apperror.Unauthorized("invalid refresh token")
	}
	sess, err := s.Sessions.Get(ctx, claims.UserID)
	if errors.Is(err, apperror.ErrNotFound) || (err == nil && sess.SessionID != claims.SessionID) {
		return TokenPair{}, "", apperror.Unauthorized("session expired")
	}
	if err != nil {
		return TokenPair{}, "", err
	}

	sid := uuid.NewString()
	pair, err := s.signPair(claims.UserID, sid)
	if err != nil {
		return TokenPair{}, "", err
	}
	if err := s.Sessions.Rotate(ctx, claims.UserID, sid); err != nil {
		return TokenPair{}, "", err
	}
	return pair, claims.UserID, nil
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.Sessions.Delete(ctx, userID)
}

// RequestPasswordReset issues a reset token when the email is known. Unknown
// emails succeed silently so the endpoint cannot be used to enumerate accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string, meta RequestMeta) error {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperror.ErrNotFound) {
		s.Logger.WithField("email", email).Info("password reset for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	tok := uuid.NewString()
	if err := s.Tokens.Set(ctx, keyResetToken(tok), u.ID, ResetTokenTTL); err != nil {
		return err
	}
	s.Notify.PasswordReset(ctx, u, tok, ResetTokenTTL, meta)
	return nil
}

// ResetPassword consumes a reset token and ends the user's session.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	uid, err := s.Tokens.Get(ctx, keyResetToken(token))
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.Validation("invalid or expired token")
	}
	if err != nil {
		return err
	}
	u, err := s.Repo.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	if err := s.Repo.Update(ctx, u); err != nil {
		return err
	}
	if err := s.Tokens.Del(ctx, keyResetToken(token)); err != nil {
		s.Logger.WithError(err).Warn("delete reset token failed")
	}
	if err := s.Sessions.Delete(ctx, uid); err != nil {
		s.Logger.WithError(err).WithField("user_id", uid).Warn("delete session failed")
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return s.Repo.GetByID(ctx, userID)
}

// UpdateProfileInput carries optional changes; nil pointers and empty
// passwords leave the field untouched.
type UpdateProfileInput struct {
	Name        *string
	Gender      *string
	Email       *string
	OldPassword string
	NewPassword string
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput, meta RequestMeta) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	changes := map[string]string{}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" && *in.Name != u.Name {
		u.Name = strings.TrimSpace(*in.Name)
		changes["name"] = u.Name
	}
	if in.Gender != nil && *in.Gender != "" && *in.Gender != u.Gender {
		if *in.Gender != entity.GenderWoman && *in.Gender != entity.GenderMan {
			return nil, apperror.Validation("gender must be woman or man")
		}
		u.Gender = *in.Gender
		changes["gender"] = u.Gender
	}
	if in.Email != nil {
		if email := normalizeEmail(*in.Email); email != "" && email != u.Email {
			u.Email = email
			changes["email"] = u.Email
		}
	}
	if in.NewPassword != "" {
		if in.OldPassword == "" || !helpers.CompareHashAndPassword(u.Password, in.OldPassword) {
			return nil, apperror.Validation("old password is wrong")
		}
		hash, err := hashPassword(in.NewPassword)
		if err != nil {
			return nil, err
		}
		u.Password = hash
		changes["password"] = "changed"
	}
	if len(changes) == 0 {
		return u, nil
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}

	if err := s.Sessions.UpdateProfile(ctx, u.ID, u.Name, u.AvatarURL); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("session profile refresh failed")
	}
	s.indexUser(ctx, u)
	s.Notify.ProfileUpdated(ctx, u, changes, meta)
	return u, nil
}

// UploadAvatar stores the image and points the profile at it.
func (s *Service) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (*entity.User, error) {
	if s.Avatars == nil {
		return nil, apperror.Store("upload avatar", errors.New("avatar storage not configured"))
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.Avatars.Upload(ctx, userID, r, filename, contentType)
	if err != nil {
		return nil, apperror.Store("upload avatar", err)
	}
	u.AvatarURL = url
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	if err := s.Sessions.UpdateProfile(ctx, u.ID, u.Name, u.AvatarURL); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("session profile refresh failed")
	}
	s.indexUser(ctx, u)
	return u, nil
}

// ValidatePassword checks the current password. A match arms account
// deletion for DeleteConfirmTTL.
func (s *Service) ValidatePassword(ctx context.Context, userID, password string) (bool, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return false, nil
	}
	if err := s.Tokens.Set(ctx, keyDeleteConfirm(userID), "1", DeleteConfirmTTL); err != nil {
		return false, err
	}
	return true, nil
}

type DeleteResult struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	RecordsDeleted int64  `json:"records_deleted"`
	IsDeleted      bool   `json:"is_deleted"`
}

// DeleteAccount removes the user and every daily record they own. It needs
// a successful ValidatePassword within the last DeleteConfirmTTL.
func (s *Service) DeleteAccount(ctx context.Context, userID string, meta RequestMeta) (*DeleteResult, error) {
	if _, err := s.Tokens.Get(ctx, keyDeleteConfirm(userID)); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Validation("password confirmation required")
		}
		return nil, err
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	n, err := s.Records.DeleteMany(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Delete(ctx, userID); err != nil {
		return nil, err
	}

	if s.Index != nil {
		if err := s.Index.Delete(ctx, userID); err != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("search index delete failed")
		}
	}
	if err := s.Sessions.Delete(ctx, userID); err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("delete session failed")
	}
	_ = s.Tokens.Del(ctx, keyDeleteConfirm(userID))
	s.Notify.AccountDeleted(ctx, u.Email, u.Name, n, meta)

	s.Logger.WithFields(logrus.Fields{"user_id": userID, "records_deleted": n}).Info("account deleted")
	return &DeleteResult{Email: u.Email, Name: u.Name, RecordsDeleted: n, IsDeleted: true}, nil
}

// SearchUsers queries the user directory.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.Index == nil {
		return []map[string]any{}, nil
	}
	out, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, apperror.Store("search users", err)
	}
	return out, nil
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, u); err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}
