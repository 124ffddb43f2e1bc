package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/repository"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
	"github.com/noah-isme/admissions-api/pkg/mail"
	"github.com/noah-isme/admissions-api/pkg/oauth"
)

type authUserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id int64, patch repository.UserPatch) error
	UpdatePasswordByEmail(ctx context.Context, email, hash string) (int64, error)
	LinkGoogle(ctx context.Context, id int64, googleID string, picture *string) error
	SetRole(ctx context.Context, id int64, role models.UserRole) error
}

type passwordResetStore interface {
	Upsert(ctx context.Context, reset *models.PasswordReset) error
	FindByToken(ctx context.Context, token string) (*models.PasswordReset, error)
	DeleteByEmail(ctx context.Context, email string) error
}

type sessionManager interface {
	Start(ctx context.Context, user *models.User) (*models.Session, error)
	End(ctx context.Context, session *models.Session) error
}

type mailer interface {
	Enqueue(msg mail.Message) error
}

type googleProvider interface {
	Configured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.Profile, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	FrontendURL   string
	StateSecret   string
	StateTTL      time.Duration
	ResetTokenTTL time.Duration
}

// AdminAccount describes the bootstrap administrator.
type AdminAccount struct {
	Email    string
	Password string
	Name     string
}

// oauthState is the signed payload carried through the Google redirect.
type oauthState struct {
	Signup bool `json:"signup"`
	jwt.RegisteredClaims
}

// AuthService provides authentication use cases.
type AuthService struct {
	users     authUserRepository
	resets    passwordResetStore
	sessions  sessionManager
	mail      mailer
	google    googleProvider
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, resets passwordResetStore, sessions sessionManager, mail mailer, google googleProvider, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.StateTTL <= 0 {
		config.StateTTL = 10 * time.Minute
	}
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = time.Hour
	}
	return &AuthService{
		users:     users,
		resets:    resets,
		sessions:  sessions,
		mail:      mail,
		google:    google,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Signup registers a password account and starts a session for it.
func (s *AuthService) Signup(ctx context.Context, req dto.SignupRequest) (*dto.AuthUser, *models.Session, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}
	user := &models.User{FullName: req.FullName, Email: req.Email, PasswordHash: &hash, Role: models.RoleUser}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	return s.begin(ctx, user)
}

// Login authenticates a password account and starts a session for it.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthUser, *models.Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.PasswordHash == nil || *user.PasswordHash == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "this account uses Google sign-in")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	return s.begin(ctx, user)
}

// Logout ends session.
func (s *AuthService) Logout(ctx context.Context, session *models.Session) error {
	return s.sessions.End(ctx, session)
}

// CheckEmail reports whether an account exists for email.
func (s *AuthService) CheckEmail(ctx context.Context, req dto.EmailRequest) (bool, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid email")
	}
	if _, err := s.users.FindByEmail(ctx, req.Email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	return true, nil
}

// Me returns the account behind userID.
func (s *AuthService) Me(ctx context.Context, userID int64) (*dto.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "not logged in")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	view := dto.NewAuthUser(user)
	return &view, nil
}

// ForgotPassword issues a reset token and queues the reset email.
func (s *AuthService) ForgotPassword(ctx context.Context, req dto.EmailRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid email")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "email not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	token, err := randomToken(32)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reset token")
	}
	reset := &models.PasswordReset{Email: user.Email, Token: token, ExpiresAt: s.now().UTC().Add(s.config.ResetTokenTTL)}
	if err := s.resets.Upsert(ctx, reset); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reset token")
	}

	msg, err := s.resetMessage(user, token)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build reset email")
	}
	if err := s.mail.Enqueue(msg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send reset email")
	}
	s.logger.Info("password reset requested", zap.Int64("user_id", user.ID))
	return nil
}

var resetEmailHTML = template.Must(template.New("reset").Parse(
	`<p>Hello {{.Name}},</p><p>Click <a href="{{.Link}}">here</a> to reset your password. The link expires in {{.Minutes}} minutes.</p><p>If you did not request this, ignore this email.</p>`))

func (s *AuthService) resetMessage(user *models.User, token string) (mail.Message, error) {
	link := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(s.config.FrontendURL, "/"), url.PathEscape(token))
	minutes := int(s.config.ResetTokenTTL.Minutes())

	var body bytes.Buffer
	if err := resetEmailHTML.Execute(&body, struct {
		Name    string
		Link    string
		Minutes int
	}{user.FullName, link, minutes}); err != nil {
		return mail.Message{}, fmt.Errorf("render reset email: %w", err)
	}

	return mail.Message{
		ToEmail: user.Email,
		ToName:  user.FullName,
		Subject: "Password Reset Request",
		Text:    fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires in %d minutes.\n\n%s\n\nIf you did not request this, ignore this email.", user.FullName, minutes, link),
		HTML:    body.String(),
	}, nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *AuthService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset payload")
	}

	reset, err := s.resets.FindByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid or expired token")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch reset token")
	}
	if reset.Expired(s.now().UTC()) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid or expired token")
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	affected, err := s.users.UpdatePasswordByEmail(ctx, reset.Email, hash)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "account no longer exists")
	}
	if err := s.resets.DeleteByEmail(ctx, reset.Email); err != nil {
		s.logger.Warn("failed to delete used reset token", zap.Error(err))
	}
	return nil
}

// GoogleAuthURL returns the consent URL for a login or signup flow.
func (s *AuthService) GoogleAuthURL(signup bool) (string, error) {
	if s.google == nil || !s.google.Configured() {
		return "", appErrors.Clone(appErrors.ErrInternal, "google sign-in is not configured")
	}
	now := s.now().UTC()
	claims := oauthState{
		Signup: signup,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.StateTTL)),
		},
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.StateSecret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign oauth state")
	}
	return s.google.AuthCodeURL(state), nil
}

func (s *AuthService) parseState(raw string) (*oauthState, error) {
	token, err := jwt.ParseWithClaims(raw, &oauthState{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.StateSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*oauthState)
	if !ok || !token.Valid {
		return nil, errors.New("invalid oauth state")
	}
	return claims, nil
}

// GoogleCallback completes the code flow and starts a session.
func (s *AuthService) GoogleCallback(ctx context.Context, code, state string) (*dto.AuthUser, *models.Session, error) {
	if s.google == nil || !s.google.Configured() {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "google sign-in is not configured")
	}
	claims, err := s.parseState(state)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid oauth state")
	}
	if code == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "google authentication failed")
	}

	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("google exchange failed", zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "google authentication failed")
	}

	user, err := s.resolveGoogleUser(ctx, profile, claims.Signup)
	if err != nil {
		return nil, nil, err
	}
	return s.begin(ctx, user)
}

func (s *AuthService) resolveGoogleUser(ctx context.Context, profile *oauth.Profile, signup bool) (*models.User, error) {
	user, err := s.users.FindByGoogleID(ctx, profile.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	var picture *string
	if profile.Picture != "" {
		picture = &profile.Picture
	}

	email := normalizeEmail(profile.Email)
	user, err = s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.LinkGoogle(ctx, user.ID, profile.ID, picture); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link google account")
		}
		user.GoogleID = &profile.ID
		if picture != nil {
			user.ProfilePicture = picture
		}
		return user, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !signup {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "Email not registered or Google Authentication Failed")
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = email
	}
	googleID := profile.ID
	user = &models.User{FullName: name, Email: email, Role: models.RoleUser, GoogleID: &googleID, ProfilePicture: picture}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return user, nil
}

// EnsureAdmin creates the configured administrator, or when reset is set
// overwrites the password and role of an existing account.
func (s *AuthService) EnsureAdmin(ctx context.Context, account AdminAccount, reset bool) error {
	account.Email = normalizeEmail(account.Email)
	if account.Email == "" || account.Password == "" {
		return appErrors.Clone(appErrors.ErrValidation, "admin email and password are required")
	}
	hash, err := hashPassword(account.Password)
	if err != nil {
		return err
	}

	existing, err := s.users.FindByEmail(ctx, account.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch admin")
	}
	if existing == nil || errors.Is(err, sql.ErrNoRows) {
		name := account.Name
		if name == "" {
			name = "Administrator"
		}
		admin := &models.User{FullName: name, Email: account.Email, PasswordHash: &hash, Role: models.RoleAdmin}
		if err := s.users.Create(ctx, admin); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
		}
		s.logger.Info("admin account created", zap.Int64("user_id", admin.ID))
		return nil
	}

	if !reset && existing.IsAdmin() {
		return nil
	}
	if reset {
		if err := s.users.Update(ctx, existing.ID, repository.UserPatch{PasswordHash: &hash}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset admin password")
		}
	}
	if !existing.IsAdmin() {
		if err := s.users.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote admin")
		}
	}
	s.logger.Info("admin account updated", zap.Int64("user_id", existing.ID), zap.Bool("password_reset", reset))
	return nil
}

func (s *AuthService) begin(ctx context.Context, user *models.User) (*dto.AuthUser, *models.Session, error) {
	session, err := s.sessions.Start(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	view := dto.NewAuthUser(user)
	return &view, session, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return string(hashed), nil
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
