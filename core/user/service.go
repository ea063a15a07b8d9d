package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")

	// NowFunc is overridable for tests
	NowFunc = func() time.Time { return time.Now().UTC() }
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers ...User) error
		CreateUser(ctx context.Context, user User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, user User, isActive *bool) (User, error)
		UpdatePassword(ctx context.Context, user User) (User, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Create(ctx context.Context, nu NewUser) (User, error)
		QueryAll(ctx context.Context) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		SetActiveStatus(ctx context.Context, usr User, isActive bool) (User, error)
		SetLastLogin(ctx context.Context, usr User) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates a new active account and sends it a welcome email.
func (svc *service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Role = RoleUser // self sign up is never admin
	usr, err := svc.Create(ctx, nu)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := NowFunc()
	usr := User{
		Username:  nu.Username,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) SetActiveStatus(ctx context.Context, usr User, isActive bool) (User, error) {
	usr.UpdatedAt = NowFunc()
	return svc.repo.UpdateUser(ctx, usr, &isActive)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) error {
	usr.LastLogin = NowFunc()
	usr.UpdatedAt = usr.LastLogin
	_, err := svc.repo.UpdateUser(ctx, usr, nil)
	return err
}

func (svc *service) sendWelcomeMail(usr User) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FirstName + " " + usr.LastName, Address: usr.Username}},
		Subject:      fmt.Sprintf("Welcome to %s!", core.Conf.AppName),
		TemplateName: "welcome",
		TemplateData: struct{ FirstName string }{usr.FirstName},
	}
	svc.mailSvc.SendMessages(msg)
}
