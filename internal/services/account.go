package services

import (
	"context"
	"errors"
	"strings"

	"commentbox/internal/config"
	"commentbox/internal/identity"
	"commentbox/internal/metrics"
	"commentbox/internal/models"
	"commentbox/internal/scope"
	"commentbox/internal/utils"
	"commentbox/internal/widget"

	"gorm.io/gorm"
)

type RegisterInput struct {
	Email     string
	FullName  string
	Password  string
	Password2 string
	AvatarNum int
}

type AccountService struct {
	db     *gorm.DB
	widget config.WidgetConfig
}

func NewAccountService(db *gorm.DB, widget config.WidgetConfig) *AccountService {
	return &AccountService{db: db, widget: widget}
}

// Register creates a regular account.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email, ok := utils.NormalizeEmail(in.Email)
	if !ok {
		return nil, invalid("enter a valid email address")
	}
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, invalid("please enter your name")
	}
	if in.Password == "" {
		return nil, invalid("password not provided")
	}
	if in.Password != in.Password2 {
		return nil, invalid("passwords don't match")
	}
	avatar := in.AvatarNum
	if avatar == 0 {
		avatar = s.widget.DefaultAvatar
	}
	if !utils.AvatarInRange(avatar, s.widget.AvatarMin, s.widget.AvatarMax) {
		return nil, invalid("invalid avatar_num number: %d", avatar)
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, invalid("you have already registered")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := models.User{
		Email:     email,
		FullName:  name,
		Password:  hash,
		IsActive:  true,
		AvatarNum: avatar,
	}
	err = db.Omit("HiddenOn").Create(&u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, invalid("you have already registered")
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// authenticate checks credentials and the active flag.
func (s *AccountService) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("wrong username or password")
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return nil, invalid("wrong username or password")
	}
	if !u.IsActive {
		return nil, invalid("user not active")
	}
	return &u, nil
}

// Login authenticates a widget visitor on siteID. Accounts hidden on the
// site are refused.
func (s *AccountService) Login(ctx context.Context, email, password string, siteID uint) (*models.User, widget.DomainData, error) {
	if siteID == 0 {
		return nil, widget.DomainData{}, invalid("site_id not provided")
	}
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, widget.DomainData{}, err
	}
	hidden, err := u.IsHiddenOn(s.db.WithContext(ctx), siteID)
	if err != nil {
		return nil, widget.DomainData{}, err
	}
	if hidden {
		return nil, widget.DomainData{}, forbidden("user hidden")
	}
	data, err := s.DomainData(ctx, u)
	if err != nil {
		return nil, widget.DomainData{}, err
	}
	return u, data, nil
}

// StaffLogin authenticates an admin. Site admins must administer at least
// one site; superusers are always let in so they can set sites up.
func (s *AccountService) StaffLogin(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !u.IsStaff && !u.IsSuperuser {
		return nil, forbidden("user not staff")
	}
	sc, err := scope.For(ctx, s.db, u)
	if err != nil {
		return nil, err
	}
	if sc.Empty() {
		return nil, forbidden("user is not admin for any site, log in as superuser to assign the user to a site")
	}
	return u, nil
}

// DomainData collects the account's reactions and posted comments.
func (s *AccountService) DomainData(ctx context.Context, u *models.User) (widget.DomainData, error) {
	db := s.db.WithContext(ctx)
	var rows []models.Reaction
	if err := db.Where("user_id = ?", u.ID).Order("id").Find(&rows).Error; err != nil {
		return widget.DomainData{}, err
	}
	var d widget.DomainData
	for _, r := range rows {
		switch {
		case r.TargetType == models.TargetThread && r.Kind == models.KindLike:
			d.LikedThreads = append(d.LikedThreads, r.TargetID)
		case r.TargetType == models.TargetThread && r.Kind == models.KindDislike:
			d.DislikedThreads = append(d.DislikedThreads, r.TargetID)
		case r.TargetType == models.TargetComment && r.Kind == models.KindLike:
			d.LikedComments = append(d.LikedComments, r.TargetID)
		case r.TargetType == models.TargetComment && r.Kind == models.KindDislike:
			d.DislikedComments = append(d.DislikedComments, r.TargetID)
		}
	}
	err := db.Model(&models.Comment{}).Where("user_id = ?", u.ID).Order("id").Pluck("id", &d.PostedComments).Error
	return d, err
}

// SetAvatar stores the avatar on the session and, for accounts, on the account.
func (s *AccountService) SetAvatar(ctx context.Context, who identity.Identity, n int) error {
	if !utils.AvatarInRange(n, s.widget.AvatarMin, s.widget.AvatarMax) {
		return invalid("invalid avatar_num number: %d", n)
	}
	if u := who.Account(); u != nil {
		if err := s.db.WithContext(ctx).Model(u).UpdateColumn("avatar_num", n).Error; err != nil {
			return err
		}
	}
	who.Session().SetAvatarNum(n)
	return nil
}

// DeleteAccount removes an account with its comments and reactions.
// Only superusers may call it; staff targets are left untouched.
func (s *AccountService) DeleteAccount(ctx context.Context, actor *models.User, userID uint) error {
	if actor == nil || !actor.IsSuperuser {
		return forbidden("superuser required")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, userID).Error; err != nil {
			return notFound(err, "user %d", userID)
		}
		return u.Delete(tx)
	})
	if err == nil {
		metrics.ModerationTotal.WithLabelValues(metrics.ActionDeleteUser).Inc()
	}
	return err
}

// CreateSuperuser bootstraps an administrator account.
func (s *AccountService) CreateSuperuser(ctx context.Context, email, password string) (*models.User, error) {
	email, ok := utils.NormalizeEmail(email)
	if !ok {
		return nil, invalid("enter a valid email address")
	}
	if password == "" {
		return nil, invalid("password not provided")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := models.User{
		Email:       email,
		Password:    hash,
		IsActive:    true,
		IsStaff:     true,
		IsSuperuser: true,
		AvatarNum:   s.widget.DefaultAvatar,
	}
	err = s.db.WithContext(ctx).Omit("HiddenOn").Create(&u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
