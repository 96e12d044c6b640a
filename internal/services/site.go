package services

import (
	"context"
	"errors"

	"commentbox/internal/models"
	"commentbox/internal/scope"

	"gorm.io/gorm"
)

type SiteInput struct {
	Domain           string
	AnonymousAllowed bool
	CustomerID       string
}

type SiteService struct {
	db *gorm.DB
}

func NewSiteService(db *gorm.DB) *SiteService {
	return &SiteService{db: db}
}

// Create registers a site. The domain is stored without scheme or path.
func (s *SiteService) Create(ctx context.Context, actor *models.User, in SiteInput) (*models.Site, error) {
	if actor == nil || !actor.IsSuperuser {
		return nil, forbidden("superuser required")
	}
	domain, ok := models.NormalizeDomain(in.Domain)
	if !ok {
		return nil, invalid("enter a valid value")
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.Site{}).Where("domain = ?", domain).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrConflict
	}

	site := models.Site{Domain: domain, AnonymousAllowed: in.AnonymousAllowed}
	if in.CustomerID != "" {
		id := in.CustomerID
		site.CustomerID = &id
	}
	err := db.Omit("Admins").Create(&site).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// AssignAdmin makes a staff account an admin of the site. Assigning twice
// is a no-op.
func (s *SiteService) AssignAdmin(ctx context.Context, actor *models.User, siteID, userID uint) error {
	if actor == nil || !actor.IsSuperuser {
		return forbidden("superuser required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var site models.Site
		if err := tx.First(&site, siteID).Error; err != nil {
			return notFound(err, "site %d", siteID)
		}
		var u models.User
		if err := tx.First(&u, userID).Error; err != nil {
			return notFound(err, "user %d", userID)
		}
		if !u.IsStaff || u.IsSuperuser {
			return invalid("only staff accounts can administer a site")
		}
		var count int64
		if err := tx.Table("site_admins").Where("site_id = ? AND user_id = ?", siteID, userID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Exec("INSERT INTO site_admins (site_id, user_id) VALUES (?, ?)", siteID, userID).Error
	})
}

// SiteUpdate carries the editable site settings. Nil fields are left as is.
type SiteUpdate struct {
	AnonymousAllowed *bool
	CustomerID       *string
}

// Update changes a site's settings. The domain is fixed once registered.
func (s *SiteService) Update(ctx context.Context, actor *models.User, siteID uint, in SiteUpdate) (*models.Site, error) {
	if actor == nil || !actor.IsSuperuser {
		return nil, forbidden("superuser required")
	}
	db := s.db.WithContext(ctx)
	var site models.Site
	if err := db.First(&site, siteID).Error; err != nil {
		return nil, notFound(err, "site %d", siteID)
	}
	updates := map[string]interface{}{}
	if in.AnonymousAllowed != nil {
		updates["anonymous_allowed"] = *in.AnonymousAllowed
	}
	if in.CustomerID != nil {
		if *in.CustomerID == "" {
			updates["customer_id"] = nil
		} else {
			updates["customer_id"] = *in.CustomerID
		}
	}
	if len(updates) == 0 {
		return &site, nil
	}
	if err := db.Model(&site).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.First(&site, siteID).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

// List returns the sites in scope.
func (s *SiteService) List(ctx context.Context, sc *scope.Scope) ([]models.Site, error) {
	var sites []models.Site
	err := sc.Sites(s.db.WithContext(ctx)).Order("sites.id").Find(&sites).Error
	return sites, err
}
