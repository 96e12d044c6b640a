package services

import (
	"context"
	"errors"
	"strings"

	"commentbox/internal/config"
	"commentbox/internal/identity"
	"commentbox/internal/metrics"
	"commentbox/internal/models"
	"commentbox/internal/utils"

	"gorm.io/gorm"
)

// Titles are the page titles the widget scrapes from the embedding page.
type Titles struct {
	Selector string
	Page     string
	H1       string
}

// ThreadInfo is what the widget needs before it renders anything.
type ThreadInfo struct {
	ThreadID         uint `json:"thread_id"`
	CommentsEnabled  bool `json:"comments_enabled"`
	AnonymousAllowed bool `json:"anonymous_allowed"`
	AvatarNum        int  `json:"avatar_num"`
}

type ThreadService struct {
	db     *gorm.DB
	widget config.WidgetConfig
}

func NewThreadService(db *gorm.DB, widget config.WidgetConfig) *ThreadService {
	return &ThreadService{db: db, widget: widget}
}

// EnsureThread returns the thread for (site, url), creating it on first use.
// A concurrent creation surfaces as a duplicate key and is resolved by
// reading the winner's row. The second value reports whether this call
// created the thread.
func (s *ThreadService) EnsureThread(ctx context.Context, site *models.Site, url string) (*models.Thread, bool, error) {
	return ensureThread(s.db.WithContext(ctx), site, url)
}

func ensureThread(db *gorm.DB, site *models.Site, url string) (*models.Thread, bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, false, invalid("thread url not provided")
	}

	var t models.Thread
	err := db.Where("site_id = ? AND url = ?", site.ID, url).First(&t).Error
	if err == nil {
		t.Site = *site
		return &t, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	t = models.Thread{SiteID: site.ID, URL: url, AllowComments: true}
	err = db.Omit("Site").Create(&t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		if err := db.Where("site_id = ? AND url = ?", site.ID, url).First(&t).Error; err != nil {
			return nil, false, err
		}
		t.Site = *site
		return &t, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	metrics.ThreadsCreatedTotal.Inc()
	t.Site = *site
	return &t, true, nil
}

// Info creates the thread if needed, stores the page titles and prepares the
// visitor's session for a fresh widget load.
func (s *ThreadService) Info(ctx context.Context, site *models.Site, url string, titles Titles, who identity.Identity) (*ThreadInfo, error) {
	db := s.db.WithContext(ctx)
	t, _, err := ensureThread(db, site, url)
	if err != nil {
		return nil, err
	}
	err = db.Model(t).UpdateColumns(map[string]interface{}{
		"selector_title": titles.Selector,
		"page_title":     titles.Page,
		"h1_title":       titles.H1,
	}).Error
	if err != nil {
		return nil, err
	}

	ws := who.Session()
	ws.ClearAllComments()
	avatar := ws.AvatarNum()
	if avatar == 0 {
		if u := who.Account(); u != nil {
			avatar = u.AvatarNum
		} else {
			avatar = utils.RandomAvatar(s.widget.AvatarMin, s.widget.AvatarMax)
			ws.SetAvatarNum(avatar)
		}
	}

	return &ThreadInfo{
		ThreadID:         t.ID,
		CommentsEnabled:  t.AllowComments,
		AnonymousAllowed: site.AnonymousAllowed,
		AvatarNum:        avatar,
	}, nil
}

// Thread loads a thread of site with its effective counts.
func (s *ThreadService) Thread(ctx context.Context, site *models.Site, threadID uint) (*models.Thread, error) {
	return threadOnSite(s.db.WithContext(ctx), site, threadID)
}

func threadOnSite(db *gorm.DB, site *models.Site, threadID uint) (*models.Thread, error) {
	var t models.Thread
	if err := db.Where("id = ? AND site_id = ?", threadID, site.ID).First(&t).Error; err != nil {
		return nil, notFound(err, "thread with id %d", threadID)
	}
	t.Site = *site
	threads := []models.Thread{t}
	if err := fillThreadCounts(db, threads); err != nil {
		return nil, err
	}
	return &threads[0], nil
}

// CommentCount counts the visible comments of the thread at url.
func (s *ThreadService) CommentCount(ctx context.Context, site *models.Site, url string) (int64, error) {
	db := s.db.WithContext(ctx)
	var t models.Thread
	if err := db.Where("site_id = ? AND url = ?", site.ID, url).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, invalid("thread with url %s not found", url)
		}
		return 0, err
	}
	var count int64
	err := db.Model(&models.Comment{}).Where("thread_id = ? AND hidden = ?", t.ID, false).Count(&count).Error
	return count, err
}
