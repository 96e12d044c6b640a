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
	"commentbox/internal/widget"

	"gorm.io/gorm"
)

// PostInput is a comment submitted through the widget. The thread is named
// either by id or by url; a url creates the thread on first use.
type PostInput struct {
	ThreadID   uint
	ThreadURL  string
	Text       string
	PosterName string
	IPAddress  string
}

// Listing is a thread's comments as one visitor sees them.
type Listing struct {
	Thread    *models.Thread
	Comments  []models.Comment
	SiteAdmin bool
}

type CommentService struct {
	db     *gorm.DB
	widget config.WidgetConfig
}

func NewCommentService(db *gorm.DB, widget config.WidgetConfig) *CommentService {
	return &CommentService{db: db, widget: widget}
}

// Post stores a new comment on site and records it in the visitor's session.
func (s *CommentService) Post(ctx context.Context, site *models.Site, in PostInput, who identity.Identity) (*models.Comment, error) {
	db := s.db.WithContext(ctx)
	user := who.Account()

	if user != nil {
		hidden, err := user.IsHiddenOn(db, site.ID)
		if err != nil {
			return nil, err
		}
		if hidden {
			return nil, forbidden("user is disabled on site with id %d", site.ID)
		}
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, invalid("text not provided")
	}
	name := strings.TrimSpace(in.PosterName)
	if name == "" {
		if user == nil {
			return nil, invalid("poster name not provided")
		}
		name = user.DisplayName()
	}

	var thread *models.Thread
	var err error
	switch {
	case in.ThreadURL != "":
		thread, _, err = ensureThread(db, site, in.ThreadURL)
	case in.ThreadID != 0:
		var t models.Thread
		err = db.Where("id = ? AND site_id = ?", in.ThreadID, site.ID).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("thread with id %d does not exist", in.ThreadID)
		}
		thread = &t
	default:
		return nil, invalid("thread not provided")
	}
	if err != nil {
		return nil, err
	}
	if !thread.AllowComments {
		return nil, invalid("comments not allowed")
	}

	ws := who.Session()
	avatar := ws.AvatarNum()
	if avatar == 0 {
		avatar = s.widget.DefaultAvatar
	}

	c := models.Comment{
		ThreadID:   thread.ID,
		PosterName: name,
		Text:       text,
		AvatarNum:  avatar,
	}
	if user != nil {
		c.UserID = &user.ID
	}
	if ip := strings.TrimSpace(in.IPAddress); ip != "" {
		c.IPAddress = &ip
	}
	if err := db.Omit("Thread", "User").Create(&c).Error; err != nil {
		return nil, err
	}

	ws.Add(widget.PostedComments, c.ID)
	ws.SetAllComments()

	poster := "anonymous"
	if user != nil {
		poster = "account"
	}
	metrics.CommentsPostedTotal.WithLabelValues(poster).Inc()
	return &c, nil
}

// List returns the comments of a thread on site for who. Hidden accounts may
// not list at all.
func (s *CommentService) List(ctx context.Context, site *models.Site, threadID uint, who identity.Identity) (*Listing, error) {
	if user := who.Account(); user != nil {
		hidden, err := user.IsHiddenOn(s.db.WithContext(ctx), site.ID)
		if err != nil {
			return nil, err
		}
		if hidden {
			return nil, forbidden("user is disabled on site with id %d", site.ID)
		}
	}
	return s.listing(ctx, site, threadID, who)
}

// OnSite loads a comment of one of site's threads. Comments elsewhere read
// as not found.
func (s *CommentService) OnSite(ctx context.Context, site *models.Site, commentID uint) (*models.Comment, error) {
	var c models.Comment
	err := s.db.WithContext(ctx).
		Joins("JOIN threads ON threads.id = comments.thread_id").
		Where("comments.id = ? AND threads.site_id = ?", commentID, site.ID).
		First(&c).Error
	if err != nil {
		return nil, notFound(err, "comment %d", commentID)
	}
	return &c, nil
}

// ListForComment lists the thread a comment of site belongs to, used to
// redraw the widget after a reaction or moderation on that comment.
func (s *CommentService) ListForComment(ctx context.Context, site *models.Site, commentID uint, who identity.Identity) (*Listing, error) {
	c, err := s.OnSite(ctx, site, commentID)
	if err != nil {
		return nil, err
	}
	return s.listing(ctx, site, c.ThreadID, who)
}

// listing loads the comments in display order. Comments written by accounts
// hidden on the site are left out whatever their own flag.
func (s *CommentService) listing(ctx context.Context, site *models.Site, threadID uint, who identity.Identity) (*Listing, error) {
	db := s.db.WithContext(ctx)

	siteAdmin := false
	if user := who.Account(); user != nil {
		sc, err := scope.For(ctx, s.db, user)
		if err != nil {
			return nil, err
		}
		siteAdmin = sc.ContainsSite(site.ID)
	}

	thread, err := threadOnSite(db, site, threadID)
	if err != nil {
		return nil, err
	}

	hiddenAuthors := db.Session(&gorm.Session{NewDB: true}).
		Table("user_hidden_sites").
		Select("user_id").
		Where("site_id = ?", site.ID)

	var comments []models.Comment
	err = db.Preload("User").
		Where("thread_id = ?", thread.ID).
		Where("user_id IS NULL OR user_id NOT IN (?)", hiddenAuthors).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	if err := fillCommentCounts(db, comments); err != nil {
		return nil, err
	}
	return &Listing{Thread: thread, Comments: comments, SiteAdmin: siteAdmin}, nil
}
