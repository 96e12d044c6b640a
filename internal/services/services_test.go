package services

import (
	"context"
	"testing"

	"commentbox/internal/config"
	"commentbox/internal/identity"
	"commentbox/internal/models"
	"commentbox/internal/scope"
	"commentbox/internal/widget"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testWidget = config.WidgetConfig{AvatarMin: 1, AvatarMax: 28, DefaultAvatar: 6, DefaultComments: 10}

func anon() identity.Identity {
	return identity.New(nil, widget.New(widget.MapStore{}))
}

func as(u *models.User) identity.Identity {
	return identity.New(u, widget.New(widget.MapStore{}))
}

func scopeOf(t *testing.T, db *gorm.DB, u *models.User) *scope.Scope {
	t.Helper()
	sc, err := scope.For(context.Background(), db, u)
	require.NoError(t, err)
	return sc
}
