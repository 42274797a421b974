package usecase_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-tinybank/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-tinybank/internal/app/core/domain"
	"github.com/JoeShih716/go-tinybank/internal/app/core/usecase"
)

func TestUsers_Deactivate(t *testing.T) {
	ctx := context.Background()
	logger, hook := logtest.NewNullLogger()
	users := usecase.NewUsers(memory.NewDirectory(nil), logrus.NewEntry(logger))

	// email 格式錯誤在查詢目錄前就拒絕
	assert.ErrorIs(t, users.Deactivate(ctx, "nope"), domain.ErrInvalidEmail)
	assert.ErrorIs(t, users.Deactivate(ctx, ""), domain.ErrInvalidEmail)
	assert.ErrorIs(t, users.Deactivate(ctx, "bob@x.io"), domain.ErrUserNotFound)

	_, err := users.Register(ctx, domain.RegisterUserRequest{Email: "alice@x.io"})
	require.NoError(t, err)
	require.NoError(t, users.Deactivate(ctx, "alice@x.io"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "user deactivated", entry.Message)
	assert.Equal(t, "a***@x.io", entry.Data["user"])
	assert.NotContains(t, entry.Message, "alice")

	e, err := users.Eligibility(ctx, "alice@x.io")
	require.NoError(t, err)
	assert.Equal(t, domain.EligibilityInactive, e)
}
