package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/models"
)

func Test_Categories_HaveLabelAndColor(t *testing.T) {
	for _, c := range models.Categories() {
		assert.True(t, c.Valid(), c)
		assert.NotEqual(t, string(c), c.Label(), "label of %s", c)
		assert.Regexp(t, `^#[0-9a-f]{6}$`, c.Color(), "color of %s", c)
	}
}

func Test_ParseCategory_When_Unknown_ListsTheChoices(t *testing.T) {
	_, err := models.ParseCategory("holiday")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "personal, work, social, other")
}

func Test_ParseNotificationType(t *testing.T) {
	got, err := models.ParseNotificationType("warning")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationWarning, got)

	_, err = models.ParseNotificationType("urgent")
	assert.Error(t, err)
}
