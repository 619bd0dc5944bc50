package app

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"taxidash.nyctlc.dev/internal/appconf"
)

func TestBlankKeyIsInvalid(t *testing.T) {
	app := &Application{
		Config: appconf.Config{
			ApiKeys: []string{"key"},
		},
	}
	assert.True(t, app.IsInvalidAPIKey(""))
}

func TestAPIKeys(t *testing.T) {
	app := &Application{
		Config: appconf.Config{
			ApiKeys: []string{"key", "other"},
		},
	}

	assert.False(t, app.IsInvalidAPIKey("key"))
	assert.False(t, app.IsInvalidAPIKey("other"))
	assert.True(t, app.IsInvalidAPIKey("KEY"))

	assert.False(t, app.RequestHasInvalidAPIKey(httptest.NewRequest("GET", "/api/filters.json?key=other", nil)))
	assert.True(t, app.RequestHasInvalidAPIKey(httptest.NewRequest("GET", "/api/filters.json", nil)))
}
