package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		id             string
		userControlled bool
		persistent     bool
	}{
		{"SESSION_AUTO", false, false},
		{"SESSION_USER", true, false},
		{"PERSISTENT_AUTO", false, true},
		{"PERSISTENT_USER", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			c, err := ParseCondition(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.id, c.ID())
			assert.Equal(t, tt.userControlled, c.UserControlled())
			assert.Equal(t, tt.persistent, c.Persistent())
			// The structured axes agree with the legacy substring convention.
			assert.Equal(t, strings.Contains(tt.id, "USER"), c.UserControlled())
		})
	}
}

func TestParseConditionUnknown(t *testing.T) {
	for _, id := range []string{"", "session_auto", "ADMIN", "USER"} {
		_, err := ParseCondition(id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestConditionBanner(t *testing.T) {
	assert.Contains(t, PersistentUser.Banner(), "choose which information to save")
	assert.Contains(t, SessionAuto.Banner(), "will not be saved")
	assert.Equal(t, UnknownConditionBanner, BannerFor("NOPE"))
	assert.Equal(t, PersistentAuto.Banner(), BannerFor("PERSISTENT_AUTO"))
}

func TestConditionJSON(t *testing.T) {
	type wrapper struct {
		Condition Condition `json:"condition"`
	}

	b, err := json.Marshal(wrapper{Condition: SessionUser})
	require.NoError(t, err)
	assert.JSONEq(t, `{"condition":"SESSION_USER"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"condition":"PERSISTENT_AUTO"}`), &w))
	assert.Equal(t, PersistentAuto, w.Condition)

	assert.Error(t, json.Unmarshal([]byte(`{"condition":"BOGUS"}`), &w))
}

func TestUserConditionFallback(t *testing.T) {
	assert.Equal(t, PersistentUser, User{ConditionID: "PERSISTENT_USER"}.Condition())
	assert.Equal(t, DefaultCondition, User{ConditionID: "???"}.Condition())
}

func TestAllConditionsHaveLabels(t *testing.T) {
	all := AllConditions()
	require.Len(t, all, 4)
	for _, c := range all {
		assert.NotEmpty(t, c.ID())
		assert.NotEqual(t, c.ID(), c.Label())
		assert.NotEqual(t, UnknownConditionBanner, c.Banner())
	}
}
