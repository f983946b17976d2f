// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	hs := newHarness(t)
	id, _ := hs.verifiedUser(t, "ada")

	rec := hs.call(t, hs.h.Profile, http.MethodGet, "", id)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	user := out["user"].(map[string]any)
	assert.Equal(t, "ada", user["username"])
	assert.Equal(t, true, user["is_verified"])
	assert.NotContains(t, user, "password_hash")
	assert.Contains(t, out, "profile")
}

func TestProfile_Unauthenticated(t *testing.T) {
	hs := newHarness(t)

	rec := hs.call(t, hs.h.Profile, http.MethodGet, "", 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = hs.call(t, hs.h.UpdateProfile, http.MethodPut, `{}`, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	hs := newHarness(t)
	id, _ := hs.verifiedUser(t, "ada")

	rec := hs.call(t, hs.h.UpdateProfile, http.MethodPut,
		`{"full_name":"Ada Lovelace","topic_interests":"math, engines"}`, id)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = hs.call(t, hs.h.UpdateProfile, http.MethodPut, `{"topic_interests":"poetry"}`, id)
	require.Equal(t, http.StatusOK, rec.Code)

	profile := decode(t, rec)["profile"].(map[string]any)
	assert.Equal(t, "Ada Lovelace", profile["full_name"])
	assert.Equal(t, "poetry", profile["topic_interests"])
}

func TestUpdateProfile_ChangePassword(t *testing.T) {
	hs := newHarness(t)
	id, _ := hs.verifiedUser(t, "ada")

	rec := hs.call(t, hs.h.UpdateProfile, http.MethodPut,
		`{"old_password":"wrong","new_password":"Quiet-Harbor-77"}`, id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = hs.call(t, hs.h.UpdateProfile, http.MethodPut, `{"new_password":"Quiet-Harbor-77"}`, id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = hs.call(t, hs.h.UpdateProfile, http.MethodPut,
		`{"old_password":"`+password+`","new_password":"Quiet-Harbor-77"}`, id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password changed successfully.", decode(t, rec)["message"])

	rec = hs.call(t, hs.h.Login, http.MethodPost, `{"email":"ada@example.com","password":"Quiet-Harbor-77"}`, 0)
	assert.Equal(t, http.StatusOK, rec.Code)
}
