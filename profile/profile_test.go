package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"movment/filemgr"
	"movment/globals"
	"movment/lifecycle"
	"movment/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memUsers struct {
	user *models.User
	sets []bson.M
}

func (m *memUsers) UpdateFields(_ context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, lifecycle.ErrNotFound
	}
	m.sets = append(m.sets, set)
	if v, ok := set["name"].(string); ok {
		m.user.Name = v
	}
	if v, ok := set["profilePicture"].(string); ok {
		m.user.ProfilePicture = v
	}
	if v, ok := set["location.city"].(string); ok {
		m.user.Location.City = v
	}
	lat, hasLat := set["location.coordinates.lat"].(float64)
	lng, hasLng := set["location.coordinates.lng"].(float64)
	if hasLat || hasLng {
		if m.user.Location.Coordinates == nil {
			m.user.Location.Coordinates = &models.Coordinates{}
		}
		if hasLat {
			m.user.Location.Coordinates.Lat = lat
		}
		if hasLng {
			m.user.Location.Coordinates.Lng = lng
		}
	}
	u := *m.user
	return &u, nil
}

type nopActivity struct{ actions []models.ActivityAction }

func (a *nopActivity) Record(_ context.Context, _ primitive.ObjectID, action models.ActivityAction, _ string, _ *primitive.ObjectID) {
	a.actions = append(a.actions, action)
}

func withUser(req *http.Request, u *models.User) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), globals.UserKey, u))
}

func TestProfilePatchFields(t *testing.T) {
	blank, name, city := "  ", " Asha ", "Chennai "
	p := profilePatch{Name: &blank, Location: &locationPatch{City: &city}}
	assert.Equal(t, bson.M{"location.city": "Chennai"}, p.fields())

	p = profilePatch{Name: &name}
	assert.Equal(t, bson.M{"name": "Asha"}, p.fields())

	assert.Empty(t, profilePatch{}.fields())
}

func TestUpdateProfile(t *testing.T) {
	me := &models.User{ID: primitive.NewObjectID(), Name: "Asha", Role: models.RoleUser}
	users := &memUsers{user: me}
	act := &nopActivity{}
	h := NewHandler(users, filemgr.NewStore(t.TempDir()), act, zap.NewNop())

	body := strings.NewReader(`{"name":"Asha R","location":{"city":"Madurai"}}`)
	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, withUser(httptest.NewRequest(http.MethodPatch, "/api/user/profile", body), me), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Asha R", got.Name)
	assert.Equal(t, "Madurai", got.Location.City)
	assert.Contains(t, users.sets[0], "updatedAt")
	assert.Equal(t, []models.ActivityAction{models.ActionProfileUpdate}, act.actions)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}

func multipartPicture(t *testing.T, filename, mime string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="picture"; filename="%s"`, filename))
	hdr.Set("Content-Type", mime)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/user/profile/picture", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadPictureReplacesPrevious(t *testing.T) {
	dir := t.TempDir()
	store := filemgr.NewStore(dir)
	me := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	users := &memUsers{user: me}
	h := NewHandler(users, store, &nopActivity{}, zap.NewNop())

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 300, 200))))

	upload := func() filemgr.Saved {
		rec := httptest.NewRecorder()
		h.UploadPicture(rec, withUser(multipartPicture(t, "me.png", "image/png", img.Bytes()), me), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body struct {
			Picture filemgr.Saved `json:"picture"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Picture
	}

	first := upload()
	me.ProfilePicture = first.Path
	second := upload()

	assert.Equal(t, second.Path, users.user.ProfilePicture)
	_, err := os.Stat(filepath.Join(dir, "profile", filepath.Base(first.Path)))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "thumb", filepath.Base(first.Thumb)))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "profile", filepath.Base(second.Path)))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "thumb", filepath.Base(second.Thumb)))
	assert.NoError(t, err)
}

func TestUploadPictureRejectsNonImage(t *testing.T) {
	me := &models.User{ID: primitive.NewObjectID()}
	h := NewHandler(&memUsers{user: me}, filemgr.NewStore(t.TempDir()), &nopActivity{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.UploadPicture(rec, withUser(multipartPicture(t, "notes.txt", "text/plain", []byte("hello")), me), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unsupported image type")
}

func TestUpdateLocation(t *testing.T) {
	me := &models.User{ID: primitive.NewObjectID(), Role: models.RoleManager, Approved: true}
	h := NewHandler(&memUsers{user: me}, filemgr.NewStore(t.TempDir()), &nopActivity{}, zap.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/manager/me/location", strings.NewReader(`{"lat":13.08,"lng":80.27}`))
	h.UpdateLocation(rec, withUser(req, me), httprouter.Params{})

	require.Equal(t, http.StatusOK, rec.Code)
	var loc models.UserLocation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
	require.NotNil(t, loc.Coordinates)
	assert.InDelta(t, 80.27, loc.Coordinates.Lng, 1e-9)
}
