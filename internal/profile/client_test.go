package profile_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finitefield.org/nutricart/internal/profile"
)

func newClient(t *testing.T, handler http.HandlerFunc) *profile.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := profile.NewClient(ts.URL, ts.Client())
	require.NoError(t, err)
	return client
}

func TestSaveImage(t *testing.T) {
	t.Parallel()

	var payload map[string]string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/save-profile-image", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	err := client.SaveImage(context.Background(), "data:image/png;base64,AAAA")
	require.NoError(t, err)
	require.Equal(t, "data:image/png;base64,AAAA", payload["image"])
}

func TestSaveImageRejected(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "message": "unsupported format"}`))
	})

	err := client.SaveImage(context.Background(), "data:image/gif;base64,AAAA")
	require.Error(t, err)
	require.True(t, profile.IsRejection(err))

	var re *profile.RejectionError
	require.True(t, errors.As(err, &re))
	require.Equal(t, "unsupported format", re.Message)
}

func TestSaveImageServerError(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
	})

	err := client.SaveImage(context.Background(), "data:image/png;base64,AAAA")
	var se *profile.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusRequestEntityTooLarge, se.Status)
	require.Equal(t, "payload too large", se.Body)
	require.False(t, profile.IsRejection(err))
}

func TestSaveImageRequiresData(t *testing.T) {
	t.Parallel()

	client, err := profile.NewClient("http://backend.invalid", nil)
	require.NoError(t, err)
	require.Error(t, client.SaveImage(context.Background(), " "))
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/profile", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "Asha", r.PostForm.Get("name"))
		require.Equal(t, "asha@example.com", r.PostForm.Get("email"))
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	require.NoError(t, client.UpdateProfile(context.Background(), "Asha", "asha@example.com"))
}

func TestClientKeepsBasePath(t *testing.T) {
	t.Parallel()

	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	t.Cleanup(ts.Close)

	client, err := profile.NewClient(ts.URL+"/api", ts.Client())
	require.NoError(t, err)

	require.NoError(t, client.UpdateProfile(context.Background(), "Asha", "asha@example.com"))
	require.NoError(t, client.SaveImage(context.Background(), "data:image/png;base64,AAAA"))
	require.Equal(t, []string{"/api/profile", "/api/auth/save-profile-image"}, paths)
}

func TestUpdateProfileFailure(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	})

	err := client.UpdateProfile(context.Background(), "Asha", "bad")
	require.True(t, profile.IsRejection(err))
}

func TestFetchImage(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/get_profile_image", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	})

	body, contentType, err := client.FetchImage(context.Background())
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))
	require.Equal(t, "image/png", contentType)
}

func TestImageURLIsCacheBusted(t *testing.T) {
	t.Parallel()

	client, err := profile.NewClient("http://backend.invalid", nil)
	require.NoError(t, err)

	at := time.UnixMilli(1714564800123)
	require.Equal(t, "/auth/get_profile_image?1714564800123", client.ImageURL(at))
}
