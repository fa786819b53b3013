package bookmydesk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Options{
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		UserAgent:    "DeskBot Test",
	}, zap.NewNop())
}

func TestTokenLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "DeskBot Test", r.Header.Get("User-Agent"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "password", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "me@example.test", r.PostForm.Get("username"))
		assert.Equal(t, "123456", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":900}`))
	})

	pair, err := client.TokenLogin(context.Background(), "me@example.test", "123456")
	require.NoError(t, err)
	assert.Equal(t, "at", pair.AccessToken)
	assert.Equal(t, "rt", pair.RefreshToken)
	assert.Equal(t, 900, pair.ExpiresIn)
}

func TestTokenRefresh(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","expires_in":900}`))
	})

	pair, err := client.TokenRefresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "at2", pair.AccessToken)
	assert.Equal(t, "rt2", pair.RefreshToken)
}

func TestTokenRefresh_RejectionIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	_, err := client.TokenRefresh(context.Background(), "stale")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestMe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/v3", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		w.Write([]byte(`{"result":{"id":"user-1","email":"me@example.test","firstName":"Alex","companies":[{"id":"company-1"},{"id":"company-2"}]}}`))
	})

	profile, err := client.Me(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, "Alex", profile.FirstName)
	assert.Equal(t, "company-1", profile.CompanyID, "first company wins")
}

func TestMe_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"expired"}`))
	})

	_, err := client.Me(context.Background(), "stale")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
}

func TestListReservations(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reservations/v3", r.URL.Path)
		query := r.URL.Query()
		assert.Equal(t, "2026-08-31", query.Get("from"))
		assert.Equal(t, "2026-08-31", query.Get("to"))
		assert.Equal(t, "normal", query.Get("type"))
		assert.Equal(t, "50", query.Get("take"))

		w.Write([]byte(`{"result":{"items":[
			{"id":"r1","ownerId":"user-1","type":"normal","status":"reserved","dateStart":"2026-08-31","from":"09:00","to":"17:00","seat":{"id":"s1","name":"A12","mapId":"m1","mapName":"Floor 2"}},
			{"id":"r2","ownerId":"user-1","type":"home","status":"checkedIn","dateStart":"2026-08-31","from":"00:00","to":"23:59","checkedInTime":"08:55"}
		]}}`))
	})

	items, err := client.ListReservations(context.Background(), "token-1", ListParams{
		From: "2026-08-31",
		To:   "2026-08-31",
		Type: TypeNormal,
		Take: 50,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, StatusReserved, items[0].Status)
	assert.Equal(t, "A12", items[0].Seat.Name)
	assert.Equal(t, "Floor 2", items[0].LocationName())

	assert.Nil(t, items[1].Seat)
	assert.Equal(t, "home", items[1].LocationName())
	assert.Equal(t, "08:55", items[1].StartTime(), "check-in time wins over booked start")
}

func TestCreateReservation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reservation/v3", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Write([]byte(`{"result":{"id":"new-reservation"}}`))
	})

	id, err := client.CreateReservation(context.Background(), "token-1", CreateParams{
		Type:   TypeNormal,
		Date:   "2026-08-31",
		From:   "10:00",
		To:     "23:59",
		SeatID: "s1",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-reservation", id)
}

func TestCheckInOut(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.CheckInOut(context.Background(), "token-1", "r1", true))
	require.NoError(t, client.CheckInOut(context.Background(), "token-1", "r1", false))
	assert.Equal(t, []string{"/reservation/r1/checkin", "/reservation/r1/checkout"}, paths)
}

func TestDeleteReservation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/reservation/r1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteReservation(context.Background(), "token-1", "r1"))
}

func TestRequestLoginCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/request-login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "auth endpoints carry no bearer token")
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.RequestLoginCode(context.Background(), "me@example.test"))
}

func TestAPIErrorCarriesStatusAndBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("seat already taken"))
	})

	_, err := client.CreateReservation(context.Background(), "token-1", CreateParams{
		Type: TypeNormal, Date: "2026-08-31", From: "10:00", To: "23:59", SeatID: "s1",
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "seat already taken", apiErr.Body)
	assert.False(t, IsStatus(err, http.StatusNotFound))
}
