package telephony_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/telephony"
)

func newTestProviderClient(url string) *telephony.Client {
	return telephony.NewClient(config.TelephonyConfig{
		BaseURL:        url,
		AccountSID:     "AC123",
		AuthToken:      "tok",
		TimeoutSeconds: 5,
	})
}

func TestSearchAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2010-04-01/Accounts/AC123/AvailablePhoneNumbers/US/Local.json", r.URL.Path)
		assert.Equal(t, "303", r.URL.Query().Get("AreaCode"))
		user, pass, _ := r.BasicAuth()
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "tok", pass)

		w.Write([]byte(`{"available_phone_numbers":[
			{"phone_number":"+13035550101","locality":"Denver","region":"CO"},
			{"phone_number":"+13035550102","locality":"Denver","region":"CO"}
		]}`))
	}))
	defer srv.Close()

	client := newTestProviderClient(srv.URL)
	nums, err := client.SearchAvailable(context.Background(), "303", 2)
	require.NoError(t, err)
	require.Len(t, nums, 2)
	assert.Equal(t, "+13035550101", nums[0].Number)
	assert.Equal(t, "Denver", nums[0].Locality)
}

func TestSearchAvailableEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"available_phone_numbers":[]}`))
	}))
	defer srv.Close()

	client := newTestProviderClient(srv.URL)
	_, err := client.SearchAvailable(context.Background(), "999", 1)
	assert.True(t, errors.Is(err, telephony.ErrNoNumbersAvailable))
}

func TestPurchase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2010-04-01/Accounts/AC123/IncomingPhoneNumbers.json", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+13035550101", r.PostForm.Get("PhoneNumber"))
		assert.Equal(t, "https://api.example.com/webhooks/calls", r.PostForm.Get("VoiceUrl"))

		w.Write([]byte(`{"sid":"PN999","phone_number":"+13035550101"}`))
	}))
	defer srv.Close()

	client := newTestProviderClient(srv.URL)
	got, err := client.Purchase(context.Background(), "+13035550101", "https://api.example.com/webhooks/calls")
	require.NoError(t, err)
	assert.Equal(t, "PN999", got.SID)
	assert.Equal(t, "+13035550101", got.Number)
}

func TestReleaseNumber(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2010-04-01/Accounts/AC123/IncomingPhoneNumbers/PN999.json", r.URL.Path)
		require.Equal(t, http.MethodDelete, r.Method)
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestProviderClient(srv.URL)
	require.NoError(t, client.ReleaseNumber(context.Background(), "PN999"))
	assert.True(t, called)
}

func TestProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"authentication failed"}`))
	}))
	defer srv.Close()

	client := newTestProviderClient(srv.URL)
	_, err := client.SearchAvailable(context.Background(), "", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
