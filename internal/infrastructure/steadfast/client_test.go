package steadfast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelandcode07/guptodhan-sub002/internal/domain"
)

func testRequest() domain.ShipmentRequest {
	return domain.ShipmentRequest{
		Reference:        "GD-1001",
		RecipientName:    "Rahim Uddin",
		RecipientPhone:   "01712345678",
		RecipientAddress: "House 7, Road 2, Dhanmondi, Dhaka",
		CODAmount:        2400,
	}
}

func newTestClient(url string) *Client {
	return NewClient(url, "test-api-key", "test-secret", 2*time.Second)
}

func TestCreateShipmentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/create_order", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("Api-Key"))
		assert.Equal(t, "test-secret", r.Header.Get("Secret-Key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":200,"consignment":{"consignment_id":1424107,"tracking_code":"15BAEB8A","status":"in_review"}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).CreateShipment(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "15BAEB8A", res.TrackingID)
	assert.Equal(t, "1424107", res.ParcelID)
}

func TestCreateShipmentPartialIdentifiers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":200,"consignment":{"consignment_id":1424107,"tracking_code":""}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateShipment(context.Background(), testRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPartialShipment))
	assert.False(t, IsRetryable(err))
}

func TestCreateShipmentAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateShipment(context.Background(), testRequest())
	assert.True(t, errors.Is(err, domain.ErrCourierAuth))
	assert.False(t, IsRetryable(err))
}

func TestCreateShipmentProviderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"status":422,"message":"invalid recipient address"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateShipment(context.Background(), testRequest())
	assert.True(t, errors.Is(err, domain.ErrCourierRejected))
	assert.False(t, IsRetryable(err))
}

func TestCreateShipmentProviderStatusInBody(t *testing.T) {
	// Some provider failures come back as HTTP 200 with an error status in
	// the payload.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":400,"message":"cod amount exceeds limit"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateShipment(context.Background(), testRequest())
	assert.True(t, errors.Is(err, domain.ErrCourierRejected))
}

func TestCreateShipmentServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateShipment(context.Background(), testRequest())
	assert.True(t, errors.Is(err, domain.ErrCourierNetwork))
	assert.True(t, IsRetryable(err))
}

func TestCreateShipmentTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", "s", 50*time.Millisecond)
	_, err := client.CreateShipment(context.Background(), testRequest())
	assert.True(t, errors.Is(err, domain.ErrCourierNetwork))
	assert.True(t, IsRetryable(err))
}
