package labapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/labres/pkg/httpx"
	"github.com/aussiebroadwan/labres/pkg/labapi"
	"github.com/aussiebroadwan/labres/pkg/reservation"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type fakeLab struct {
	srv   *httptest.Server
	calls atomic.Int32

	mu       sync.Mutex
	lastBody map[string]any
	lastPath string
}

func newFakeLab(t *testing.T) *fakeLab {
	t.Helper()
	f := &fakeLab{}

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.calls.Add(1)
			f.mu.Lock()
			f.lastPath = r.Method + " " + r.URL.RequestURI()
			f.lastBody = nil
			if r.Body != nil {
				_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
			}
			f.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})

	r.HandleFunc("/device/", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "name": "scope", "maintenance_start": "18:00", "maintenance_end": "19:00"},
			{"id": 2, "name": "plotter", "maintenance_start": nil, "maintenance_end": nil},
		})
	}).Methods(http.MethodGet)
	r.HandleFunc("/device/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] != "1" {
			httpx.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Device not found"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"id": 1, "name": "scope", "maintenance_start": "18:00", "maintenance_end": "19:00",
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/reservation", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, []map[string]any{
			{"id": 8, "device_id": 1, "start": "2024-04-12T10:00:00+00:00", "end": "2024-04-12T11:00:00+00:00", "queued": false},
			{"id": 7, "device_id": 1, "start": "2024-04-11T10:00:00+00:00", "end": "2024-04-11T11:00:00+00:00", "queued": true, "username": "jdoe"},
		})
	}).Methods(http.MethodGet)
	r.HandleFunc("/reservation", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		body := f.lastBody
		f.mu.Unlock()
		if body["start"] == "2024-04-11T18:30:00Z" {
			httpx.WriteJSON(w, http.StatusConflict, map[string]string{"detail": "Device is under maintenance"})
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, map[string]any{
			"id": 9, "device_id": body["device_id"], "start": body["start"], "end": body["end"], "queued": false,
		})
	}).Methods(http.MethodPost)
	r.HandleFunc("/reservation/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPatch)
	r.HandleFunc("/reservation/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeLab) last() (string, map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPath, f.lastBody
}

func TestDevices(t *testing.T) {
	lab := newFakeLab(t)
	c := labapi.NewClient(lab.srv.URL+"/", nil)
	ctx := context.Background()

	devices, err := c.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	w, err := devices[0].MaintenanceWindow()
	require.NoError(t, err)
	require.Equal(t, &reservation.MaintenanceWindow{
		Start: reservation.TimeOfDay{Hour: 18},
		End:   reservation.TimeOfDay{Hour: 19},
	}, w)

	w, err = devices[1].MaintenanceWindow()
	require.NoError(t, err)
	require.Nil(t, w)

	d, err := c.GetDevice(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "scope", d.Name)

	_, err = c.GetDevice(ctx, 5)
	require.Equal(t, http.StatusNotFound, httpx.StatusCode(err))
	require.Equal(t, "Device not found", httpx.MessageOr(err, ""))
}

func TestListReservations(t *testing.T) {
	lab := newFakeLab(t)
	c := labapi.NewClient(lab.srv.URL, nil)

	list, err := c.ListReservations(context.Background(), 1)
	require.NoError(t, err)

	path, _ := lab.last()
	require.Equal(t, "GET /reservation?device_id=1", path)

	require.Len(t, list, 2)
	require.Equal(t, 7, list[0].ID)
	require.Equal(t, "jdoe", list[0].Username)
	require.True(t, list[0].Queued)
	require.True(t, list[0].Start.Equal(time.Date(2024, 4, 11, 10, 0, 0, 0, time.UTC)))
	require.Equal(t, 8, list[1].ID)
}

func TestCreateReservation(t *testing.T) {
	lab := newFakeLab(t)
	c := labapi.NewClient(lab.srv.URL, nil)
	ctx := context.Background()

	t.Run("sends rfc3339 body", func(t *testing.T) {
		in := labapi.ReservationInput{
			DeviceID: 1,
			Start:    time.Date(2024, 4, 11, 10, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 4, 11, 11, 0, 0, 0, time.UTC),
		}
		got, err := c.CreateReservation(ctx, in)
		require.NoError(t, err)
		require.Equal(t, 9, got.ID)
		require.True(t, got.End.Equal(in.End))

		path, body := lab.last()
		require.Equal(t, "POST /reservation", path)
		require.Equal(t, "2024-04-11T10:00:00Z", body["start"])
		require.Equal(t, "2024-04-11T11:00:00Z", body["end"])
		require.EqualValues(t, 1, body["device_id"])
	})

	t.Run("server rejection carries detail", func(t *testing.T) {
		_, err := c.CreateReservation(ctx, labapi.ReservationInput{
			DeviceID: 1,
			Start:    time.Date(2024, 4, 11, 18, 30, 0, 0, time.UTC),
			End:      time.Date(2024, 4, 11, 20, 0, 0, 0, time.UTC),
		})
		var apiErr *httpx.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusConflict, apiErr.StatusCode)
		require.Equal(t, "Device is under maintenance", apiErr.Message)
	})

	t.Run("invalid input is not sent", func(t *testing.T) {
		before := lab.calls.Load()
		start := time.Date(2024, 4, 11, 10, 0, 0, 0, time.UTC)

		_, err := c.CreateReservation(ctx, labapi.ReservationInput{DeviceID: 1, Start: start, End: start})
		require.ErrorIs(t, err, labapi.ErrInvalidInput)
		_, err = c.CreateReservation(ctx, labapi.ReservationInput{Start: start, End: start.Add(time.Hour)})
		require.ErrorIs(t, err, labapi.ErrInvalidInput)

		require.Equal(t, before, lab.calls.Load())
	})
}

func TestUpdateAndDelete(t *testing.T) {
	lab := newFakeLab(t)
	c := labapi.NewClient(lab.srv.URL, nil)
	ctx := context.Background()

	got, err := c.UpdateReservation(ctx, 7, labapi.ReservationInput{
		DeviceID: 1,
		Start:    time.Date(2024, 4, 11, 10, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 4, 11, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Nil(t, got)
	path, body := lab.last()
	require.Equal(t, "PATCH /reservation/7", path)
	require.Equal(t, "2024-04-11T12:00:00Z", body["end"])

	require.NoError(t, c.DeleteReservation(ctx, 7))
	path, _ = lab.last()
	require.Equal(t, "DELETE /reservation/7", path)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-04-11T10:00:00Z", time.Date(2024, 4, 11, 10, 0, 0, 0, time.UTC)},
		{"2024-04-11T10:00:00+02:00", time.Date(2024, 4, 11, 8, 0, 0, 0, time.UTC)},
		{"2024-04-11T10:00:00", time.Date(2024, 4, 11, 10, 0, 0, 0, time.Local)},
		{"2024-04-11T10:00", time.Date(2024, 4, 11, 10, 0, 0, 0, time.Local)},
		{"2024-04-11 10:00:00", time.Date(2024, 4, 11, 10, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := labapi.ParseTimestamp(tt.in)
			require.NoError(t, err)
			require.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := labapi.ParseTimestamp("soon")
	require.Error(t, err)
}

func TestFormatTimestampKeepsFractionalSeconds(t *testing.T) {
	in := time.Date(2024, 4, 11, 10, 0, 0, 250_000_000, time.UTC)

	s := labapi.FormatTimestamp(in)
	require.Equal(t, "2024-04-11T10:00:00.25Z", s)

	got, err := labapi.ParseTimestamp(s)
	require.NoError(t, err)
	require.True(t, in.Equal(got))

	require.Equal(t, "2024-04-11T10:00:00Z", labapi.FormatTimestamp(in.Truncate(time.Second)))
}
