package reservation_test

import (
	"testing"

	"github.com/aussiebroadwan/labres/pkg/reservation"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    reservation.TimeOfDay
		wantErr bool
	}{
		{in: "00:00", want: reservation.TimeOfDay{}},
		{in: "09:30", want: reservation.TimeOfDay{Hour: 9, Minute: 30}},
		{in: "23:59", want: reservation.TimeOfDay{Hour: 23, Minute: 59}},
		{in: " 7:05 ", want: reservation.TimeOfDay{Hour: 7, Minute: 5}},
		{in: "14:15:00", want: reservation.TimeOfDay{Hour: 14, Minute: 15}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "12:00:99", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := reservation.ParseTimeOfDay(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, reservation.ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseMaintenanceWindow(t *testing.T) {
	t.Parallel()

	t.Run("missing bound means no window", func(t *testing.T) {
		w, err := reservation.ParseMaintenanceWindow("", "02:00")
		require.NoError(t, err)
		require.Nil(t, w)

		w, err = reservation.ParseMaintenanceWindow("01:00", "  ")
		require.NoError(t, err)
		require.Nil(t, w)
	})

	t.Run("both bounds", func(t *testing.T) {
		w, err := reservation.ParseMaintenanceWindow("01:00", "02:30")
		require.NoError(t, err)
		require.Equal(t, "01:00-02:30", w.String())
	})

	t.Run("malformed bound", func(t *testing.T) {
		_, err := reservation.ParseMaintenanceWindow("1am", "02:30")
		require.ErrorIs(t, err, reservation.ErrInvalidTimeOfDay)
		require.Contains(t, err.Error(), "maintenance_start")
	})
}
