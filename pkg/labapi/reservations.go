package labapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/aussiebroadwan/labres/pkg/httpx"
)

// ListReservations returns the reservations of one device ordered by start.
func (c *Client) ListReservations(ctx context.Context, deviceID int) ([]Reservation, error) {
	q := url.Values{"device_id": {strconv.Itoa(deviceID)}}
	resp, err := c.do(ctx, http.MethodGet, "/reservation?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out []Reservation
	if err := httpx.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// CreateReservation books a new reservation.
func (c *Client) CreateReservation(ctx context.Context, in ReservationInput) (*Reservation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPost, "/reservation", in)
	if err != nil {
		return nil, err
	}
	return decodeReservation(resp)
}

// UpdateReservation moves an existing reservation.
func (c *Client) UpdateReservation(ctx context.Context, id int, in ReservationInput) (*Reservation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/reservation/%d", id), in)
	if err != nil {
		return nil, err
	}
	return decodeReservation(resp)
}

// DeleteReservation cancels a reservation.
func (c *Client) DeleteReservation(ctx context.Context, id int) error {
	resp, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/reservation/%d", id), nil)
	if err != nil {
		return err
	}
	return httpx.DecodeJSON(resp, nil)
}

// decodeReservation reads a reservation body. Some deployments answer
// writes with an empty body, which yields a nil reservation.
func decodeReservation(resp *http.Response) (*Reservation, error) {
	var raw *Reservation
	if err := httpx.DecodeJSON(resp, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
