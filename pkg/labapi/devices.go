package labapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/labres/pkg/httpx"
)

// ListDevices returns every device visible to the caller.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	resp, err := c.do(ctx, http.MethodGet, "/device/", nil)
	if err != nil {
		return nil, err
	}

	var out []Device
	if err := httpx.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDevice(ctx context.Context, id int) (*Device, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/device/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var d Device
	if err := httpx.DecodeJSON(resp, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
