package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aussiebroadwan/labres/internal/calendar"
	"github.com/aussiebroadwan/labres/pkg/httpx"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// describe turns API errors into the message the server sent.
func describe(err error) error {
	var werr *calendar.WriteError
	if errors.As(err, &werr) {
		return errors.New(werr.Message)
	}
	var apiErr *httpx.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("%s (HTTP %d)", apiErr.Message, apiErr.StatusCode)
	}
	return err
}
