package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIClient talks to the control API of a supervisor started with
// `stackup up --serve`.
type APIClient struct {
	base string
	hc   *http.Client
}

func newClient(f *APIFlags) *APIClient {
	base := strings.TrimRight(f.URL, "/")
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &APIClient{base: base, hc: &http.Client{Timeout: timeout}}
}

// Op performs a start or stop against the selected group or service.
func (c *APIClient) Op(op string, sel *SelectorFlags) error {
	q := url.Values{}
	if sel.Group != "" {
		q.Set("group", sel.Group)
	} else {
		q.Set("service", sel.Service)
	}
	resp, err := c.hc.Post(c.base+"/"+op+"?"+q.Encode(), "application/json", nil)
	if err != nil {
		return fmt.Errorf("supervisor not reachable at %s: %w (start one with 'stackup up --serve')", c.base, err)
	}
	defer func() { _ = resp.Body.Close() }()
	return decodeErr(resp)
}

// Status fetches and pretty-prints the status snapshot.
func (c *APIClient) Status(w io.Writer, name string) error {
	u := c.base + "/status"
	if name != "" {
		u += "?name=" + url.QueryEscape(name)
	}
	resp, err := c.hc.Get(u)
	if err != nil {
		return fmt.Errorf("supervisor not reachable at %s: %w (start one with 'stackup up --serve')", c.base, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if err := decodeErr(resp); err != nil {
		return err
	}
	var v any
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func decodeErr(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	var e struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
		return fmt.Errorf("%s", e.Error)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}
