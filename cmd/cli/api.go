package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"planethub/internal/events"
	"planethub/internal/intake"
	"planethub/internal/view"
	"planethub/pkg/models"
)

// apiError is a non-2xx answer from the API server.
type apiError struct {
	Status  int      `json:"-"`
	Message string   `json:"error"`
	Missing []string `json:"missing"`
}

func (e *apiError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Missing, ", "))
	}
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// List fetches the directory; full also asks for the complete planet records.
func (a *apiClient) List(ctx context.Context, sort string, full bool) (view.DirectoryState, error) {
	endpoint := a.baseURL + "/planets"
	q := url.Values{}
	if sort != "" {
		q.Set("sort", sort)
	}
	if full {
		q.Set("include", "planets")
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var st view.DirectoryState
	err := a.doJSON(ctx, http.MethodGet, endpoint, nil, &st)
	return st, err
}

// Show returns found=false with no error when the planet does not exist.
func (a *apiClient) Show(ctx context.Context, name string) (view.DetailState, error) {
	var st view.DetailState
	err := a.doJSON(ctx, http.MethodGet, a.baseURL+view.PlanetHref(name), nil, &st)
	var ae *apiError
	if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
		return view.DetailState{Name: name, Message: view.NotFoundMessage}, nil
	}
	return st, err
}

func (a *apiClient) Add(ctx context.Context, f intake.Fields) (models.Planet, error) {
	var p models.Planet
	err := a.doJSON(ctx, http.MethodPost, a.baseURL+"/planets", f, &p)
	return p, err
}

func (a *apiClient) doJSON(ctx context.Context, method, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		ae := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(data, ae) != nil || ae.Message == "" {
			ae.Message = strings.TrimSpace(string(data))
		}
		return ae
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// watchWS prints every event from the API server's /ws stream until ctx ends.
func watchWS(ctx context.Context, baseURL string, handle func(events.Event)) error {
	endpoint, err := websocketURL(baseURL, "/ws")
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var ev events.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		handle(ev)
	}
}

// watchTCP reads the newline-delimited event feed.
func watchTCP(ctx context.Context, addr string, handle func(events.Event)) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		var ev events.Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			continue
		}
		handle(ev)
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}
