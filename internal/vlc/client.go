package vlc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnreachable wraps every transport-level failure talking to VLC.
var ErrUnreachable = errors.New("vlc http interface unreachable")

const (
	defaultClientTimeout = 3 * time.Second
	defaultClientRate    = 50
	defaultClientBurst   = 20
)

// Client talks to the VLC Lua HTTP interface (status.json/playlist.json).
// VLC authenticates with HTTP Basic and an empty user name.
type Client struct {
	BaseURL    string
	Password   string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient returns a Client for baseURL (for example http://127.0.0.1:9090).
func NewClient(baseURL, password string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Password:   password,
		HTTPClient: &http.Client{Timeout: defaultClientTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultClientRate), defaultClientBurst),
	}
}

// Status is the subset of /requests/status.json that playback needs.
// Times are in seconds.
type Status struct {
	Time        float64         `json:"time"`
	Length      float64         `json:"length"`
	Position    float64         `json:"position"`
	State       string          `json:"state"`
	Rate        float64         `json:"rate"`
	CurrentPLID int             `json:"currentplid"`
	Information json.RawMessage `json:"information"`
}

// Playing reports whether VLC is playing.
func (s Status) Playing() bool { return s.State == "playing" }

// PositionMs prefers the fractional position, which is finer grained than
// the whole-second time field.
func (s Status) PositionMs() int64 {
	if s.Length > 0 && s.Position > 0 {
		return int64(s.Position * s.Length * 1000)
	}
	return int64(s.Time * 1000)
}

// LengthMs returns the item length, or 0 while unknown.
func (s Status) LengthMs() int64 {
	if s.Length <= 0 {
		return 0
	}
	return int64(s.Length * 1000)
}

// Stream is one elementary stream listed under information.category.
type Stream struct {
	ID       int
	Type     string
	Codec    string
	Language string
}

// Streams decodes the "Stream N" categories in ID order. VLC emits an
// empty JSON array instead of an object when nothing is loaded.
func (s Status) Streams() []Stream {
	var info struct {
		Category map[string]json.RawMessage `json:"category"`
	}
	if len(s.Information) == 0 || json.Unmarshal(s.Information, &info) != nil {
		return nil
	}
	var out []Stream
	for name, raw := range info.Category {
		idText, ok := strings.CutPrefix(name, "Stream ")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(idText)
		if err != nil {
			continue
		}
		var fields map[string]string
		if json.Unmarshal(raw, &fields) != nil {
			continue
		}
		out = append(out, Stream{
			ID:       id,
			Type:     fields["Type"],
			Codec:    fields["Codec"],
			Language: fields["Language"],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PlaylistItem is a leaf of the "Playlist" node in playlist.json.
type PlaylistItem struct {
	ID   int
	Name string
	URI  string
}

type playlistNode struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	URI      string         `json:"uri"`
	Type     string         `json:"type"`
	Children []playlistNode `json:"children"`
}

// Status fetches the current status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	return c.Command(ctx, "", nil)
}

// Command runs a status.json command (pl_play, seek, rate, ...) and returns
// the status VLC reports afterwards. An empty cmd only reads the status.
func (c *Client) Command(ctx context.Context, cmd string, params url.Values) (Status, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	if cmd != "" {
		q.Set("command", cmd)
	}
	var st Status
	if err := c.get(ctx, "/requests/status.json", q, &st); err != nil {
		if cmd != "" {
			return st, fmt.Errorf("vlc %s: %w", cmd, err)
		}
		return st, err
	}
	return st, nil
}

// Playlist returns the items of the main playlist in order.
func (c *Client) Playlist(ctx context.Context) ([]PlaylistItem, error) {
	var root playlistNode
	if err := c.get(ctx, "/requests/playlist.json", nil, &root); err != nil {
		return nil, fmt.Errorf("vlc playlist: %w", err)
	}
	for _, node := range root.Children {
		// VLC 3 names the node "Playlist" and always gives it id 1.
		if node.ID != "1" && !strings.EqualFold(node.Name, "Playlist") {
			continue
		}
		var items []PlaylistItem
		collectLeaves(node.Children, &items)
		return items, nil
	}
	return nil, nil
}

func collectLeaves(nodes []playlistNode, out *[]PlaylistItem) {
	for _, n := range nodes {
		if len(n.Children) > 0 || n.Type == "node" {
			collectLeaves(n.Children, out)
			continue
		}
		id, err := strconv.Atoi(n.ID)
		if err != nil {
			continue
		}
		*out = append(*out, PlaylistItem{ID: id, Name: n.Name, URI: n.URI})
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth("", c.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WaitReady polls status.json until VLC answers or ctx expires.
func (c *Client) WaitReady(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, err := c.Status(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrUnreachable, ctx.Err())
		case <-t.C:
		}
	}
}
