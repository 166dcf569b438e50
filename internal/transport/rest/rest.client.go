// FilePath: internal/transport/rest/rest.client.go
package rest

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/segmentio/encoding/json"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
)

// Client talks to resources served by a rest Host.
type Client struct {
	http   *resty.Client
	dialer *websocket.Dialer
}

// NewClient creates a client. timeout bounds every GET and PUT that carries no deadline of its own.
func NewClient(timeout time.Duration) *Client {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	c.JSONMarshal = json.Marshal
	c.JSONUnmarshal = json.Unmarshal
	return &Client{
		http: c,
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
	}
}

// Get implements transport.Client.
func (c *Client) Get(ctx context.Context, res models.ResourceInfo) (models.Representation, error) {
	var rep models.Representation
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&rep).
		Get(resourceURL(res))
	if err := checkResponse("get", res, resp, err); err != nil {
		return nil, err
	}
	return rep, nil
}

// Put implements transport.Client.
func (c *Client) Put(ctx context.Context, res models.ResourceInfo, delta models.Representation) (models.Representation, error) {
	var rep models.Representation
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(delta).
		SetResult(&rep).
		Put(resourceURL(res))
	if err := checkResponse("put", res, resp, err); err != nil {
		return nil, err
	}
	return rep, nil
}

// Observe implements transport.Client. Notifications are delivered on a dedicated
// goroutine until the subscription is cancelled or the connection drops.
func (c *Client) Observe(ctx context.Context, res models.ResourceInfo, fn transport.ObserveFunc) (transport.Subscription, error) {
	url := observeURL(res)
	conn, resp, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("observe %s: %w", url, errors.ErrResourceNotFound)
		}
		return nil, errors.NewTransportError("observe "+url, wrapTimeout(err))
	}
	sub := &wsSubscription{
		id:   models.ObservationID(nuts.NID("obs", 10)),
		conn: conn,
	}
	go sub.readLoop(res, fn)
	return sub, nil
}

type wsSubscription struct {
	id   models.ObservationID
	conn *websocket.Conn
	once sync.Once
}

func (s *wsSubscription) ID() models.ObservationID {
	return s.id
}

func (s *wsSubscription) Cancel() {
	s.once.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = s.conn.Close()
	})
}

func (s *wsSubscription) readLoop(res models.ResourceInfo, fn transport.ObserveFunc) {
	defer s.Cancel()
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				nuts.L.Debugf("[RestClient] Observation of %s%s ended: %v", res.Host, res.URI, err)
			}
			return
		}
		var rep models.Representation
		if err := json.Unmarshal(payload, &rep); err != nil {
			nuts.L.Warnf("[RestClient] Malformed notification from %s%s: %v", res.Host, res.URI, err)
			continue
		}
		fn(rep)
	}
}

func resourceURL(res models.ResourceInfo) string {
	return strings.TrimSuffix(res.Host, "/") + res.URI
}

func observeURL(res models.ResourceInfo) string {
	base := resourceURL(res)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "?observe=1"
}

func checkResponse(op string, res models.ResourceInfo, resp *resty.Response, err error) error {
	target := resourceURL(res)
	if err != nil {
		return errors.NewTransportError(op+" "+target, wrapTimeout(err))
	}
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, target, errors.ErrResourceNotFound)
	}
	if resp.IsError() {
		return errors.NewTransportError(fmt.Sprintf("%s %s: status %d", op, target, resp.StatusCode()), nil)
	}
	return nil
}

func wrapTimeout(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, errors.ErrTimeout)
	}
	var netErr interface{ Timeout() bool }
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", err, errors.ErrTimeout)
	}
	return err
}
