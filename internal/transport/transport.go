// FilePath: internal/transport/transport.go
package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

// Handler is a resource served by a Host.
type Handler interface {
	Info() models.ResourceInfo
	Get() models.Representation
	Put(delta models.Representation) models.Representation
	RegisterObserver(id models.ObservationID)
	UnregisterObserver(id models.ObservationID)
}

// Host serves local resources to the network and pushes notifications to their observers.
type Host interface {
	// Address is the base address peers use to reach this host.
	Address() string
	Register(h Handler) (models.ResourceInfo, error)
	Unregister(uri string) error
	// Notify delivers rep to the given observers. It returns errors.ErrNoObservers
	// when none of them is reachable any more.
	Notify(uri string, observers []models.ObservationID, rep models.Representation) error
}

// ObserveFunc receives every notification of an observed resource.
type ObserveFunc func(rep models.Representation)

// Subscription is a live observation.
type Subscription interface {
	ID() models.ObservationID
	Cancel()
}

// Client performs requests against remote resources.
type Client interface {
	Get(ctx context.Context, res models.ResourceInfo) (models.Representation, error)
	Put(ctx context.Context, res models.ResourceInfo, delta models.Representation) (models.Representation, error)
	Observe(ctx context.Context, res models.ResourceInfo, fn ObserveFunc) (Subscription, error)
}

// Query selects resources during discovery. Empty fields match everything.
type Query struct {
	Host         string `schema:"host"`
	ResourceType string `schema:"rt"`
}

// Matches reports whether info satisfies the query.
func (q Query) Matches(info models.ResourceInfo) bool {
	if q.Host != "" && strings.TrimSuffix(q.Host, "/") != strings.TrimSuffix(info.Host, "/") {
		return false
	}
	if q.ResourceType != "" && !info.HasType(q.ResourceType) {
		return false
	}
	return true
}

// Directory advertises and discovers resources. Find results arrive asynchronously,
// in no particular order, and may repeat a resource.
type Directory interface {
	Advertise(ctx context.Context, info models.ResourceInfo) error
	Withdraw(ctx context.Context, info models.ResourceInfo) error
	Find(ctx context.Context, q Query) (<-chan models.ResourceInfo, error)
}

// DiscoveryPath is the well-known listing path of every host.
const DiscoveryPath = "/oic/res"

// ParseQuery turns a discovery address such as "http://10.0.0.2:8080/oic/res?rt=intel.gas"
// into a Query. A bare resource type is accepted as well.
func ParseQuery(address string) (Query, error) {
	if !strings.Contains(address, "://") {
		if strings.HasPrefix(address, DiscoveryPath) {
			u, err := url.Parse(address)
			if err != nil {
				return Query{}, fmt.Errorf("invalid discovery address %q: %w", address, err)
			}
			return Query{ResourceType: u.Query().Get("rt")}, nil
		}
		return Query{ResourceType: address}, nil
	}
	u, err := url.Parse(address)
	if err != nil {
		return Query{}, fmt.Errorf("invalid discovery address %q: %w", address, err)
	}
	q := Query{ResourceType: u.Query().Get("rt")}
	if u.Host != "" {
		q.Host = u.Scheme + "://" + u.Host
	}
	return q, nil
}

// HostOf extracts the scheme and authority of an address, which is how sensors
// identify themselves when registering with the gateway.
func HostOf(address string) string {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(address, "/")
	}
	return u.Scheme + "://" + u.Host
}
