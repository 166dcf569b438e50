// FilePath: internal/transport/rest/rest.directory.go
package rest

import (
	"context"
	"strings"
	"sync"

	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
	nuts "github.com/vaudience/go-nuts"
)

// PeerDirectory discovers resources by asking a fixed set of peer hosts for their
// /oic/res listing. Hosts list their own resources, so Advertise and Withdraw are no-ops.
type PeerDirectory struct {
	client *Client
	peers  []string
}

// NewPeerDirectory creates a directory over the given peer base addresses.
func NewPeerDirectory(client *Client, peers []string) *PeerDirectory {
	return &PeerDirectory{client: client, peers: peers}
}

// Advertise implements transport.Directory.
func (d *PeerDirectory) Advertise(_ context.Context, _ models.ResourceInfo) error {
	return nil
}

// Withdraw implements transport.Directory.
func (d *PeerDirectory) Withdraw(_ context.Context, _ models.ResourceInfo) error {
	return nil
}

// Find implements transport.Directory. Peers are queried concurrently; unreachable
// peers are skipped.
func (d *PeerDirectory) Find(ctx context.Context, q transport.Query) (<-chan models.ResourceInfo, error) {
	targets := d.peers
	if q.Host != "" {
		targets = []string{q.Host}
	}
	out := make(chan models.ResourceInfo)
	var wg sync.WaitGroup
	for _, peer := range targets {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			for _, info := range d.list(ctx, peer, q) {
				select {
				case out <- info:
				case <-ctx.Done():
					return
				}
			}
		}(peer)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func (d *PeerDirectory) list(ctx context.Context, peer string, q transport.Query) []models.ResourceInfo {
	var listing []models.ResourceInfo
	req := d.client.http.R().SetContext(ctx).SetResult(&listing)
	if q.ResourceType != "" {
		req.SetQueryParam("rt", q.ResourceType)
	}
	resp, err := req.Get(strings.TrimSuffix(peer, "/") + transport.DiscoveryPath)
	if err != nil || resp.IsError() {
		nuts.L.Debugf("[PeerDirectory] Peer %s not answering discovery: %v", peer, err)
		return nil
	}
	out := listing[:0]
	for _, info := range listing {
		if q.Matches(info) {
			out = append(out, info)
		}
	}
	return out
}
