// FilePath: internal/devices/devices.go
package devices

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/eventloop"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/resource"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
)

// Options tunes a device program. Zero values fall back to sensible defaults.
type Options struct {
	Name             string
	GatewayAddress   string
	SampleInterval   time.Duration
	PresenceInterval time.Duration
	RequestTimeout   time.Duration
	RegisterAttempts uint
	RegisterDelay    time.Duration
}

func (o Options) withDefaults(k kind) Options {
	if o.Name == "" {
		o.Name = k.name
	}
	if o.GatewayAddress == "" {
		o.GatewayAddress = transport.DiscoveryPath + "?rt=" + models.TypeSensors
	}
	if o.SampleInterval <= 0 {
		o.SampleInterval = models.SampleInterval
	}
	if o.PresenceInterval <= 0 {
		o.PresenceInterval = models.PresenceCycle
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 3 * time.Second
	}
	if o.RegisterAttempts == 0 {
		o.RegisterAttempts = 10
	}
	if o.RegisterDelay <= 0 {
		o.RegisterDelay = 2 * time.Second
	}
	return o
}

// Device is one sensor or actuator program: a single resource backed by a pin,
// registered with the gateway.
type Device struct {
	kindName  string
	kind      kind
	pin       Pin
	loop      *eventloop.Loop
	host      transport.Host
	client    transport.Client
	directory transport.Directory
	opts      Options

	res          *resource.ObservableResource
	info         models.ResourceInfo
	sampler      *eventloop.Timer
	lastNotified models.Representation
}

// New builds a device of the given kind. Nothing is served until Start.
func New(kindName string, pin Pin, loop *eventloop.Loop, host transport.Host, client transport.Client, directory transport.Directory, opts Options) (*Device, error) {
	k, ok := kinds[kindName]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown device kind %q", kindName), nil)
	}
	d := &Device{
		kindName:  kindName,
		kind:      k,
		pin:       pin,
		loop:      loop,
		host:      host,
		client:    client,
		directory: directory,
		opts:      opts.withDefaults(k),
	}

	resOpts := []resource.Option{resource.WithPresenceInterval(d.opts.PresenceInterval)}
	var initial models.Representation
	if k.sample != nil {
		initial = k.sample(pin.Read())
		resOpts = append(resOpts, resource.WithSampler(func() models.Representation {
			return k.sample(d.pin.Read())
		}))
	} else {
		initial = k.initial(pin.Read())
		resOpts = append(resOpts, resource.WithPutHook(d.onPut))
	}
	d.res = resource.New(k.uri, k.schema, initial, host, loop, resOpts...)
	return d, nil
}

// Resource returns the served resource.
func (d *Device) Resource() *resource.ObservableResource {
	return d.res
}

// Name is the name the device registers under.
func (d *Device) Name() string {
	return d.opts.Name
}

// Address is the discovery address the gateway uses to find this device.
func (d *Device) Address() string {
	return d.host.Address() + transport.DiscoveryPath + "?rt=" + d.kind.schema.Type
}

// Run starts the device and blocks until ctx is done.
func (d *Device) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), d.opts.RequestTimeout)
	defer cancel()
	d.Stop(stopCtx)
	return nil
}

// Start serves and advertises the resource, registers with the gateway and
// starts sampling.
func (d *Device) Start(ctx context.Context) error {
	if d.kindName == KindLED {
		d.configure(ctx)
	}

	info, err := d.host.Register(d.res)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", d.kind.uri, err)
	}
	d.info = info
	if err := d.directory.Advertise(ctx, info); err != nil {
		return fmt.Errorf("failed to advertise %s: %w", d.kind.uri, err)
	}
	nuts.L.Infof("[Device] %s serving %s%s", d.kindName, info.Host, info.URI)

	if err := d.register(ctx); err != nil {
		return fmt.Errorf("failed to register with gateway: %w", err)
	}

	if d.kind.sample != nil {
		d.lastNotified = d.res.Get()
		d.sampler = d.loop.AddTimeout(d.opts.SampleInterval, d.sampleTick)
	}
	return nil
}

// Stop withdraws and unregisters the resource.
func (d *Device) Stop(ctx context.Context) {
	if d.sampler != nil {
		d.sampler.Cancel()
	}
	d.res.Close()
	if err := d.host.Unregister(d.kind.uri); err != nil {
		nuts.L.Warnf("[Device] %s: %v", d.kindName, err)
	}
	if err := d.directory.Withdraw(ctx, d.info); err != nil {
		nuts.L.Warnf("[Device] %s: failed to withdraw: %v", d.kindName, err)
	}
	nuts.L.Infof("[Device] %s stopped", d.kindName)
}

// configure seeds the LED color from the gateway configuration. Without a
// reachable gateway the pin value is kept.
func (d *Device) configure(ctx context.Context) {
	q, err := transport.ParseQuery(d.opts.GatewayAddress)
	if err != nil {
		nuts.L.Warnf("[Device] %s: %v", d.kindName, err)
		return
	}
	q.ResourceType = models.TypeConfig
	conf, err := d.findFirst(ctx, q)
	if err != nil {
		nuts.L.Warnf("[Device] Can't get configuration from gateway: %v", err)
		return
	}
	reqCtx, cancel := context.WithTimeout(ctx, d.opts.RequestTimeout)
	defer cancel()
	rep, err := d.client.Get(reqCtx, conf)
	if err != nil {
		nuts.L.Warnf("[Device] Can't get configuration from gateway: %v", err)
		return
	}
	color, ok := rep.Int(models.AttrLedColor)
	if !ok {
		return
	}
	nuts.L.Infof("[Device] Setting led: %d", color)
	d.pin.Write(color)
	d.res.Set(models.Representation{models.AttrLedColor: color})
}

// register PUTs {name, address} on the gateway's gw.sensor resource, retrying
// until the gateway is found.
func (d *Device) register(ctx context.Context) error {
	q, err := transport.ParseQuery(d.opts.GatewayAddress)
	if err != nil {
		return err
	}
	body := models.Representation{
		models.AttrName:    d.opts.Name,
		models.AttrAddress: d.Address(),
	}
	return retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			gw, err := d.findFirst(ctx, q)
			if err != nil {
				return err
			}
			reqCtx, cancel := context.WithTimeout(ctx, d.opts.RequestTimeout)
			defer cancel()
			if _, err := d.client.Put(reqCtx, gw, body); err != nil {
				return err
			}
			nuts.L.Infof("[Device] Registered %s at %s%s", d.opts.Name, gw.Host, gw.URI)
			return nil
		},
		retry.Attempts(d.opts.RegisterAttempts),
		retry.Delay(d.opts.RegisterDelay),
		retry.OnRetry(func(n uint, err error) {
			nuts.L.Warnf("[Device] Registration attempt %d failed: %v", n+1, err)
		}),
	)
}

func (d *Device) findFirst(ctx context.Context, q transport.Query) (models.ResourceInfo, error) {
	findCtx, cancel := context.WithTimeout(ctx, d.opts.RequestTimeout)
	defer cancel()
	found, err := d.directory.Find(findCtx, q)
	if err != nil {
		return models.ResourceInfo{}, err
	}
	for info := range found {
		return info, nil
	}
	return models.ResourceInfo{}, errors.NewNotFoundError(fmt.Sprintf("no %s resource found", q.ResourceType), nil)
}

// sampleTick runs on the loop. Observers are notified only when the sampled
// representation differs from the last one they saw.
func (d *Device) sampleTick() bool {
	rep := d.res.Get()
	if rep.Equal(d.lastNotified) {
		return true
	}
	d.lastNotified = rep
	if err := d.res.Notify(); err != nil {
		nuts.L.Warnf("[Device] %s: notify failed: %v", d.kindName, err)
	}
	return true
}

func (d *Device) onPut(applied models.Representation) {
	if v, ok := d.kind.actuate(applied); ok {
		d.pin.Write(v)
		nuts.L.Infof("[Device] %s set to %v", d.kindName, applied)
	}
	d.loop.Post(func() {
		if err := d.res.Notify(); err != nil {
			nuts.L.Warnf("[Device] %s: notify failed: %v", d.kindName, err)
		}
	})
}
