package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eval-printer/SmartHome-Demo/internal/bluetooth"
	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/eventloop"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/resource"
	"github.com/eval-printer/SmartHome-Demo/internal/transport/loopback"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type mockRuleStore struct {
	mock.Mock
}

func (m *mockRuleStore) Load(ctx context.Context) (*models.RuleConfig, error) {
	args := m.Called(ctx)
	cfg, _ := args.Get(0).(*models.RuleConfig)
	return cfg, args.Error(1)
}

func (m *mockRuleStore) Save(ctx context.Context, cfg models.RuleConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

type harness struct {
	t    *testing.T
	ctx  context.Context
	loop *eventloop.Loop
	net  *loopback.Network
	reg  *Registry
}

func newHarness(t *testing.T, store RuleStore) *harness {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	loop := eventloop.New(256)
	go loop.Run(ctx)

	net := loopback.NewNetwork()
	opts := Options{
		StationID: "test",
		// The liveness cycle is driven by hand.
		ResetTimeout:     time.Hour,
		ActiveInterval:   time.Minute,
		PresenceInterval: time.Hour,
		RequestTimeout:   time.Second,
	}
	if store != nil {
		opts.Rules = store
	}
	reg := New(loop, net.Host("gateway"), net, net, opts)
	require.NoError(t, reg.Start(ctx))
	return &harness{t: t, ctx: ctx, loop: loop, net: net, reg: reg}
}

func (h *harness) gateway(uri string) models.ResourceInfo {
	return models.ResourceInfo{URI: uri, Host: "loop://gateway"}
}

// device serves a resource on its own host, advertises it and registers it with the gateway.
func (h *harness) device(name, hostName, uri string, schema resource.Schema, initial models.Representation, opts ...resource.Option) *resource.ObservableResource {
	host := h.net.Host(hostName)
	res := resource.New(uri, schema, initial, host, nil, opts...)
	info, err := host.Register(res)
	require.NoError(h.t, err)
	require.NoError(h.t, h.net.Advertise(h.ctx, info))

	_, err = h.net.Put(h.ctx, h.gateway(models.URISensors), models.Representation{
		models.AttrName:    name,
		models.AttrAddress: "loop://" + hostName + "/oic/res?rt=" + schema.Type,
	})
	require.NoError(h.t, err)
	return res
}

func (h *harness) status() Status {
	st, err := h.reg.Status(h.ctx)
	require.NoError(h.t, err)
	return st
}

func (h *harness) waitUsable(name string, res *resource.ObservableResource) {
	assert.Eventually(h.t, func() bool {
		rec, ok := h.status().Sensors[name]
		return ok && rec.Usable() && len(res.Observers()) == 1
	}, waitFor, tick, "sensor %s never became usable", name)
}

func (h *harness) putRules(delta models.Representation) {
	_, err := h.net.Put(h.ctx, h.gateway(models.URIRules), delta)
	require.NoError(h.t, err)
}

func (h *harness) call(fn func()) {
	require.NoError(h.t, h.loop.Call(h.ctx, fn))
}

func TestRegistrationAddsSensorAndNotifiesObservers(t *testing.T) {
	h := newHarness(t, nil)

	var mu sync.Mutex
	var maps []models.Representation
	sub, err := h.net.Observe(h.ctx, h.gateway(models.URISensors), func(rep models.Representation) {
		mu.Lock()
		maps = append(maps, rep)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Cancel()

	added := make(chan SensorEvent, 4)
	h.reg.OnSensorEvent(EventSensorAdded, "test", func(ev SensorEvent) { added <- ev })

	gas := h.device(models.SlotGas, "gas-1", models.URIGas, resource.GasSchema, models.Representation{models.AttrDensity: 10})
	h.waitUsable(models.SlotGas, gas)

	select {
	case ev := <-added:
		assert.Equal(t, models.SlotGas, ev.Name)
	case <-time.After(waitFor):
		t.Fatal("sensor.added not emitted")
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(maps) == 0 {
			return false
		}
		last := maps[len(maps)-1]
		return last[models.SlotGas] == "loop://gas-1/oic/res?rt=intel.gas"
	}, waitFor, tick)

	rep, err := h.net.Get(h.ctx, h.gateway(models.URISensors))
	require.NoError(t, err)
	assert.Equal(t, models.Representation{models.SlotGas: "loop://gas-1/oic/res?rt=intel.gas"}, rep)
}

func TestRegistrationWithoutAddressIsIgnored(t *testing.T) {
	h := newHarness(t, nil)

	rep, err := h.net.Put(h.ctx, h.gateway(models.URISensors), models.Representation{models.AttrName: "gas"})
	require.NoError(t, err)
	assert.Empty(t, rep)

	assert.Empty(t, h.status().Sensors)
}

func TestGasRuleDrivesFan(t *testing.T) {
	h := newHarness(t, nil)

	fan := h.device(models.SlotFan, "fan-1", models.URIFan, resource.FanSchema, models.Representation{models.AttrFanState: models.FanOff})
	gas := h.device(models.SlotGas, "gas-1", models.URIGas, resource.GasSchema, models.Representation{models.AttrDensity: 10})
	h.waitUsable(models.SlotFan, fan)
	h.waitUsable(models.SlotGas, gas)

	h.putRules(models.Representation{models.AttrKitchenMonitor: true})
	assert.Eventually(t, func() bool { return h.status().Rules.KitchenMonitor }, waitFor, tick)

	fanState := func() string {
		s, _ := fan.Get().String(models.AttrFanState)
		return s
	}

	gas.Set(models.Representation{models.AttrDensity: 80})
	require.NoError(t, gas.Notify())
	assert.Eventually(t, func() bool { return fanState() == models.FanOn }, waitFor, tick)
	assert.Eventually(t, func() bool { return h.status().FanOn }, waitFor, tick)

	gas.Set(models.Representation{models.AttrDensity: 60})
	require.NoError(t, gas.Notify())
	assert.Eventually(t, func() bool { return fanState() == models.FanOff }, waitFor, tick)
}

func TestGasRuleSendsOneCommandPerFanChange(t *testing.T) {
	h := newHarness(t, nil)

	var mu sync.Mutex
	var puts []string
	fanPuts := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), puts...)
	}
	fan := h.device(models.SlotFan, "fan-1", models.URIFan, resource.FanSchema,
		models.Representation{models.AttrFanState: models.FanOff},
		resource.WithPutHook(func(applied models.Representation) {
			state, _ := applied.String(models.AttrFanState)
			mu.Lock()
			puts = append(puts, state)
			mu.Unlock()
			// a slow relay keeps the command in flight while readings queue up
			time.Sleep(20 * time.Millisecond)
		}))
	gas := h.device(models.SlotGas, "gas-1", models.URIGas, resource.GasSchema, models.Representation{models.AttrDensity: 10})
	h.waitUsable(models.SlotFan, fan)
	h.waitUsable(models.SlotGas, gas)

	h.putRules(models.Representation{models.AttrKitchenMonitor: true})
	assert.Eventually(t, func() bool { return h.status().Rules.KitchenMonitor }, waitFor, tick)

	for _, density := range []int{80, 75, 72} {
		gas.Set(models.Representation{models.AttrDensity: density})
		require.NoError(t, gas.Notify())
	}
	assert.Eventually(t, func() bool { return h.status().FanOn }, waitFor, tick)
	h.call(func() {})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{models.FanOn}, fanPuts())

	gas.Set(models.Representation{models.AttrDensity: 60})
	require.NoError(t, gas.Notify())
	assert.Eventually(t, func() bool { return !h.status().FanOn }, waitFor, tick)
	assert.Equal(t, []string{models.FanOn, models.FanOff}, fanPuts())
}

func TestGasRuleDisabledLeavesFanAlone(t *testing.T) {
	h := newHarness(t, nil)

	fan := h.device(models.SlotFan, "fan-1", models.URIFan, resource.FanSchema, models.Representation{models.AttrFanState: models.FanOff})
	gas := h.device(models.SlotGas, "gas-1", models.URIGas, resource.GasSchema, models.Representation{models.AttrDensity: 10})
	h.waitUsable(models.SlotFan, fan)
	h.waitUsable(models.SlotGas, gas)

	observed := make(chan Observation, 8)
	h.reg.OnObservation("test", func(o Observation) {
		if density, _ := o.State.Int(models.AttrDensity); o.Slot == models.SlotGas && density == 200 {
			observed <- o
		}
	})

	gas.Set(models.Representation{models.AttrDensity: 200})
	require.NoError(t, gas.Notify())

	select {
	case o := <-observed:
		density, _ := o.State.Int(models.AttrDensity)
		assert.Equal(t, 200, density)
	case <-time.After(waitFor):
		t.Fatal("observation not received")
	}
	// Let any in-flight command land.
	h.call(func() {})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, models.FanOff, fan.Get()[models.AttrFanState])
}

func TestMotionTurnsLedBlueWithoutEnableFlag(t *testing.T) {
	h := newHarness(t, nil)

	led := h.device(models.SlotLed, "led-1", models.URILed, resource.LedSchema, models.Representation{models.AttrLedColor: models.ColorGreen})
	pir := h.device(models.SlotMotion, "pir-1", models.URIMotion, resource.MotionSchema, models.Representation{models.AttrMotion: false})
	h.waitUsable(models.SlotLed, led)
	h.waitUsable(models.SlotMotion, pir)

	rules := h.status().Rules
	require.False(t, rules.KitchenMonitor)
	require.False(t, rules.CrazyJumping)

	pir.Set(models.Representation{models.AttrMotion: true})
	require.NoError(t, pir.Notify())

	assert.Eventually(t, func() bool {
		c, _ := led.Get().Int(models.AttrLedColor)
		return c == models.ColorBlue
	}, waitFor, tick)
}

func TestHeartRateSessionColorsLed(t *testing.T) {
	h := newHarness(t, nil)

	led := h.device(models.SlotLed, "led-1", models.URILed, resource.LedSchema, models.Representation{models.AttrLedColor: models.ColorBlue})
	h.waitUsable(models.SlotLed, led)

	h.putRules(models.Representation{models.AttrCrazyJumping: true})
	assert.Eventually(t, func() bool { return h.status().Rules.CrazyJumping }, waitFor, tick)

	removed := make(chan SensorEvent, 1)
	h.reg.OnSensorEvent(EventSensorRemoved, "test", func(ev SensorEvent) { removed <- ev })

	h.call(func() { h.reg.HandleBluetooth(bluetooth.Event{Kind: bluetooth.Connected, Address: "AA:BB"}) })
	st := h.status()
	assert.Equal(t, "AA:BB", st.HeartRateSession)
	assert.Contains(t, st.Sensors, models.SlotHeartRate)

	// A second strap is ignored while a session exists.
	h.call(func() { h.reg.HandleBluetooth(bluetooth.Event{Kind: bluetooth.Connected, Address: "CC:DD"}) })
	assert.Equal(t, "AA:BB", h.status().HeartRateSession)

	ledColor := func() int {
		c, _ := led.Get().Int(models.AttrLedColor)
		return c
	}

	h.call(func() { h.reg.HandleBluetooth(bluetooth.Event{Kind: bluetooth.Measurement, Address: "AA:BB", HeartRate: 100}) })
	assert.Eventually(t, func() bool { return ledColor() == models.ColorRed }, waitFor, tick)

	rep, err := h.net.Get(h.ctx, h.gateway(models.URIHeartRate))
	require.NoError(t, err)
	hr, _ := rep.Int(models.AttrHeartRate)
	assert.Equal(t, 100, hr)

	h.call(func() { h.reg.HandleBluetooth(bluetooth.Event{Kind: bluetooth.Measurement, Address: "AA:BB", HeartRate: 80}) })
	assert.Eventually(t, func() bool { return ledColor() == models.ColorGreen }, waitFor, tick)

	h.call(func() { h.reg.HandleBluetooth(bluetooth.Event{Kind: bluetooth.Disconnected, Address: "AA:BB"}) })
	st = h.status()
	assert.Empty(t, st.HeartRateSession)
	assert.NotContains(t, st.Sensors, models.SlotHeartRate)

	_, err = h.net.Get(h.ctx, h.gateway(models.URIHeartRate))
	assert.True(t, errors.IsNotFound(err))

	select {
	case ev := <-removed:
		assert.Equal(t, models.SlotHeartRate, ev.Name)
	case <-time.After(waitFor):
		t.Fatal("sensor.removed not emitted")
	}
}

func TestSilentSensorGoesInactiveAndIsRediscovered(t *testing.T) {
	h := newHarness(t, nil)

	gas := h.device(models.SlotGas, "gas-1", models.URIGas, resource.GasSchema, models.Representation{models.AttrDensity: 10})
	h.waitUsable(models.SlotGas, gas)

	inactive := make(chan SensorEvent, 1)
	h.reg.OnSensorEvent(EventSensorInactive, "test", func(ev SensorEvent) { inactive <- ev })

	h.call(func() {
		h.reg.ResetStatus()
		h.reg.ActiveCheck()
	})

	rec := h.status().Sensors[models.SlotGas]
	assert.Nil(t, rec.Resource)
	assert.False(t, rec.Active)
	assert.Equal(t, "loop://gas-1/oic/res?rt=intel.gas", rec.Address, "address is kept for rediscovery")

	rep, err := h.net.Get(h.ctx, h.gateway(models.URISensors))
	require.NoError(t, err)
	assert.NotContains(t, rep, models.SlotGas)
	assert.Eventually(t, func() bool { return len(gas.Observers()) == 0 }, waitFor, tick)

	select {
	case ev := <-inactive:
		assert.Equal(t, models.SlotGas, ev.Name)
	case <-time.After(waitFor):
		t.Fatal("sensor.inactive not emitted")
	}

	// The device is still reachable, so the next check finds it again.
	h.call(h.reg.ActiveCheck)
	h.waitUsable(models.SlotGas, gas)
	rep, err = h.net.Get(h.ctx, h.gateway(models.URISensors))
	require.NoError(t, err)
	assert.Contains(t, rep, models.SlotGas)
}

func TestObservedSensorStaysActive(t *testing.T) {
	h := newHarness(t, nil)

	gas := h.device(models.SlotGas, "gas-1", models.URIGas, resource.GasSchema, models.Representation{models.AttrDensity: 10})
	h.waitUsable(models.SlotGas, gas)

	observed := make(chan struct{}, 8)
	h.reg.OnObservation("test", func(o Observation) {
		if density, _ := o.State.Int(models.AttrDensity); density == 11 {
			observed <- struct{}{}
		}
	})

	h.call(h.reg.ResetStatus)
	gas.Set(models.Representation{models.AttrDensity: 11})
	require.NoError(t, gas.Notify())
	select {
	case <-observed:
	case <-time.After(waitFor):
		t.Fatal("observation not received")
	}
	h.call(h.reg.ActiveCheck)

	rec := h.status().Sensors[models.SlotGas]
	assert.True(t, rec.Usable())
	assert.Len(t, gas.Observers(), 1)
}

func TestFoundResourceIsDeduplicated(t *testing.T) {
	h := newHarness(t, nil)

	gas := h.device(models.SlotGas, "gas-1", models.URIGas, resource.GasSchema, models.Representation{models.AttrDensity: 10})
	h.waitUsable(models.SlotGas, gas)

	info := models.ResourceInfo{URI: models.URIGas, Types: []string{models.TypeGas}, Host: "loop://gas-1"}
	h.call(func() {
		h.reg.foundResource(info)
		h.reg.foundResource(info)
	})
	// Registering the same sensor again rediscovers the same resource.
	_, err := h.net.Put(h.ctx, h.gateway(models.URISensors), models.Representation{
		models.AttrName:    models.SlotGas,
		models.AttrAddress: "loop://gas-1/oic/res?rt=intel.gas",
	})
	require.NoError(t, err)

	h.call(func() {})
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, gas.Observers(), 1)
}

func TestUnknownResourceIsIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.call(func() {
		h.reg.foundResource(models.ResourceInfo{URI: "/a/toaster", Host: "loop://kitchen"})
		h.reg.foundResource(models.ResourceInfo{URI: models.URIGas, Host: "loop://unregistered"})
	})
	assert.Empty(t, h.status().Sensors)
}

func TestRulesArePersistedAndRestored(t *testing.T) {
	stored := models.DefaultRuleConfig()
	stored.Density = 40
	store := &mockRuleStore{}
	store.On("Load", mock.Anything).Return(&stored, nil)

	saved := make(chan models.RuleConfig, 1)
	store.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved <- args.Get(1).(models.RuleConfig)
	}).Return(nil)

	h := newHarness(t, store)
	assert.Eventually(t, func() bool { return h.status().Rules.Density == 40 }, waitFor, tick)

	rep, err := h.net.Get(h.ctx, h.gateway(models.URIRules))
	require.NoError(t, err)
	density, _ := rep.Int(models.AttrDensity)
	assert.Equal(t, 40, density)

	// Writing the current value changes nothing and is not stored.
	h.putRules(models.Representation{models.AttrDensity: 40})
	h.call(func() {})
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	h.putRules(models.Representation{models.AttrKitchenMonitor: true, "unknown": 1})
	select {
	case cfg := <-saved:
		assert.True(t, cfg.KitchenMonitor)
		assert.Equal(t, 40, cfg.Density)
	case <-time.After(waitFor):
		t.Fatal("rules not saved")
	}
}

func TestRulesPutMergesIntoCurrentRules(t *testing.T) {
	h := newHarness(t, nil)

	changed := make(chan models.RuleConfig, 4)
	h.reg.OnRulesChanged("test", func(cfg models.RuleConfig) { changed <- cfg })

	h.putRules(models.Representation{models.AttrHeartRate: 120})
	h.putRules(models.Representation{models.AttrCrazyJumping: true})
	h.call(func() {})

	want := models.DefaultRuleConfig()
	want.HeartRate = 120
	want.CrazyJumping = true
	assert.Equal(t, want, h.status().Rules)
	assert.Len(t, changed, 2)

	rep, err := h.net.Get(h.ctx, h.gateway(models.URIRules))
	require.NoError(t, err)
	heartRate, _ := rep.Int(models.AttrHeartRate)
	assert.Equal(t, 120, heartRate)
	jumping, _ := rep.Bool(models.AttrCrazyJumping)
	assert.True(t, jumping)
}

func TestEventsReachTypedListeners(t *testing.T) {
	h := newHarness(t, nil)

	var got []string
	h.reg.OnSensorEvent(EventSensorAdded, "test", func(ev SensorEvent) { got = append(got, "added:"+ev.Name) })
	h.reg.OnObservation("test", func(o Observation) { got = append(got, "observed:"+o.Slot) })
	h.reg.OnCommand("test", func(res CommandResult) { got = append(got, "command:"+res.Command.Slot) })
	h.reg.OnRulesChanged("test", func(models.RuleConfig) { got = append(got, "rules") })

	h.call(func() {
		h.reg.emit(EventSensorAdded, SensorEvent{Name: models.SlotGas})
		h.reg.emit(EventSensorObserved, Observation{Slot: models.SlotGas})
		h.reg.emit(EventRuleCommand, CommandResult{Command: models.Command{Slot: models.SlotFan}, OK: true})
		h.reg.emit(EventRulesChanged, models.DefaultRuleConfig())
		// a mistyped payload is logged, not delivered
		h.reg.emit(EventSensorAdded, models.SlotGas)
	})
	assert.Equal(t, []string{"added:gas", "observed:gas", "command:fan", "rules"}, got)
}

func TestMissingStoredRulesKeepDefaults(t *testing.T) {
	store := &mockRuleStore{}
	store.On("Load", mock.Anything).Return(nil, errors.NewNotFoundError("rules not found", nil))

	h := newHarness(t, store)
	assert.Equal(t, models.DefaultRuleConfig(), h.status().Rules)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestGatewayConfigStoresValues(t *testing.T) {
	h := newHarness(t, nil)

	rep, err := h.net.Get(h.ctx, h.gateway(models.URIConfig))
	require.NoError(t, err)
	assert.Equal(t, models.DefaultGatewayConfig().Representation(), rep)

	rep, err = h.net.Put(h.ctx, h.gateway(models.URIConfig), models.Representation{models.AttrLedState: true, models.AttrLedColor: "red"})
	require.NoError(t, err)
	assert.Equal(t, true, rep[models.AttrLedState])
	assert.Equal(t, models.ColorBlue, rep[models.AttrLedColor])
}

func TestStopWithdrawsResources(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.reg.Stop(h.ctx))

	_, err := h.net.Get(h.ctx, h.gateway(models.URISensors))
	assert.True(t, errors.IsNotFound(err))
}
