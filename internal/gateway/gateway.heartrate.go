// FilePath: internal/gateway/gateway.heartrate.go
package gateway

import (
	"context"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/bluetooth"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/resource"
	nuts "github.com/vaudience/go-nuts"
)

// HandleBluetooth dispatches a BLE event. It runs on the loop, see bluetooth.Pump.
func (r *Registry) HandleBluetooth(ev bluetooth.Event) {
	switch ev.Kind {
	case bluetooth.Connected:
		r.BluetoothConnected(ev.Address)
	case bluetooth.Measurement:
		r.BluetoothMeasurement(ev.Address, ev.HeartRate)
	case bluetooth.Disconnected:
		r.BluetoothDisconnected(ev.Address)
	}
}

// BluetoothConnected creates and serves /sensor/heartrate for the peer. Only one
// session exists at a time.
func (r *Registry) BluetoothConnected(address string) {
	if r.bleAddress != "" {
		nuts.L.Debugf("[Gateway] Ignoring BLE connect from %s, already connected to %s", address, r.bleAddress)
		return
	}
	res := resource.New(models.URIHeartRate, resource.HeartRateSchema,
		models.Representation{models.AttrAddress: address, models.AttrHeartRate: 0},
		r.host, r.loop, resource.WithPresenceInterval(r.opts.PresenceInterval))
	info, err := r.host.Register(res)
	if err != nil {
		nuts.L.Errorf("[Gateway] Failed to register heart rate resource: %v", err)
		return
	}
	r.advertise(info, true)

	r.heartRate = res
	r.bleAddress = address
	r.slots[models.SlotHeartRate] = &slot{
		record: models.SensorRecord{
			Name:     models.SlotHeartRate,
			Address:  info.Host + info.URI,
			Resource: &info,
			Active:   true,
		},
		listed: true,
		local:  true,
	}
	nuts.L.Infof("[Gateway] BLE heart rate monitor %s connected", address)
	r.emit(EventSensorAdded, SensorEvent{Name: models.SlotHeartRate, Address: info.Host + info.URI})
	r.publishSensors()
}

// BluetoothMeasurement publishes a heart rate and runs the heart rate rule.
func (r *Registry) BluetoothMeasurement(address string, heartRate int) {
	if r.heartRate == nil || address != r.bleAddress {
		return
	}
	r.heartRate.Set(models.Representation{models.AttrHeartRate: heartRate})
	if err := r.heartRate.Notify(); err != nil {
		nuts.L.Warnf("[Gateway] Failed to notify %s observers: %v", models.URIHeartRate, err)
	}
	r.emit(EventSensorObserved, Observation{
		Slot:       models.SlotHeartRate,
		URI:        models.URIHeartRate,
		State:      r.heartRate.Get(),
		ObservedAt: time.Now().UTC(),
	})
	r.execute(EvaluateHeartRate(r.ruleCfg, heartRate, r.usable(models.SlotLed)))
}

// BluetoothDisconnected tears the session down when the connected peer goes away.
func (r *Registry) BluetoothDisconnected(address string) {
	if r.heartRate == nil || address != r.bleAddress {
		return
	}
	info := r.heartRate.Info()
	info.Host = r.host.Address()
	if err := r.host.Unregister(models.URIHeartRate); err != nil {
		nuts.L.Warnf("[Gateway] Failed to unregister heart rate resource: %v", err)
	}
	r.heartRate.Close()
	r.advertise(info, false)

	r.heartRate = nil
	r.bleAddress = ""
	delete(r.slots, models.SlotHeartRate)
	nuts.L.Infof("[Gateway] BLE heart rate monitor %s disconnected", address)
	r.emit(EventSensorRemoved, SensorEvent{Name: models.SlotHeartRate, Address: address})
	r.publishSensors()
}

func (r *Registry) advertise(info models.ResourceInfo, add bool) {
	go func() {
		ctx, cancel := context.WithTimeout(r.ctx, r.opts.RequestTimeout)
		defer cancel()
		var err error
		if add {
			err = r.directory.Advertise(ctx, info)
		} else {
			err = r.directory.Withdraw(ctx, info)
		}
		if err != nil {
			nuts.L.Warnf("[Gateway] Directory update for %s failed: %v", info.URI, err)
		}
	}()
}
