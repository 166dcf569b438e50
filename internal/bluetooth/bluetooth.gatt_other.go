//go:build !linux

// FilePath: internal/bluetooth/bluetooth.gatt_other.go
package bluetooth

// NewGattSource is only available on linux.
func NewGattSource(deviceID int) (Source, error) {
	return nil, ErrUnsupported
}
