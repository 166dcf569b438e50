// FilePath: internal/bluetooth/bluetooth.measurement.go
package bluetooth

// ParseHeartRate decodes a Heart Rate Measurement characteristic value. Bit 0 of
// the flags byte selects an 8 or 16 bit little-endian rate.
func ParseHeartRate(b []byte) (int, bool) {
	if len(b) < 2 {
		return 0, false
	}
	if b[0]&0x01 == 0 {
		return int(b[1]), true
	}
	if len(b) < 3 {
		return 0, false
	}
	return int(b[1]) | int(b[2])<<8, true
}
