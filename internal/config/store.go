package config

import (
	"sync"
)

// Store is the in-memory device configuration record backed by a YAML file.
// All accessors are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	fileMu sync.Mutex
	path   string
	rec    Record
}

// NewStore creates a Store holding defaults. Nothing is read or written.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		rec:  NewRecord(),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a copy of the full record.
func (s *Store) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.clone()
}

// Update applies fn to the record under the write lock.
func (s *Store) Update(fn func(*Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.rec)
}

func (s *Store) DeviceName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.DeviceName
}

func (s *Store) SetDeviceName(name string) {
	s.Update(func(r *Record) { r.DeviceName = name })
}

func (s *Store) DeviceID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.DeviceID
}

func (s *Store) SetDeviceID(id string) {
	s.Update(func(r *Record) { r.DeviceID = id })
}

// WiFiCredentials returns the configured station SSID and password.
func (s *Store) WiFiCredentials() (ssid, password string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.WiFiSSID, s.rec.WiFiPassword
}

func (s *Store) SetWiFiCredentials(ssid, password string) {
	s.Update(func(r *Record) {
		r.WiFiSSID = ssid
		r.WiFiPassword = password
	})
}

// MaxPosition returns the persisted maximum travel in mm (0 = unset).
func (s *Store) MaxPosition() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.MaxPosition
}

// SetMaxPosition stores mm as the maximum travel. Non-positive values are ignored.
func (s *Store) SetMaxPosition(mm float64) {
	if !(mm > 0) {
		return
	}
	s.Update(func(r *Record) { r.MaxPosition = mm })
}

// LineCoordinate returns the stored coordinate for line, or the unset
// sentinel (see IsUnset) when the line has none.
func (s *Store) LineCoordinate(line int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mm, ok := s.rec.LineCoordinates[line]
	if !ok {
		return Unset()
	}
	return mm
}

// SetLineCoordinate stores mm for line 1-4. Negative values are clamped to
// zero and out-of-range lines are ignored.
func (s *Store) SetLineCoordinate(line int, mm float64) {
	if line < FirstLine || line > LastLine {
		return
	}
	if mm < 0 {
		mm = 0
	}
	s.Update(func(r *Record) {
		if r.LineCoordinates == nil {
			r.LineCoordinates = make(map[int]float64)
		}
		r.LineCoordinates[line] = mm
	})
}

// LineCoordinates returns a copy of all stored line coordinates.
func (s *Store) LineCoordinates() map[int]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]float64, len(s.rec.LineCoordinates))
	for k, v := range s.rec.LineCoordinates {
		out[k] = v
	}
	return out
}

// SetLineCoordinates replaces the whole line coordinate map.
func (s *Store) SetLineCoordinates(coords map[int]float64) {
	cp := make(map[int]float64, len(coords))
	for k, v := range coords {
		cp[k] = v
	}
	s.Update(func(r *Record) { r.LineCoordinates = cp })
}

func (s *Store) MQTT() MQTTConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.MQTT
}

func (s *Store) Motor() MotorConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Motor
}

func (s *Store) Hardware() HardwareConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hw := s.rec.Hardware
	hw.ServoPins = append([]string(nil), hw.ServoPins...)
	return hw
}

func (s *Store) Network() NetworkConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Network
}

func (s *Store) HTTP() HTTPConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.HTTP
}
