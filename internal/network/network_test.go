package network

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls   []call
	outputs map[string]string
	errs    map[string]error
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	r.calls = append(r.calls, call{name: name, args: args})
	key := strings.Join(args, " ")
	for prefix, err := range r.errs {
		if strings.HasPrefix(key, prefix) {
			return "", err
		}
	}
	for prefix, out := range r.outputs {
		if strings.HasPrefix(key, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func TestConnectArgs(t *testing.T) {
	r := &fakeRunner{}
	m := NewManager("wlan0", r)

	if err := m.Connect(context.Background(), "office", "pw"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	want := []string{"--wait", "10", "device", "wifi", "connect", "office", "password", "pw", "ifname", "wlan0"}
	if !reflect.DeepEqual(r.calls[0].args, want) {
		t.Errorf("args = %v, want %v", r.calls[0].args, want)
	}

	r.calls = nil
	if err := m.Connect(context.Background(), "open-net", ""); err != nil {
		t.Fatal(err)
	}
	for _, a := range r.calls[0].args {
		if a == "password" {
			t.Error("password argument passed for open network")
		}
	}
}

func TestConnectNoSSID(t *testing.T) {
	m := NewManager("wlan0", &fakeRunner{})
	if err := m.Connect(context.Background(), "", ""); !errors.Is(err, ErrNoSSID) {
		t.Errorf("Connect() error = %v, want ErrNoSSID", err)
	}
}

func TestConnectError(t *testing.T) {
	r := &fakeRunner{errs: map[string]error{"--wait": &CommandError{Command: "nmcli", ExitCode: 4}}}
	m := NewManager("wlan0", r)

	err := m.Connect(context.Background(), "office", "pw")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != 4 {
		t.Errorf("Connect() error = %v, want CommandError exit 4", err)
	}
}

func TestConnected(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want bool
	}{
		{"connected", "eth0:ethernet:unavailable\nwlan0:wifi:connected\n", true},
		{"disconnected", "wlan0:wifi:disconnected\n", false},
		{"missing", "eth0:ethernet:connected\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{outputs: map[string]string{"-t -f DEVICE": tt.out}}
			if got := NewManager("wlan0", r).Connected(context.Background()); got != tt.want {
				t.Errorf("Connected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScan(t *testing.T) {
	out := "office:80\nguest:40\noffice:60\n:90\ncafe\\:2:40\nbroken:x\n"
	r := &fakeRunner{outputs: map[string]string{"-t -f SSID": out}}

	aps, err := NewManager("wlan0", r).Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []AccessPoint{
		{SSID: "office", RSSI: -60},
		{SSID: "cafe:2", RSSI: -80},
		{SSID: "guest", RSSI: -80},
	}
	if !reflect.DeepEqual(aps, want) {
		t.Errorf("Scan() = %v, want %v", aps, want)
	}
}

func TestSignalToRSSI(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{100, -50},
		{0, -100},
		{-5, -100},
		{150, -50},
		{55, -73},
	}
	for _, tt := range tests {
		if got := SignalToRSSI(tt.in); got != tt.want {
			t.Errorf("SignalToRSSI(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStartAP(t *testing.T) {
	r := &fakeRunner{}
	m := NewManager("wlan0", r)

	if err := m.StartAP(context.Background(), "APTL-Setup", "192.168.4.1"); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(r.calls))
	}
	add := strings.Join(r.calls[1].args, " ")
	for _, want := range []string{"ssid APTL-Setup", "802-11-wireless.mode ap", "ipv4.addresses 192.168.4.1/24", "ipv4.method shared"} {
		if !strings.Contains(add, want) {
			t.Errorf("connection add missing %q: %s", want, add)
		}
	}
	if got := strings.Join(r.calls[2].args, " "); got != "connection up "+APConnection {
		t.Errorf("last call = %q", got)
	}
}

func TestRedact(t *testing.T) {
	got := redact([]string{"connect", "x", "password", "secret", "ifname", "wlan0"})
	if got[3] != "***" {
		t.Errorf("redact() = %v", got)
	}
}

type fakeStation struct {
	connected  bool
	connectErr error
	attempts   int
	apStarts   int
}

func (s *fakeStation) Connect(context.Context, string, string) error {
	s.attempts++
	return s.connectErr
}

func (s *fakeStation) Connected(context.Context) bool { return s.connected }

func (s *fakeStation) StartAP(context.Context, string, string) error {
	s.apStarts++
	return nil
}

func newSupervisor(st *fakeStation, saves *int) *Supervisor {
	return NewSupervisor(SupervisorConfig{
		Station:     st,
		Credentials: func() (string, string) { return "office", "pw" },
		APSSID:      "APTL-Setup",
		APAddress:   "192.168.4.1",
		OnAccessPoint: func() {
			*saves++
		},
	})
}

func TestSupervisorStartFallsBackToAP(t *testing.T) {
	st := &fakeStation{connectErr: errors.New("no network")}
	saves := 0
	s := newSupervisor(st, &saves)

	if s.Start(context.Background(), time.Unix(0, 0)) {
		t.Error("Start() = true, want false")
	}
	if st.apStarts != 1 || saves != 1 || !s.APActive() {
		t.Errorf("apStarts = %d, saves = %d, active = %v", st.apStarts, saves, s.APActive())
	}
}

func TestSupervisorEscalation(t *testing.T) {
	st := &fakeStation{connected: true}
	saves := 0
	s := newSupervisor(st, &saves)
	base := time.Unix(1000, 0)

	if !s.Start(context.Background(), base) {
		t.Fatal("Start() = false")
	}

	st.connected = false
	st.connectErr = errors.New("gone")

	if s.Tick(context.Background(), base.Add(time.Second)) {
		t.Error("Tick() = true while disconnected")
	}
	if st.attempts != 1 {
		t.Errorf("attempts = %d within interval, want 1 (start only)", st.attempts)
	}

	for i := 1; i <= MaxFailedReconnects; i++ {
		s.Tick(context.Background(), base.Add(time.Duration(i)*ReconnectInterval))
	}
	if s.Failures() != MaxFailedReconnects {
		t.Errorf("Failures() = %d, want %d", s.Failures(), MaxFailedReconnects)
	}
	if st.apStarts != 1 || saves != 1 {
		t.Errorf("apStarts = %d, saves = %d, want 1 and 1", st.apStarts, saves)
	}

	attempts := st.attempts
	s.Tick(context.Background(), base.Add(time.Hour))
	if st.attempts != attempts {
		t.Error("station attempt made while access point active")
	}
}

func TestSupervisorResetsOnRecovery(t *testing.T) {
	st := &fakeStation{connectErr: errors.New("gone")}
	saves := 0
	s := newSupervisor(st, &saves)
	base := time.Unix(1000, 0)
	s.lastAttempt = base

	s.Tick(context.Background(), base.Add(ReconnectInterval))
	s.Tick(context.Background(), base.Add(2*ReconnectInterval))
	if s.Failures() != 2 {
		t.Fatalf("Failures() = %d, want 2", s.Failures())
	}

	st.connected = true
	if !s.Tick(context.Background(), base.Add(2*ReconnectInterval+time.Second)) {
		t.Error("Tick() = false after recovery")
	}
	if s.Failures() != 0 {
		t.Errorf("Failures() = %d after recovery, want 0", s.Failures())
	}
}
