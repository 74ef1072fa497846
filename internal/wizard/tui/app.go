package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aptl-dev/aptl/internal/deviceconfig"
	"github.com/aptl-dev/aptl/internal/discovery"
)

// Screen represents the active screen.
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenDashboard Screen = "dashboard"
)

// ClientFactory builds the HTTP client for a device.
type ClientFactory func(d *discovery.Device) *deviceconfig.Client

// Options configure the wizard.
type Options struct {
	// Device skips discovery when set.
	Device *discovery.Device

	// Scan defaults to an mDNS browse.
	Scan ScanFunc

	// NewClient defaults to deviceconfig.NewClient on the device address.
	NewClient ClientFactory
}

// AppModel routes messages between the discovery and dashboard screens.
type AppModel struct {
	CurrentScreen Screen

	Discovery DiscoveryModel
	Dashboard DashboardModel

	newClient ClientFactory
	scan      ScanFunc

	Width  int
	Height int
}

// NewAppModel creates the wizard.
func NewAppModel(opts Options) AppModel {
	newClient := opts.NewClient
	if newClient == nil {
		newClient = func(d *discovery.Device) *deviceconfig.Client {
			return deviceconfig.NewClient(d.IP, d.Port)
		}
	}
	m := AppModel{
		CurrentScreen: ScreenDiscovery,
		Discovery:     NewDiscoveryModel(opts.Scan),
		newClient:     newClient,
		scan:          opts.Scan,
	}
	if opts.Device != nil {
		m.CurrentScreen = ScreenDashboard
		m.Dashboard = NewDashboardModel(newClient(opts.Device), opts.Device)
	}
	return m
}

// Init starts the active screen.
func (m AppModel) Init() tea.Cmd {
	if m.CurrentScreen == ScreenDashboard {
		return m.Dashboard.Init()
	}
	return m.Discovery.Init()
}

// Update handles global keys and forwards everything else to the active
// screen.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		d, _ := m.Discovery.Update(msg)
		m.Discovery = d.(DiscoveryModel)
		m.Dashboard.Width = msg.Width
		m.Dashboard.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	switch m.CurrentScreen {
	case ScreenDiscovery:
		if key, ok := msg.(tea.KeyMsg); ok && !m.Discovery.ManualMode {
			if s := key.String(); s == "q" || s == "esc" {
				return m, tea.Quit
			}
		}
		updated, c := m.Discovery.Update(msg)
		m.Discovery = updated.(DiscoveryModel)
		cmd = c
		if device := m.Discovery.SelectedDevice(); device != nil {
			return m.openDashboard(device)
		}

	case ScreenDashboard:
		updated, c := m.Dashboard.Update(msg)
		m.Dashboard = updated.(DashboardModel)
		cmd = c
		if m.Dashboard.IsBackRequested() {
			return m.openDiscovery()
		}
	}
	return m, cmd
}

func (m AppModel) openDashboard(device *discovery.Device) (tea.Model, tea.Cmd) {
	m.CurrentScreen = ScreenDashboard
	m.Discovery.Selected = false
	m.Dashboard = NewDashboardModel(m.newClient(device), device)
	m.Dashboard.Width = m.Width
	m.Dashboard.Height = m.Height
	return m, m.Dashboard.Init()
}

func (m AppModel) openDiscovery() (tea.Model, tea.Cmd) {
	m.CurrentScreen = ScreenDiscovery
	m.Discovery = NewDiscoveryModel(m.scan)
	m.Discovery.Width = m.Width
	m.Discovery.Height = m.Height
	return m, m.Discovery.Init()
}

// View renders the active screen.
func (m AppModel) View() string {
	if m.CurrentScreen == ScreenDashboard {
		return m.Dashboard.View()
	}
	return m.Discovery.View()
}

// Run starts the wizard in the alternate screen and blocks until it exits.
func Run(opts Options) error {
	program := tea.NewProgram(NewAppModel(opts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}
	return nil
}
