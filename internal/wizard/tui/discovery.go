package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aptl-dev/aptl/internal/discovery"
	"github.com/aptl-dev/aptl/internal/ui"
)

// SetupAddress is where a device in setup mode serves its portal.
const SetupAddress = "192.168.4.1"

type scanStartMsg struct{}

type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

// ScanFunc looks for devices on the local network.
type ScanFunc func() ([]*discovery.Device, error)

type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

type manualKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k manualKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k manualKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

func (d deviceItem) FilterValue() string {
	return d.device.ID + " " + d.device.Name + " " + d.device.IP
}

func (d deviceItem) Title() string {
	if d.device.ID == "" {
		return "Manual: " + d.device.IP
	}
	return d.device.Name
}

func (d deviceItem) Description() string {
	return fmt.Sprintf("%s:%d • FW %s", d.device.IP, d.device.Port, firmwareOf(d.device))
}

func firmwareOf(d *discovery.Device) string {
	if v := d.Metadata[discovery.TxtVersion]; v != "" {
		return v
	}
	return "unknown"
}

// deviceDelegate renders one device card.
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int  { return 5 }
func (d deviceDelegate) Spacing() int { return 1 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(deviceItem)
	if !ok {
		return
	}
	selected := index == m.Index()

	var b strings.Builder
	if selected {
		b.WriteString(SelectedItemStyle.Render("→ " + it.Title()))
	} else {
		b.WriteString("  " + it.Title())
	}
	b.WriteString("\n")
	if it.device.ID != "" {
		fmt.Fprintf(&b, "  ID:       %s\n", it.device.ID)
	}
	fmt.Fprintf(&b, "  Address:  %s:%d\n", it.device.IP, it.device.Port)
	fmt.Fprintf(&b, "  Firmware: %s", firmwareOf(it.device))

	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2).
		Width(contentWidth(d.width) - 8)
	if selected {
		card = card.BorderForeground(HighlightColor)
	}
	fmt.Fprint(w, card.Render(b.String()))
}

// DiscoveryModel is the device discovery screen.
type DiscoveryModel struct {
	Scanning   bool
	DeviceList list.Model
	Selected   bool
	Err        error

	ManualMode bool
	IPInput    textinput.Model

	ScanTimeout   time.Duration
	Scan          ScanFunc
	ScanStartTime time.Time

	Width       int
	Height      int
	Spinner     spinner.Model
	ProgressBar progress.Model
	Help        help.Model
	Keys        discoveryKeyMap
	ManualKeys  manualKeyMap
}

// NewDiscoveryModel creates the discovery screen. A nil scan browses mDNS
// for DefaultScanTimeout.
func NewDiscoveryModel(scan ScanFunc) DiscoveryModel {
	if scan == nil {
		scan = func() ([]*discovery.Device, error) {
			return discovery.ScanForDevices(discovery.DefaultScanTimeout)
		}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ipInput := textinput.New()
	ipInput.Placeholder = SetupAddress
	ipInput.CharLimit = 64
	ipInput.Width = 30

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{width: MinTerminalWidth}, 0, 0)
	deviceList.Title = "Discovered Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.Styles.Title = TitleStyle

	return DiscoveryModel{
		DeviceList:  deviceList,
		IPInput:     ipInput,
		ScanTimeout: discovery.DefaultScanTimeout,
		Scan:        scan,
		Spinner:     s,
		ProgressBar: bar,
		Help:        help.New(),
		Keys: discoveryKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
			Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
			Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
			Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "enter address")),
			Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
		},
		ManualKeys: manualKeyMap{
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
}

// Init starts the first scan.
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m DiscoveryModel) startScan() tea.Cmd {
	scan := m.Scan
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		func() tea.Msg {
			devices, err := scan()
			return scanCompleteMsg{devices: devices, err: err}
		},
		m.Spinner.Tick,
	)
}

// Update handles messages for the discovery screen.
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetDelegate(deviceDelegate{width: msg.Width})
		m.DeviceList.SetWidth(msg.Width - 4)
		m.DeviceList.SetHeight(msg.Height - 10)

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.devices))
		for i, dev := range msg.devices {
			items[i] = deviceItem{device: dev}
		}
		return m, m.DeviceList.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if !m.ManualMode && !m.Scanning {
		m.DeviceList, cmd = m.DeviceList.Update(msg)
	}
	return m, cmd
}

func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Enter):
		if m.DeviceList.SelectedItem() != nil {
			m.Selected = true
		}
		return m, nil

	case key.Matches(msg, m.Keys.Rescan):
		if m.Scanning {
			return m, nil
		}
		m.Err = nil
		return m, tea.Batch(m.DeviceList.SetItems(nil), m.startScan())

	case key.Matches(msg, m.Keys.Manual):
		m.ManualMode = true
		m.IPInput.SetValue("")
		return m, m.IPInput.Focus()
	}

	if m.Scanning {
		return m, nil
	}
	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.IPInput.Blur()
		return m, nil

	case key.Matches(msg, m.ManualKeys.Confirm):
		addr := strings.TrimSpace(m.IPInput.Value())
		if addr == "" {
			addr = SetupAddress
		}
		device := &discovery.Device{
			IP:           addr,
			Port:         discovery.DefaultPort,
			Hostname:     addr,
			Metadata:     map[string]string{},
			DiscoveredAt: time.Now(),
		}
		items := append([]list.Item{deviceItem{device: device}}, m.DeviceList.Items()...)
		cmd := m.DeviceList.SetItems(items)
		m.DeviceList.Select(0)
		m.ManualMode = false
		m.IPInput.Blur()
		return m, cmd
	}

	var cmd tea.Cmd
	m.IPInput, cmd = m.IPInput.Update(msg)
	return m, cmd
}

// SelectedDevice returns the device picked with enter, if any.
func (m DiscoveryModel) SelectedDevice() *discovery.Device {
	if !m.Selected {
		return nil
	}
	if it, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return it.device
	}
	return nil
}

// View renders the discovery screen.
func (m DiscoveryModel) View() string {
	var content, helpText string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning()
		helpText = m.Help.View(m.Keys)
	default:
		content = m.renderResults()
		helpText = m.Help.View(m.Keys)
	}
	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

func (m DiscoveryModel) renderScanning() string {
	elapsed := time.Since(m.ScanStartTime)
	fraction := 1.0
	if m.ScanTimeout > 0 {
		fraction = min(1.0, float64(elapsed)/float64(m.ScanTimeout))
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(m.Spinner.View()+" SEARCHING FOR DEVICES"),
		SubtitleStyle.Render("Browsing the local network for APTL devices..."),
		"",
		m.ProgressBar.ViewAs(fraction),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
	)
	return lipgloss.Place(contentWidth(m.Width)-4, 0, lipgloss.Center, lipgloss.Top, content)
}

func (m DiscoveryModel) renderResults() string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.Err != nil:
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString(troubleshooting)
	case len(m.DeviceList.Items()) == 0:
		b.WriteString("  ")
		b.WriteString(lipgloss.NewStyle().Foreground(ui.WarningColor).Bold(true).Render(ui.WarningMarker + " No devices found on your network"))
		b.WriteString("\n\n")
		b.WriteString(troubleshooting)
	default:
		b.WriteString(m.DeviceList.View())
	}
	return b.String()
}

const troubleshooting = `  Troubleshooting:
    • Ensure the device is powered on and has joined Wi-Fi
    • A device in setup mode is not announced: join the APTL-Setup
      network and press m to enter ` + SetupAddress + `
    • Press r to scan again
`

func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder
	b.WriteString(RenderTitle("Enter device address"))
	b.WriteString("\n")
	b.WriteString("  Address: ")
	b.WriteString(m.IPInput.View())
	b.WriteString("\n\n")
	b.WriteString(SubtitleStyle.Render("  Leave empty for the setup portal at " + SetupAddress))
	b.WriteString("\n")
	return b.String()
}
