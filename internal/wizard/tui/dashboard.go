package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aptl-dev/aptl/internal/deviceconfig"
	"github.com/aptl-dev/aptl/internal/discovery"
	"github.com/aptl-dev/aptl/internal/ui"
)

// RefreshInterval is how often the dashboard polls the device status.
const RefreshInterval = 2 * time.Second

type statusMsg struct {
	status *deviceconfig.DeviceStatus
	err    error
}

type networksMsg struct {
	networks []deviceconfig.Network
	err      error
}

type provisionMsg struct {
	ssid string
	err  error
}

type refreshTickMsg struct{}

// DashboardMode is the interaction state of the dashboard.
type DashboardMode int

const (
	ModeView DashboardMode = iota
	ModeNetworks
	ModeSSID
	ModePassword
	ModeConfirm
	ModeApplying
	ModeResult
)

type dashboardKeyMap struct {
	Refresh key.Binding
	WiFi    key.Binding
	Back    key.Binding
	Quit    key.Binding
}

func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.WiFi, k.Back, k.Quit}
}

func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh, k.WiFi}, {k.Back, k.Quit}}
}

type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
}

func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Cancel}
}

func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Select, k.Cancel}}
}

// DashboardModel shows the live status of one device and re-provisions its
// Wi-Fi credentials.
type DashboardModel struct {
	Client *deviceconfig.Client
	Device *discovery.Device

	Mode      DashboardMode
	Status    *deviceconfig.DeviceStatus
	StatusErr error
	Updated   time.Time

	Networks    []deviceconfig.Network
	NetworksErr error
	Loading     bool
	Cursor      int

	SSIDInput     textinput.Model
	PasswordInput textinput.Model
	SelectedSSID  string
	FormErr       error
	ResultErr     error

	backRequested bool

	Width       int
	Height      int
	Spinner     spinner.Model
	Help        help.Model
	Keys        dashboardKeyMap
	PickerKeys  pickerKeyMap
	RefreshRate time.Duration
}

// NewDashboardModel creates the dashboard for device.
func NewDashboardModel(client *deviceconfig.Client, device *discovery.Device) DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ssid := textinput.New()
	ssid.Placeholder = "network name"
	ssid.CharLimit = 32
	ssid.Width = 32

	pass := textinput.New()
	pass.Placeholder = "empty for an open network"
	pass.CharLimit = 63
	pass.Width = 32
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	return DashboardModel{
		Client:        client,
		Device:        device,
		SSIDInput:     ssid,
		PasswordInput: pass,
		Spinner:       s,
		Help:          help.New(),
		RefreshRate:   RefreshInterval,
		Keys: dashboardKeyMap{
			Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
			WiFi:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "change Wi-Fi")),
			Back:    key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "back")),
			Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		},
		PickerKeys: pickerKeyMap{
			Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
			Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
			Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
			Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
}

// Init fetches the first status and starts polling.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(fetchStatusCmd(m.Client), m.scheduleRefresh())
}

func (m DashboardModel) scheduleRefresh() tea.Cmd {
	if m.RefreshRate <= 0 {
		return nil
	}
	return tea.Tick(m.RefreshRate, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func fetchStatusCmd(client *deviceconfig.Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		return statusMsg{status: status, err: err}
	}
}

func fetchNetworksCmd(client *deviceconfig.Client) tea.Cmd {
	return func() tea.Msg {
		networks, err := client.GetNetworks()
		return networksMsg{networks: networks, err: err}
	}
}

func provisionCmd(client *deviceconfig.Client, ssid, password string) tea.Cmd {
	return func() tea.Msg {
		err := client.Provision(&deviceconfig.WiFiCredentials{SSID: ssid, Password: password})
		return provisionMsg{ssid: ssid, err: err}
	}
}

// IsBackRequested reports whether the user asked to leave the dashboard.
func (m DashboardModel) IsBackRequested() bool {
	return m.backRequested
}

// Update handles messages for the dashboard.
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case statusMsg:
		m.StatusErr = msg.err
		if msg.err == nil {
			m.Status = msg.status
			m.Updated = time.Now()
		}
		return m, nil

	case refreshTickMsg:
		// Polling pauses while a provisioning request is in flight.
		if m.Mode == ModeApplying {
			return m, m.scheduleRefresh()
		}
		return m, tea.Batch(fetchStatusCmd(m.Client), m.scheduleRefresh())

	case networksMsg:
		m.Loading = false
		m.NetworksErr = msg.err
		m.Networks = msg.networks
		m.Cursor = 0
		return m, nil

	case provisionMsg:
		m.Mode = ModeResult
		m.ResultErr = msg.err
		m.PasswordInput.SetValue("")
		return m, nil

	case spinner.TickMsg:
		if m.Mode != ModeApplying && !m.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.Mode {
		case ModeView:
			return m.updateView(msg)
		case ModeNetworks:
			return m.updateNetworks(msg)
		case ModeSSID:
			return m.updateSSID(msg)
		case ModePassword:
			return m.updatePassword(msg)
		case ModeConfirm:
			return m.updateConfirm(msg)
		case ModeResult:
			m.Mode = ModeView
			return m, fetchStatusCmd(m.Client)
		}
	}
	return m, nil
}

func (m DashboardModel) updateView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Refresh):
		return m, fetchStatusCmd(m.Client)
	case key.Matches(msg, m.Keys.WiFi):
		m.Mode = ModeNetworks
		m.Loading = true
		m.FormErr = nil
		return m, tea.Batch(fetchNetworksCmd(m.Client), m.Spinner.Tick)
	case key.Matches(msg, m.Keys.Back):
		m.backRequested = true
		return m, nil
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

// updateNetworks moves through the scanned networks. The row after the
// last network opens a free-text SSID field for hidden networks.
func (m DashboardModel) updateNetworks(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.PickerKeys.Cancel):
		m.Mode = ModeView
	case key.Matches(msg, m.PickerKeys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(msg, m.PickerKeys.Down):
		if m.Cursor < len(m.Networks) {
			m.Cursor++
		}
	case key.Matches(msg, m.PickerKeys.Select):
		if m.Loading {
			return m, nil
		}
		if m.Cursor == len(m.Networks) {
			m.Mode = ModeSSID
			m.SSIDInput.SetValue("")
			return m, m.SSIDInput.Focus()
		}
		m.SelectedSSID = m.Networks[m.Cursor].SSID
		return m.enterPassword()
	}
	return m, nil
}

func (m DashboardModel) updateSSID(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.PickerKeys.Cancel):
		m.SSIDInput.Blur()
		m.Mode = ModeNetworks
		return m, nil
	case key.Matches(msg, m.PickerKeys.Select):
		ssid := m.SSIDInput.Value()
		if err := deviceconfig.ValidateWiFiSSID(ssid); err != nil {
			m.FormErr = err
			return m, nil
		}
		m.SSIDInput.Blur()
		m.SelectedSSID = ssid
		return m.enterPassword()
	}
	var cmd tea.Cmd
	m.SSIDInput, cmd = m.SSIDInput.Update(msg)
	return m, cmd
}

func (m DashboardModel) enterPassword() (tea.Model, tea.Cmd) {
	m.Mode = ModePassword
	m.FormErr = nil
	m.PasswordInput.SetValue("")
	return m, m.PasswordInput.Focus()
}

func (m DashboardModel) updatePassword(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.PickerKeys.Cancel):
		m.PasswordInput.Blur()
		m.Mode = ModeNetworks
		return m, nil
	case key.Matches(msg, m.PickerKeys.Select):
		creds := &deviceconfig.WiFiCredentials{SSID: m.SelectedSSID, Password: m.PasswordInput.Value()}
		if errs := deviceconfig.ValidateWiFiCredentials(creds); len(errs) > 0 {
			m.FormErr = errs[0]
			return m, nil
		}
		m.PasswordInput.Blur()
		m.FormErr = nil
		m.Mode = ModeConfirm
		return m, nil
	}
	var cmd tea.Cmd
	m.PasswordInput, cmd = m.PasswordInput.Update(msg)
	return m, cmd
}

func (m DashboardModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.Mode = ModeApplying
		return m, tea.Batch(
			provisionCmd(m.Client, m.SelectedSSID, m.PasswordInput.Value()),
			m.Spinner.Tick,
		)
	case "n", "esc":
		m.Mode = ModeView
		m.PasswordInput.SetValue("")
	}
	return m, nil
}

// View renders the dashboard.
func (m DashboardModel) View() string {
	var content string
	helpText := m.Help.View(m.Keys)

	switch m.Mode {
	case ModeNetworks, ModeSSID, ModePassword:
		content = m.renderWiFiEditor()
		helpText = m.Help.View(m.PickerKeys)
	case ModeConfirm:
		content = m.renderConfirm()
		helpText = "y/enter apply • n/esc cancel"
	case ModeApplying:
		content = "\n  " + m.Spinner.View() + " Sending credentials to the device..."
		helpText = ""
	case ModeResult:
		content = m.renderResult()
		helpText = "any key: continue"
	default:
		content = m.renderStatus()
	}
	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

func (m DashboardModel) deviceName() string {
	if m.Status != nil && m.Status.DeviceName != "" {
		return m.Status.DeviceName
	}
	if m.Device != nil && m.Device.Name != "" {
		return m.Device.Name
	}
	if m.Device != nil {
		return m.Device.IP
	}
	return "device"
}

func (m DashboardModel) renderStatus() string {
	var b strings.Builder
	b.WriteString(RenderTitle(strings.ToUpper(m.deviceName())))
	b.WriteString("\n")

	if m.StatusErr != nil {
		b.WriteString(RenderError(deviceconfig.GetShortErrorMessage(m.StatusErr)))
		b.WriteString("\n")
	}
	if m.Status == nil {
		if m.StatusErr == nil {
			b.WriteString("  Loading status...\n")
		}
		return b.String()
	}

	s := m.Status
	b.WriteString(SectionStyle.Render(strings.TrimRight(s.FormatDeviceInfo(), "\n")))
	b.WriteString("\n")
	b.WriteString(SectionStyle.Render(strings.TrimRight(s.FormatMotor(), "\n")))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		SectionStyle.Render(strings.TrimRight(s.FormatLines(), "\n")),
		SectionStyle.Render(strings.TrimRight(s.FormatLinks(), "\n")),
	))
	b.WriteString("\n")
	if !m.Updated.IsZero() {
		b.WriteString(SubtitleStyle.Render(fmt.Sprintf("  Updated %s", m.Updated.Format("15:04:05"))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m DashboardModel) renderWiFiEditor() string {
	var b strings.Builder
	b.WriteString(RenderTitle("CHANGE WI-FI"))
	b.WriteString("\n")

	switch {
	case m.Loading:
		b.WriteString("  " + m.Spinner.View() + " Scanning networks...\n")
	case m.NetworksErr != nil:
		b.WriteString(RenderError(deviceconfig.GetShortErrorMessage(m.NetworksErr)))
		b.WriteString("\n")
	}

	if !m.Loading {
		for i, n := range m.Networks {
			line := fmt.Sprintf("%-32s %4d dBm", n.SSID, n.RSSI)
			b.WriteString(m.pickerRow(i, line))
		}
		b.WriteString(m.pickerRow(len(m.Networks), "Other network..."))
	}

	switch m.Mode {
	case ModeSSID:
		b.WriteString("\n  SSID:     ")
		b.WriteString(m.SSIDInput.View())
		b.WriteString("\n")
	case ModePassword:
		b.WriteString("\n  Network:  " + m.SelectedSSID + "\n")
		b.WriteString("  Password: ")
		b.WriteString(m.PasswordInput.View())
		b.WriteString("\n")
	}
	if m.FormErr != nil {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(ui.ErrorColor).Render("  " + m.FormErr.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

func (m DashboardModel) pickerRow(i int, text string) string {
	if i == m.Cursor && m.Mode == ModeNetworks {
		return SelectedItemStyle.Render("  → "+text) + "\n"
	}
	return "    " + text + "\n"
}

func (m DashboardModel) renderConfirm() string {
	body := fmt.Sprintf("Send credentials for %q to %s?\n\n"+
		"The device saves them and restarts. If it cannot join the\n"+
		"network it opens the APTL-Setup access point again.", m.SelectedSSID, m.deviceName())
	return "\n" + WarningBoxStyle.Render(body) + "\n"
}

func (m DashboardModel) renderResult() string {
	if m.ResultErr != nil {
		hint := deviceconfig.GetTroubleshootingHint(m.ResultErr)
		return "\n" + RenderError(ui.FailureMarker+" Provisioning failed: "+deviceconfig.GetShortErrorMessage(m.ResultErr)) + "\n\n" + hint + "\n"
	}
	body := fmt.Sprintf("%s Credentials for %q sent.\n\nThe device is restarting; its status will\nreturn once it has joined the network.", ui.SuccessMarker, m.SelectedSSID)
	return "\n" + SuccessBoxStyle.Render(body) + "\n"
}
