package engine

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"dispatchops-sim/internal/config"
	"dispatchops-sim/internal/event"
	"dispatchops-sim/internal/world"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries an event log line for the viewport.
type logMsg struct{ line string }

// unitMsg carries a unit row for position tracking.
type unitMsg struct{ event.UnitRow }

// stateMsg carries a simulation state update.
type stateMsg struct{ event.StateRow }

// adminMsg reports admin API status.
type adminMsg struct{ active bool }

type setBuyMsg struct{ fn func(string) error }
type setDispatchMsg struct{ fn func(vehicleID, missionID string) error }
type setSurgeMsg struct{ fn func() bool }

const (
	maxSectionHeightPct = 0.2
	fallbackBuyInput    = "building,fire_station,0,0"
)

// TUIWriter renders the dispatch feed using a bubbletea TUI.
type TUIWriter struct {
	program       teaProgram
	missionColors map[string]string
	colorIdx      int
	done          chan struct{}
	sendSignal    atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	mc := make(map[string]string)
	w := &TUIWriter{missionColors: mc, done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cfg, mc)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	for _, k := range cfg.Catalog.Missions {
		w.getMissionColor(k.Name)
	}
	go func() {
		_ = p.Start()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func (w *TUIWriter) getMissionColor(id string) string {
	if c, ok := w.missionColors[id]; ok {
		return c
	}
	c := missionPalette[w.colorIdx%len(missionPalette)]
	w.missionColors[id] = c
	w.colorIdx++
	return c
}

// WriteUnit implements UnitWriter.
func (w *TUIWriter) WriteUnit(row event.UnitRow) error {
	w.program.Send(unitMsg{row})
	return nil
}

// WriteUnits outputs multiple unit rows.
func (w *TUIWriter) WriteUnits(rows []event.UnitRow) error {
	for _, r := range rows {
		_ = w.WriteUnit(r)
	}
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(row event.Row) error {
	mColor := w.getMissionColor(row.MissionID)
	typeColor := colorBlue
	switch row.Type {
	case event.MissionFailed, event.NoUnitAvailable:
		typeColor = colorRed
	case event.MissionCompleted:
		typeColor = colorGreen
	case event.BudgetChanged:
		typeColor = colorCyan
	}
	line := fmt.Sprintf("%s[%s]%s %s%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		typeColor, row.Type, colorReset)
	if row.MissionID != "" {
		line += fmt.Sprintf(" %s%s%s", mColor, row.MissionID, colorReset)
	}
	if row.VehicleID != "" {
		line += fmt.Sprintf(" %s%s%s", colorWhite(), row.VehicleID, colorReset)
	}
	if row.Amount != 0 {
		line += fmt.Sprintf(" %samount=%d balance=%d%s", colorYellow, row.Amount, row.Balance, colorReset)
	}
	if row.Reason != "" {
		line += fmt.Sprintf(" %s%s%s", colorGray, row.Reason, colorReset)
	}
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row event.StateRow) error {
	w.program.Send(stateMsg{StateRow: row})
	return nil
}

// SetAdminStatus updates the admin API indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetBuyer registers a callback handling buy and sell commands typed into
// the TUI.
func (w *TUIWriter) SetBuyer(fn func(string) error) {
	w.program.Send(setBuyMsg{fn: fn})
}

// SetDispatcher registers a callback for manual dispatch commands.
func (w *TUIWriter) SetDispatcher(fn func(vehicleID, missionID string) error) {
	w.program.Send(setDispatchMsg{fn: fn})
}

// SetSurgeToggler registers a callback flipping surge mode.
func (w *TUIWriter) SetSurgeToggler(fn func() bool) {
	w.program.Send(setSurgeMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type unitInfo struct {
	pos    world.Position
	status string
}

type tuiModel struct {
	cfg            *config.SimulationConfig
	table          table.Model
	vp             viewport.Model
	logs           []string
	state          event.StateRow
	admin          bool
	wrap           bool
	autoscroll     bool
	header         string
	headerHeight   int
	height         int
	missionColors  map[string]string
	buy            func(string) error
	dispatch       func(string, string) error
	surge          func() bool
	buyInput       textinput.Model
	buyDialog      bool
	dispatchInput  textinput.Model
	dispatchDialog bool
	cmdErr         string
	help           bool
	showKinds      bool
	showMap        bool
	units          map[string]unitInfo
	mapCenterLat   float64
	mapCenterLon   float64
	mapLatSpan     float64
	mapLonSpan     float64
	mapInitialized bool
}

func newTUIModel(cfg *config.SimulationConfig, missionColors map[string]string) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
	}
	rows := []table.Row{
		{"Initial Budget", fmt.Sprintf("%d", cfg.InitialBudget), "Region", cfg.Region.Name},
		{"Mission Interval (s)", fmt.Sprintf("%d", cfg.MissionIntervalS), "Dwell (s)", fmt.Sprintf("%d", cfg.DwellS)},
		{"Spawn Radius (km)", fmt.Sprintf("%.1f", cfg.SpawnRadiusKM), "Speed Multiplier", fmt.Sprintf("%.1f", cfg.SpeedMultiplier)},
		{"Urgent Speed (m/s)", fmt.Sprintf("%.0f", cfg.SpeedUrgentMPS), "Normal Speed (m/s)", fmt.Sprintf("%.0f", cfg.SpeedNormalMPS)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	vp := viewport.New(0, 0)
	return tuiModel{
		cfg:           cfg,
		table:         t,
		vp:            vp,
		missionColors: missionColors,
		autoscroll:    true,
		showKinds:     true,
		units:         make(map[string]unitInfo),
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		tableWidth := msg.Width
		if m.showKinds {
			tableWidth = msg.Width / 2
		}
		m.table.SetWidth(tableWidth)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.buyDialog {
			switch msg.Type {
			case tea.KeyEnter:
				m.cmdErr = ""
				if m.buy != nil {
					if err := m.buy(m.buyInput.Value()); err != nil {
						m.cmdErr = err.Error()
					}
				}
				m.buyDialog = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.buyDialog = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.buyInput, cmd = m.buyInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.dispatchDialog {
			switch msg.Type {
			case tea.KeyEnter:
				m.cmdErr = ""
				parts := strings.Split(m.dispatchInput.Value(), ",")
				if len(parts) == 2 && m.dispatch != nil {
					v := strings.TrimSpace(parts[0])
					ms := strings.TrimSpace(parts[1])
					if err := m.dispatch(v, ms); err != nil {
						m.cmdErr = err.Error()
					}
				}
				m.dispatchDialog = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.dispatchDialog = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.dispatchInput, cmd = m.dispatchInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		if m.showMap {
			switch msg.String() {
			case "+", "=":
				m.mapLatSpan *= 0.8
				m.mapLonSpan *= 0.8
				return m, nil
			case "-":
				m.mapLatSpan *= 1.25
				m.mapLonSpan *= 1.25
				return m, nil
			case "left":
				m.mapCenterLon -= m.mapLonSpan * 0.1
				return m, nil
			case "right":
				m.mapCenterLon += m.mapLonSpan * 0.1
				return m, nil
			case "up":
				m.mapCenterLat += m.mapLatSpan * 0.1
				return m, nil
			case "down":
				m.mapCenterLat -= m.mapLatSpan * 0.1
				return m, nil
			}
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "b":
			m.buyInput = textinput.New()
			m.buyInput.Placeholder = "building,kind,lat,lon | vehicle,kind,building | sell,id"
			m.buyInput.SetValue(fallbackBuyInput)
			m.buyInput.CursorEnd()
			m.buyInput.Focus()
			m.buyDialog = true
			m.updateViewportHeight()
			return m, nil
		case "d":
			m.dispatchInput = textinput.New()
			m.dispatchInput.Placeholder = "vehicle-id,mission-id"
			m.dispatchInput.Focus()
			m.dispatchDialog = true
			m.updateViewportHeight()
			return m, nil
		case "g":
			if m.surge != nil {
				go m.surge()
			}
			return m, nil
		case "p":
			m.showKinds = !m.showKinds
			width := m.vp.Width
			if m.showKinds {
				m.table.SetWidth(width / 2)
			} else {
				m.table.SetWidth(width)
			}
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "m":
			m.showMap = !m.showMap
			if m.showMap && !m.mapInitialized {
				m.initMapViewport()
			}
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > 1000 {
			m.logs = m.logs[len(m.logs)-1000:]
		}
		m.refreshViewport()
	case unitMsg:
		m.units[msg.VehicleID] = unitInfo{
			pos:    world.Position{Lat: msg.Lat, Lon: msg.Lon},
			status: msg.Status,
		}
	case stateMsg:
		m.state = msg.StateRow
	case adminMsg:
		m.admin = msg.active
	case setBuyMsg:
		m.buy = msg.fn
	case setDispatchMsg:
		m.dispatch = msg.fn
	case setSurgeMsg:
		m.surge = msg.fn
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	dialogHeight := 0
	if m.buyDialog || m.dispatchDialog {
		dialogHeight = 2
	}
	h := m.height - m.headerHeight - bottomHeight - dialogHeight - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	bottom := m.renderBottom()
	divider := strings.Repeat("─", m.vp.Width)
	if m.showMap {
		return strings.Join([]string{m.header, divider, m.renderMap(), divider, bottom}, "\n")
	}
	sections := []string{m.header, divider, m.vp.View()}
	if m.buyDialog {
		sections = append(sections, divider, "Buy/Sell: "+m.buyInput.View())
	}
	if m.dispatchDialog {
		sections = append(sections, divider, "Dispatch: "+m.dispatchInput.View())
	}
	sections = append(sections, divider, bottom)
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	if !m.showKinds {
		return tableView
	}
	kindsWidth := m.vp.Width/2 - 1
	kinds := renderKindTree(m.cfg, m.missionColors, m.wrap, kindsWidth)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, kinds)
}

func renderKindTree(cfg *config.SimulationConfig, colors map[string]string, wrap bool, width int) string {
	var b strings.Builder
	b.WriteString("Mission Kinds\n")
	for i, k := range cfg.Catalog.Missions {
		prefix := "├─"
		if i == len(cfg.Catalog.Missions)-1 {
			prefix = "└─"
		}
		c := colors[k.Name]
		line := fmt.Sprintf("%s %s%s%s reward=%d penalty=%d deadline=%ds", prefix, c, k.Name, colorReset, k.Reward, k.Penalty, k.DeadlineS)
		if wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) renderBottom() string {
	adminColor := lipgloss.Color("9")
	if m.admin {
		adminColor = lipgloss.Color("10")
	}
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	surgeColor := lipgloss.Color("9")
	if m.state.Surge {
		surgeColor = lipgloss.Color("10")
	}
	adminIndicator := lipgloss.NewStyle().Foreground(adminColor).Render("●")
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	surgeIndicator := lipgloss.NewStyle().Foreground(surgeColor).Render("●")
	state := fmt.Sprintf("%sSTATE%s %sbalance=%s%s %sbuildings=%d%s %sunits=%d%s %smissions=%d%s %sdone=%d%s %sfailed=%d%s",
		colorBlue, colorReset,
		colorGreen, formatMoney(m.state.Balance), colorReset,
		colorCyan, m.state.Buildings, colorReset,
		colorWhite(), m.state.Vehicles, colorReset,
		colorYellow, m.state.ActiveMissions, colorReset,
		colorGreen, m.state.MissionsCompleted, colorReset,
		colorRed, m.state.MissionsFailed, colorReset)
	if m.state.Phase != "" {
		state += fmt.Sprintf(" %sphase=%s%s", colorMagenta, m.state.Phase, colorReset)
	}
	if m.state.Weather != "" {
		state += fmt.Sprintf(" %sweather=%s%s", colorGray, m.state.Weather, colorReset)
	}
	line := fmt.Sprintf("%s | Admin %s | Wrap %s | Scroll %s | Surge %s", state, adminIndicator, wrapIndicator, scrollIndicator, surgeIndicator)
	if m.cmdErr != "" {
		line += fmt.Sprintf("\n%serror: %s%s", colorRed, m.cmdErr, colorReset)
	}
	return line
}

func formatMoney(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := "$" + strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for the event log",
		" s  toggle auto-scroll",
		" b  buy/sell (building,kind,lat,lon | vehicle,kind,building | sell,id)",
		" d  dispatch a unit (vehicle-id,mission-id)",
		" g  toggle surge mode",
		" p  toggle mission kind tree",
		" m  toggle map view",
		" +  zoom in map",
		" -  zoom out map",
		" ←→↑↓ pan map",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}

func statusGlyph(status string) (string, string) {
	switch world.VehicleStatus(status) {
	case world.VehicleResponding:
		return "▲", colorRed
	case world.VehicleOnScene:
		return "●", colorYellow
	case world.VehicleReturning:
		return "▽", colorCyan
	default:
		return "^", colorGreen
	}
}

func (m *tuiModel) initMapViewport() {
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	for _, u := range m.units {
		minLat = math.Min(minLat, u.pos.Lat)
		maxLat = math.Max(maxLat, u.pos.Lat)
		minLon = math.Min(minLon, u.pos.Lon)
		maxLon = math.Max(maxLon, u.pos.Lon)
	}
	if minLat == math.Inf(1) {
		kmPerLat := 111.0
		kmPerLon := 111.0 * math.Cos(m.cfg.Region.CenterLat*math.Pi/180)
		latDelta := m.cfg.Region.RadiusKM / kmPerLat
		lonDelta := m.cfg.Region.RadiusKM / kmPerLon
		minLat = m.cfg.Region.CenterLat - latDelta
		maxLat = m.cfg.Region.CenterLat + latDelta
		minLon = m.cfg.Region.CenterLon - lonDelta
		maxLon = m.cfg.Region.CenterLon + lonDelta
	}
	m.mapCenterLat = (maxLat + minLat) / 2
	m.mapCenterLon = (maxLon + minLon) / 2
	m.mapLatSpan = maxLat - minLat
	m.mapLonSpan = maxLon - minLon
	if m.mapLatSpan == 0 {
		m.mapLatSpan = 0.02
	}
	if m.mapLonSpan == 0 {
		m.mapLonSpan = 0.02
	}
	m.mapInitialized = true
}

func (m tuiModel) renderMap() string {
	width := m.vp.Width
	bottomHeight := lipgloss.Height(m.renderBottom())
	mapHeight := m.height - m.headerHeight - bottomHeight - 4
	if mapHeight < 1 {
		mapHeight = 1
	}
	if len(m.units) == 0 {
		return "No position data"
	}
	minLat := m.mapCenterLat - m.mapLatSpan/2
	maxLat := m.mapCenterLat + m.mapLatSpan/2
	minLon := m.mapCenterLon - m.mapLonSpan/2
	maxLon := m.mapCenterLon + m.mapLonSpan/2
	grid := make([][]string, mapHeight)
	for i := range grid {
		row := make([]string, width)
		for j := range row {
			row[j] = "."
		}
		grid[i] = row
	}
	for _, u := range m.units {
		x := int((u.pos.Lon - minLon) / (maxLon - minLon) * float64(width-1))
		y := int((maxLat - u.pos.Lat) / (maxLat - minLat) * float64(mapHeight-1))
		if y < 0 || y >= mapHeight || x < 0 || x >= width {
			continue
		}
		glyph, color := statusGlyph(u.status)
		grid[y][x] = color + glyph + colorReset
	}
	var b strings.Builder
	for _, row := range grid {
		b.WriteString(strings.Join(row, ""))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
