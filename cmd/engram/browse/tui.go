package browsecmder

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/engram/pkg/memory"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type browseView int

const (
	viewList browseView = iota
	viewDetail
)

var (
	browseTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	browseMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	browseSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	browseDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	browseValueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	browseAccentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	browseHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true)
	browseNoticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

var typeStyles = map[memory.Type]lipgloss.Style{
	memory.TypeFact:       lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	memory.TypePreference: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	memory.TypeEvent:      lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
	memory.TypeMilestone:  lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
	memory.TypeReflection: lipgloss.NewStyle().Foreground(lipgloss.Color("99")),
	memory.TypeRequest:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	memory.TypePattern:    lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
}

var sortOrder = []string{"recent", "importance", "accessed"}

// typeFilters is the type cycle for the t key: all types first, then each
// concrete type in declaration order.
var typeFilters = func() []memory.Type {
	filters := make([]memory.Type, 0, len(memory.Types())+1)
	filters = append(filters, "")
	filters = append(filters, memory.Types()...)
	return filters
}()

type browseKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Sort   key.Binding
	Type   key.Binding
	Filter key.Binding
	Delete key.Binding
	Quit   key.Binding
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Enter, k.Back, k.Sort, k.Type, k.Filter, k.Delete, k.Quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Enter, k.Back}, {k.Sort, k.Type, k.Filter, k.Delete, k.Quit}}
}

func defaultKeyMap() browseKeyMap {
	return browseKeyMap{
		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:  key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
		Back:   key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Sort:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Type:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "type")),
		Filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Delete: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "forget")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type recordDeletedMsg struct {
	id  string
	err error
}

type browseModel struct {
	driver     memory.Driver
	records    []memory.Record
	view       browseView
	cursor     int
	width      int
	height     int
	sortIndex  int
	typeIndex  int
	userFilter string
	filter     string
	filtering  bool
	detail     *memory.Record
	notice     string
	keys       browseKeyMap
	help       help.Model
}

func runBrowseTUI(ctx context.Context, driver memory.Driver, records []memory.Record, startType memory.Type, user string) error {
	model := newBrowseModel(driver, records, startType, user)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func newBrowseModel(driver memory.Driver, records []memory.Record, startType memory.Type, user string) browseModel {
	typeIndex := 0
	for i, typ := range typeFilters {
		if typ == startType {
			typeIndex = i
		}
	}

	return browseModel{
		driver:     driver,
		records:    records,
		view:       viewList,
		typeIndex:  typeIndex,
		userFilter: user,
		keys:       defaultKeyMap(),
		help:       help.New(),
	}
}

func (m browseModel) Init() bubbletea.Cmd {
	return nil
}

func (m browseModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case recordDeletedMsg:
		if msg.err != nil {
			m.notice = "forget failed: " + msg.err.Error()
			return m, nil
		}
		m.records = dropRecord(m.records, msg.id)
		m.cursor = clamp(m.cursor, len(m.visible())-1)
		m.notice = "forgot " + shortID(msg.id)
		return m, nil
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m browseModel) View() string {
	switch m.view {
	case viewList:
		return m.viewList()
	case viewDetail:
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, bubbletea.Quit
	case "j", "down":
		return m.moveCursor(1)
	case "k", "up":
		return m.moveCursor(-1)
	case "l", "enter":
		if m.view == viewList {
			return m.openRecord()
		}
	case "h", "esc":
		switch {
		case m.view == viewDetail:
			m.view = viewList
			m.detail = nil
		case m.filter != "":
			m.filter = ""
			m.cursor = 0
		}
	case "s":
		m.sortIndex = (m.sortIndex + 1) % len(sortOrder)
		m.cursor = 0
	case "t":
		if m.view == viewList {
			m.typeIndex = (m.typeIndex + 1) % len(typeFilters)
			m.cursor = 0
		}
	case "/":
		if m.view == viewList {
			m.filtering = true
			m.notice = ""
		}
	case "x":
		if m.view == viewList {
			return m.forgetRecord()
		}
	}

	return m, nil
}

func (m browseModel) handleFilterKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, bubbletea.Quit
	case "enter", "esc":
		m.filtering = false
	case "backspace":
		if len(m.filter) > 0 {
			m.filter = m.filter[:len(m.filter)-1]
			m.cursor = 0
		}
	default:
		switch msg.Type {
		case bubbletea.KeyRunes:
			m.filter += string(msg.Runes)
			m.cursor = 0
		case bubbletea.KeySpace:
			m.filter += " "
			m.cursor = 0
		}
	}

	return m, nil
}

func (m browseModel) moveCursor(delta int) (bubbletea.Model, bubbletea.Cmd) {
	visible := m.visible()
	if len(visible) == 0 {
		return m, nil
	}
	m.cursor = clamp(m.cursor+delta, len(visible)-1)
	return m, nil
}

func (m browseModel) openRecord() (bubbletea.Model, bubbletea.Cmd) {
	visible := m.visible()
	if len(visible) == 0 {
		return m, nil
	}

	rec := visible[clamp(m.cursor, len(visible)-1)]
	m.detail = &rec
	m.view = viewDetail
	return m, nil
}

func (m browseModel) forgetRecord() (bubbletea.Model, bubbletea.Cmd) {
	visible := m.visible()
	if len(visible) == 0 {
		return m, nil
	}

	rec := visible[clamp(m.cursor, len(visible)-1)]
	return m, forgetRecordCmd(m.driver, rec.ID)
}

// visible applies the current type, user, and text filters and the current
// sort to the loaded records.
func (m browseModel) visible() []memory.Record {
	filtered := filterRecords(m.records, typeFilters[m.typeIndex], m.userFilter, m.filter)
	return sortRecords(filtered, sortOrder[m.sortIndex])
}

func (m browseModel) viewList() string {
	visible := m.visible()

	headerLeft := browseTitleStyle.Render("engram browse")
	headerRight := browseMutedStyle.Render(m.headerSummary(len(visible)))
	lines := make([]string, 0, 12)
	lines = append(lines, renderHeaderLine(m.width, headerLeft, headerRight), renderRule(m.width))

	if m.filtering || m.filter != "" {
		prompt := "filter: " + m.filter
		if m.filtering {
			prompt += "▌"
		}
		lines = append(lines, browseAccentStyle.Render(prompt))
	}
	lines = append(lines, "")

	if len(visible) == 0 {
		lines = append(lines, browseMutedStyle.Render("no memories match"))
	} else {
		lines = append(lines, browseMutedStyle.Render("  type         imp  wt   seen  age    content"))

		maxVisible := listHeight(m.height)
		start, end := visibleRange(len(visible), m.cursor, maxVisible)
		contentWidth := contentColumnWidth(m.width)

		for i := start; i < end; i++ {
			rec := visible[i]
			cursor := " "
			// The cursor row takes the highlight background across the
			// whole line, so its type cell stays unstyled.
			typeCell := fitCell(typeLabel(rec.Type), 12)
			if i == m.cursor {
				cursor = ">"
				typeCell = fitCell(string(rec.Type), 12)
			}

			line := fmt.Sprintf("%s %s %s  %s  %s  %s  %s",
				cursor,
				typeCell,
				fitCellRight(strconv.Itoa(rec.Importance), 3),
				fitCellRight(formatWeight(rec.EmotionalWeight), 3),
				fitCellRight(strconv.Itoa(rec.AccessCount), 4),
				fitCellRight(formatAge(rec.CreatedAt), 5),
				truncateText(collapseSpace(rec.Content), contentWidth),
			)

			if i == m.cursor {
				line = browseHighlightStyle.Render(line)
			}

			lines = append(lines, line)
		}
	}

	lines = append(lines, "")
	if m.notice != "" {
		lines = append(lines, browseNoticeStyle.Render(m.notice))
	}
	lines = append(lines, browseMutedStyle.Render(m.help.View(m.keys)))

	return strings.Join(lines, "\n")
}

func (m browseModel) viewDetail() string {
	if m.detail == nil {
		return browseMutedStyle.Render("no memory selected")
	}
	rec := *m.detail

	headerLeft := browseTitleStyle.Render("engram browse › " + string(rec.Type))
	headerRight := browseMutedStyle.Render(rec.ID)
	lines := make([]string, 0, 20)
	lines = append(lines, renderHeaderLine(m.width, headerLeft, headerRight), renderRule(m.width), "")

	lines = append(lines, browseSectionStyle.Render("memory"), renderRule(m.width))
	lines = append(lines,
		fmt.Sprintf("%s  %s %s",
			browseMutedStyle.Render("importance:"),
			browseAccentStyle.Render(renderBar(float64(rec.Importance), memory.MaxImportance, 10)),
			browseValueStyle.Render(strconv.Itoa(rec.Importance)),
		),
		fmt.Sprintf("%s      %s", browseMutedStyle.Render("weight:"), browseValueStyle.Render(formatWeight(rec.EmotionalWeight))),
		fmt.Sprintf("%s    %s", browseMutedStyle.Render("accessed:"), browseValueStyle.Render(fmt.Sprintf("%d times, last %s ago", rec.AccessCount, formatAge(rec.LastAccessedAt)))),
		fmt.Sprintf("%s     %s", browseMutedStyle.Render("created:"), browseValueStyle.Render(rec.CreatedAt.Local().Format("2006-01-02 15:04"))),
	)

	if rec.RelatedUser != "" {
		lines = append(lines, fmt.Sprintf("%s        %s", browseMutedStyle.Render("user:"), browseValueStyle.Render(rec.RelatedUser)))
	}
	if len(rec.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("%s        %s", browseMutedStyle.Render("tags:"), browseValueStyle.Render(strings.Join(rec.Tags, ", "))))
	}
	if len(rec.Embedding) > 0 {
		lines = append(lines, fmt.Sprintf("%s   %s", browseMutedStyle.Render("embedding:"), browseValueStyle.Render(fmt.Sprintf("%d dimensions", len(rec.Embedding)))))
	}

	lines = append(lines, "", browseSectionStyle.Render("content"), renderRule(m.width))
	lines = append(lines, wrapText(rec.Content, max(20, m.width-2))...)

	if rec.Context != "" {
		lines = append(lines, "", browseSectionStyle.Render("context"), renderRule(m.width))
		lines = append(lines, wrapText(rec.Context, max(20, m.width-2))...)
	}

	lines = append(lines, "", browseMutedStyle.Render(m.help.View(m.keys)))

	return strings.Join(lines, "\n")
}

func (m browseModel) headerSummary(visible int) string {
	parts := []string{fmt.Sprintf("%d/%d memories", visible, len(m.records))}
	parts = append(parts, "sort: "+sortOrder[m.sortIndex])
	if typ := typeFilters[m.typeIndex]; typ != "" {
		parts = append(parts, "type: "+string(typ))
	}
	if m.userFilter != "" {
		parts = append(parts, "user: "+m.userFilter)
	}
	return strings.Join(parts, " · ")
}

func forgetRecordCmd(driver memory.Driver, id string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		_, err := driver.Delete(context.Background(), id)
		return recordDeletedMsg{id: id, err: err}
	}
}

// filterRecords keeps records matching the type, related user, and text
// filters. Text matches case-insensitively against content, context, tags,
// and the related user.
func filterRecords(records []memory.Record, typ memory.Type, user, text string) []memory.Record {
	needle := strings.ToLower(strings.TrimSpace(text))
	out := make([]memory.Record, 0, len(records))

	for _, rec := range records {
		if typ != "" && rec.Type != typ {
			continue
		}
		if user != "" && !strings.EqualFold(rec.RelatedUser, user) {
			continue
		}
		if needle != "" && !recordMatches(rec, needle) {
			continue
		}
		out = append(out, rec)
	}

	return out
}

func recordMatches(rec memory.Record, needle string) bool {
	if strings.Contains(strings.ToLower(rec.Content), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(rec.Context), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(rec.RelatedUser), needle) {
		return true
	}
	for _, tag := range rec.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// sortRecords returns a sorted copy. Ties break toward the more recently
// created record so the ordering is stable run to run.
func sortRecords(records []memory.Record, sortKey string) []memory.Record {
	out := make([]memory.Record, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		switch sortKey {
		case "importance":
			if out[i].Importance == out[j].Importance {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].Importance > out[j].Importance
		case "accessed":
			if out[i].AccessCount == out[j].AccessCount {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].AccessCount > out[j].AccessCount
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})

	return out
}

func dropRecord(records []memory.Record, id string) []memory.Record {
	out := make([]memory.Record, 0, len(records))
	for _, rec := range records {
		if rec.ID == id {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func typeLabel(typ memory.Type) string {
	style, ok := typeStyles[typ]
	if !ok {
		return string(typ)
	}
	return style.Render(string(typ))
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func formatWeight(weight int) string {
	if weight > 0 {
		return "+" + strconv.Itoa(weight)
	}
	return strconv.Itoa(weight)
}

// formatAge renders how long ago a timestamp was in the largest sensible
// unit. Future or zero timestamps render as "now".
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "now"
	}

	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "now"
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	case age < 14*24*time.Hour:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	case age < 365*24*time.Hour:
		return fmt.Sprintf("%dw", int(age.Hours()/(24*7)))
	default:
		return fmt.Sprintf("%dy", int(age.Hours()/(24*365)))
	}
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// listHeight is how many rows fit between the list chrome and the footer.
func listHeight(height int) int {
	if height <= 0 {
		return 20
	}
	return max(height-8, 5)
}

func contentColumnWidth(width int) int {
	if width <= 0 {
		width = 80
	}
	return max(width-38, 20)
}

func clamp(value, upper int) int {
	if value < 0 {
		return 0
	}
	if value > upper {
		return upper
	}
	return value
}

func visibleRange(total, cursor, size int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if total <= size {
		return 0, total
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	start := max(cursor-(size/2), 0)
	end := start + size
	if end > total {
		end = total
		start = max(end-size, 0)
	}
	return start, end
}

func truncateText(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func renderBar(value, ceiling float64, width int) string {
	if ceiling <= 0 {
		return strings.Repeat("░", width)
	}
	ratio := value / ceiling
	filled := min(max(int(ratio*float64(width)), 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func renderHeaderLine(width int, left, right string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= lineWidth {
		return strings.TrimSpace(left + " " + right)
	}
	spacing := lineWidth - leftWidth - rightWidth
	return left + strings.Repeat(" ", spacing) + right
}

func renderRule(width int) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	return browseDividerStyle.Render(strings.Repeat("─", lineWidth))
}

func fitCell(value string, width int) string {
	if width <= 0 {
		return value
	}
	if lipgloss.Width(value) > width {
		return truncateText(value, width)
	}
	return value + strings.Repeat(" ", width-lipgloss.Width(value))
}

func fitCellRight(value string, width int) string {
	if width <= 0 {
		return value
	}
	if lipgloss.Width(value) >= width {
		return value
	}
	return strings.Repeat(" ", width-lipgloss.Width(value)) + value
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := []string{}
	current := ""
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
			current = current + " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
