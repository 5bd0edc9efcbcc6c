package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Focus identifies the area receiving key input.
type Focus int

// Focus areas, in tab order.
const (
	FocusQuestion Focus = iota
	FocusDomain
	FocusSources
)

// App is the ask screen. It implements tea.Model.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap

	domainInput   textinput.Model
	questionInput textinput.Model
	spinner       spinner.Model
	sources       *SourceList
	bar           *StatusBar

	focus    Focus
	asking   bool
	showHelp bool
	result   *domain.RAGResult
	status   *domain.Status
	err      error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the ask screen. defaultDomain pre-fills the domain field.
func NewApp(ports *Ports, defaultDomain string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	di := textinput.New()
	di.Placeholder = "domain, e.g. engineering"
	di.CharLimit = 128
	di.Width = 30
	di.SetValue(defaultDomain)

	qi := textinput.New()
	qi.Placeholder = "Ask a question..."
	qi.CharLimit = domain.MaxQueryLength
	qi.Width = 60
	qi.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	a := &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keys:          km,
		domainInput:   di,
		questionInput: qi,
		spinner:       sp,
		sources:       NewSourceList(s),
		bar:           NewStatusBar(s, km),
		focus:         FocusQuestion,
	}
	if defaultDomain == "" {
		a.setFocus(FocusDomain)
	}
	return a, nil
}

// WithContext sets the context used for pipeline calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.SetWindowTitle("sercha-rag"),
		a.loadStatus(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case AnswerReceived:
		a.asking = false
		if msg.Err != nil {
			a.err = msg.Err
			a.bar.SetState(BarError, msg.Err.Error())
			return a, nil
		}
		a.err = nil
		a.result = msg.Result
		a.sources.SetMatches(msg.Result.Sources)
		a.bar.SetSources(len(msg.Result.Sources))
		a.bar.SetState(BarAnswered, "")
		if len(msg.Result.Sources) > 0 {
			a.setFocus(FocusSources)
		}
		return a, nil

	case StatusLoaded:
		if msg.Err != nil {
			a.bar.SetState(BarError, msg.Err.Error())
			return a, nil
		}
		a.status = msg.Status
		a.bar.SetStore(msg.Status)
		return a, nil

	case spinner.TickMsg:
		if !a.asking {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, a.updateInput(msg)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if keymap.Matches(k, a.keys.Quit) {
		return a, tea.Quit
	}
	if a.asking {
		return a, nil
	}
	if keymap.Matches(k, a.keys.Status) {
		return a, a.loadStatus()
	}

	if a.focus == FocusSources {
		switch {
		case keymap.Matches(k, a.keys.Up):
			a.sources.MoveUp()
		case keymap.Matches(k, a.keys.Down):
			a.sources.MoveDown()
		case keymap.Matches(k, a.keys.Back):
			a.showHelp = false
			a.questionInput.SetValue("")
			return a, a.setFocus(FocusQuestion)
		case keymap.Matches(k, a.keys.Help):
			a.showHelp = !a.showHelp
		}
		return a, nil
	}

	switch {
	case keymap.Matches(k, a.keys.NextField):
		if a.focus == FocusQuestion {
			return a, a.setFocus(FocusDomain)
		}
		return a, a.setFocus(FocusQuestion)
	case keymap.Matches(k, a.keys.Ask):
		return a, a.ask()
	case keymap.Matches(k, a.keys.Back) && a.result != nil && a.sources.Count() > 0:
		return a, a.setFocus(FocusSources)
	}

	return a, a.updateInput(msg)
}

func (a *App) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.focus {
	case FocusQuestion:
		a.questionInput, cmd = a.questionInput.Update(msg)
	case FocusDomain:
		a.domainInput, cmd = a.domainInput.Update(msg)
	case FocusSources:
	}
	return cmd
}

func (a *App) setFocus(f Focus) tea.Cmd {
	a.focus = f
	a.questionInput.Blur()
	a.domainInput.Blur()
	switch f {
	case FocusQuestion:
		return a.questionInput.Focus()
	case FocusDomain:
		return a.domainInput.Focus()
	case FocusSources:
	}
	return nil
}

// ask validates the fields and starts the query.
func (a *App) ask() tea.Cmd {
	question := strings.TrimSpace(a.questionInput.Value())
	domainName := strings.TrimSpace(a.domainInput.Value())
	if question == "" || domainName == "" {
		a.err = ErrEmptyQuestion
		a.bar.SetState(BarError, ErrEmptyQuestion.Error())
		return nil
	}

	a.asking = true
	a.err = nil
	a.bar.SetState(BarAsking, "")

	rag := a.ports.RAG
	ctx := a.ctx
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		res, err := rag.Query(ctx, question, domainName, domain.QueryOptions{})
		return AnswerReceived{Result: res, Err: err}
	})
}

func (a *App) loadStatus() tea.Cmd {
	rag := a.ports.RAG
	ctx := a.ctx
	return func() tea.Msg {
		st, err := rag.Status(ctx)
		return StatusLoaded{Status: st, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	sections := []string{
		a.styles.Title.Render("sercha-rag"),
		"",
		a.renderField("Domain", a.domainInput.View(), a.focus == FocusDomain),
		a.renderField("Question", a.questionInput.View(), a.focus == FocusQuestion),
		"",
	}

	switch {
	case a.asking:
		sections = append(sections, a.spinner.View()+" Thinking...")
	case a.err != nil:
		sections = append(sections, a.styles.Error.Render(a.err.Error()))
	case a.result != nil:
		sections = append(sections, a.renderResult()...)
	}

	if a.showHelp {
		sections = append(sections, "", a.renderHelp())
	}

	body := strings.Join(sections, "\n")
	bodyHeight := a.height - 1
	if bodyHeight > 0 && lipgloss.Height(body) < bodyHeight {
		body = lipgloss.NewStyle().Height(bodyHeight).Render(body)
	}
	return body + "\n" + a.bar.View(a.focus == FocusSources)
}

func (a *App) renderField(label, input string, focused bool) string {
	style := a.styles.Input
	if focused {
		style = a.styles.InputFocus
	}
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center,
		a.styles.Label.Width(10).Render(label), style.Render(input))
}

func (a *App) renderResult() []string {
	r := a.result
	answer := a.styles.Answer.Width(max(a.width-4, 20)).Render(r.Answer)
	confidence := a.styles.Confidence(r.Confidence).Render(fmt.Sprintf("%.2f", r.Confidence))

	out := []string{
		answer,
		"",
		a.styles.Muted.Render("Confidence: ") + confidence +
			a.styles.Muted.Render(fmt.Sprintf("  (%d ms)", r.ProcessingTimeMs)),
	}
	for _, w := range r.Metadata.Warnings {
		out = append(out, a.styles.Warning.Render("! "+warningLabel(w)))
	}
	return append(out, "", a.sources.View(a.focus == FocusSources))
}

func (a *App) renderHelp() string {
	var rows []string
	for _, group := range a.keys.FullHelp() {
		rows = append(rows, a.styles.Muted.Render(hints(group)))
	}
	return strings.Join(rows, "\n")
}

func warningLabel(w string) string {
	switch w {
	case domain.WarningPlanningDegraded:
		return "query planning unavailable, searched the question as written"
	case domain.WarningRetrievalEmpty:
		return "no passages matched"
	case domain.WarningExtractiveAnswer:
		return "no language model configured, showing the best passages"
	default:
		return w
	}
}

// Run starts the program on the terminal.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.questionInput.Width = max(width-20, 20)
	a.sources.SetDimensions(width, height/2)
	a.bar.SetWidth(width)
}

// Focus returns the focused area.
func (a *App) Focus() Focus {
	return a.focus
}

// Result returns the last answer.
func (a *App) Result() *domain.RAGResult {
	return a.result
}

// Status returns the last store status.
func (a *App) Status() *domain.Status {
	return a.status
}

// Err returns the last error.
func (a *App) Err() error {
	return a.err
}

// Asking reports whether a query is in flight.
func (a *App) Asking() bool {
	return a.asking
}

// Ready returns whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}

// Question returns the question field value.
func (a *App) Question() string {
	return a.questionInput.Value()
}

// Domain returns the domain field value.
func (a *App) Domain() string {
	return a.domainInput.Value()
}

// Sources returns the source list.
func (a *App) Sources() *SourceList {
	return a.sources
}
