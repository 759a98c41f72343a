// internal/tui/dialog.go
//
// The task parameter dialog. It follows The Elm Architecture like the rest
// of bubbletea: key messages update the Dialog, View renders it.
//
// The Dialog is also the trigger engine's state sink. Committing a value on
// a trigger-bearing field calls Engine.OnFieldEdited, which may toggle the
// active flag of other rows; inactive rows are dimmed and cannot be edited.

package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/teal/internal/config"
	"github.com/kingrea/teal/internal/logbook"
	"github.com/kingrea/teal/internal/taskpars"
	"github.com/kingrea/teal/internal/trigger"
)

// Outcome reports how the dialog was closed.
type Outcome int

const (
	OutcomeClosed   Outcome = iota // closed, values kept
	OutcomeCanceled                // canceled, edits since last save dropped
)

// Dialog is the editor model.
type Dialog struct {
	config *config.Config
	log    *logbook.Logbook
	styles styles
	keys   keyMap
	help   help.Model

	set    *taskpars.Set
	engine *trigger.Engine
	saved  taskpars.Snapshot

	cursor  int
	editing bool
	input   textinput.Model

	status      string
	err         error
	fatal       error
	confirmQuit bool
	outcome     Outcome

	choices   []string
	choiceIdx int

	width  int
	height int
}

// NewDialog builds a dialog over set. Rules are compiled and checked up
// front, then trigger-bearing fields are replayed once so the initial active
// states match the loaded values.
func NewDialog(cfg *config.Config, log *logbook.Logbook, set *taskpars.Set) (*Dialog, error) {
	if cfg == nil || set == nil {
		return nil, fmt.Errorf("tui: config and parameter set are required")
	}
	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 512
	d := &Dialog{
		config: cfg,
		log:    log.WithPrefix(set.Task()),
		styles: newStyles(cfg.Settings),
		keys:   newKeyMap(),
		help:   help.New(),
		set:    set,
		saved:  set.Snapshot(),
		input:  input,
	}
	engine, err := trigger.New(set, d, trigger.WithLogger(d.log))
	if err != nil {
		return nil, err
	}
	d.engine = engine
	if err := d.engine.Validate(); err != nil {
		return nil, err
	}
	if err := d.engine.Refresh(); err != nil {
		return nil, err
	}
	d.log.Info("opened %s (set %s)", displayName(set.Filename()), set.ID())
	for _, w := range set.Warnings() {
		d.log.Warn("%s", w)
	}
	if w := set.Warnings(); len(w) > 0 {
		d.status = w[0]
	}
	d.refreshChoices()
	return d, nil
}

// Set returns the parameter set currently being edited.
func (d *Dialog) Set() *taskpars.Set { return d.set }

// Outcome reports how the dialog ended.
func (d *Dialog) Outcome() Outcome { return d.outcome }

// Err returns the schema error that stopped the dialog, if any.
func (d *Dialog) Err() error { return d.fatal }

// Fields implements trigger.StateSink.
func (d *Dialog) Fields() []trigger.FieldRef { return d.set.Fields() }

// SetActiveState implements trigger.StateSink.
func (d *Dialog) SetActiveState(scope, name string, active bool) {
	d.SetActiveStates([]trigger.ActiveChange{{Field: trigger.FieldRef{Scope: scope, Name: name}, Active: active}})
}

// SetActiveStates implements trigger.BatchSink. The whole batch lands
// before the next render.
func (d *Dialog) SetActiveStates(changes []trigger.ActiveChange) {
	d.set.SetActiveStates(changes)
	if p := d.current(); p != nil && !p.Active && d.editing {
		d.stopEditing()
	}
}

// Init is called once when the program starts.
func (d *Dialog) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (d *Dialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.help.Width = msg.Width
		return d, nil
	case tea.KeyMsg:
		if d.editing {
			return d.updateEditing(msg)
		}
		return d.handleKey(msg)
	}
	return d, nil
}

func (d *Dialog) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, d.keys.Edit), msg.String() == "tab":
		cmd := d.commit(d.input.Value())
		if d.fatal != nil {
			return d, tea.Quit
		}
		if d.err == nil {
			d.stopEditing()
			if msg.String() == "tab" {
				d.move(1)
			}
		}
		return d, cmd
	case key.Matches(msg, d.keys.Discard):
		d.stopEditing()
		d.status = "edit discarded"
		return d, nil
	case key.Matches(msg, d.keys.Cancel):
		return d.cancel()
	}
	var cmd tea.Cmd
	d.input, cmd = d.input.Update(msg)
	return d, cmd
}

func (d *Dialog) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, d.keys.Close) {
		d.confirmQuit = false
	}
	switch {
	case key.Matches(msg, d.keys.Up):
		d.move(-1)
	case key.Matches(msg, d.keys.Down):
		d.move(1)
	case key.Matches(msg, d.keys.Edit):
		return d, d.startEditing()
	case key.Matches(msg, d.keys.Toggle):
		if p := d.current(); p != nil && p.Active && p.Spec.Type == taskpars.TypeBoolean {
			current, _ := p.Value.(bool)
			d.commit(!current)
			if d.fatal != nil {
				return d, tea.Quit
			}
		}
	case key.Matches(msg, d.keys.Save):
		d.save()
	case key.Matches(msg, d.keys.Defaults):
		d.resetToDefaults()
	case key.Matches(msg, d.keys.Open):
		d.openNextChoice()
	case key.Matches(msg, d.keys.Cancel):
		return d.cancel()
	case key.Matches(msg, d.keys.Close):
		if d.set.HasUnsavedChanges(d.saved) && !d.confirmQuit {
			d.confirmQuit = true
			d.status = "unsaved changes: q again closes without saving, ctrl+s saves"
			return d, nil
		}
		d.outcome = OutcomeClosed
		d.log.Info("closed")
		return d, tea.Quit
	}
	if d.fatal != nil {
		return d, tea.Quit
	}
	return d, nil
}

func (d *Dialog) cancel() (tea.Model, tea.Cmd) {
	d.outcome = OutcomeCanceled
	d.log.Info("canceled")
	return d, tea.Quit
}

func (d *Dialog) current() *taskpars.Parameter {
	params := d.set.Params()
	if d.cursor < 0 || d.cursor >= len(params) {
		return nil
	}
	return params[d.cursor]
}

func (d *Dialog) move(delta int) {
	n := len(d.set.Params())
	if n == 0 {
		return
	}
	d.cursor = ((d.cursor+delta)%n + n) % n
}

func (d *Dialog) startEditing() tea.Cmd {
	p := d.current()
	if p == nil {
		return nil
	}
	if !p.Active {
		d.status = p.AbsName() + " is inactive"
		return nil
	}
	d.editing = true
	d.err = nil
	d.input.SetValue(taskpars.FormatValue(p.Value))
	d.input.CursorEnd()
	return d.input.Focus()
}

func (d *Dialog) stopEditing() {
	d.editing = false
	d.input.Blur()
}

// commit stores raw into the focused parameter and dispatches its trigger.
// Invalid values keep the previous value and leave the error on the status
// line. A rule that fails to evaluate also restores the previous value, so the
// active states still match what is stored. Schema errors end the dialog.
func (d *Dialog) commit(raw any) tea.Cmd {
	p := d.current()
	if p == nil {
		return nil
	}
	prev, err := d.set.SetValue(p.Scope, p.Name, raw)
	if err != nil {
		d.err = err
		d.status = ""
		return nil
	}
	d.err = nil
	d.status = fmt.Sprintf("%s = %s", p.AbsName(), taskpars.FormatValue(p.Value))
	if !d.engine.IsTriggerBearing(p.Scope, p.Name) {
		return nil
	}
	if err := d.engine.OnFieldEdited(p.Scope, p.Name, prev, p.Value); err != nil {
		if !errors.Is(err, trigger.ErrSchema) {
			if _, rerr := d.set.SetValue(p.Scope, p.Name, prev); rerr != nil {
				d.log.Error("restore %s: %v", p.AbsName(), rerr)
			}
			d.status = ""
		}
		d.handleEngineError(err)
	}
	return nil
}

func (d *Dialog) handleEngineError(err error) {
	d.log.Error("%v", err)
	if errors.Is(err, trigger.ErrSchema) {
		d.fatal = err
		return
	}
	d.err = err
}

func (d *Dialog) save() {
	path, err := d.set.SaveWithFallback("", d.config.ResourceDir, "Saved by "+config.AppName)
	if err != nil {
		d.err = err
		d.log.Error("save: %v", err)
		return
	}
	d.saved = d.set.Snapshot()
	d.err = nil
	d.status = "saved " + displayName(path)
	d.log.Info("saved %s", path)
	d.refreshChoices()
}

// install swaps in a freshly built Set. Engine caches are discarded with the
// old Set; on failure the old Set stays in place.
func (d *Dialog) install(next *taskpars.Set) error {
	previous := d.set
	d.set = next
	if err := d.engine.Replace(next, d); err != nil {
		d.set = previous
		return err
	}
	d.stopEditing()
	if d.cursor >= len(next.Params()) {
		d.cursor = 0
	}
	if err := d.engine.Refresh(); err != nil {
		d.handleEngineError(err)
	}
	d.log.Info("installed set %s", next.ID())
	return nil
}

func (d *Dialog) resetToDefaults() {
	next, err := taskpars.LoadDefaults(d.set.SchemaPath())
	if err != nil {
		d.err = fmt.Errorf("determine defaults: %w", err)
		return
	}
	next.SetFilename(d.set.Filename())
	if err := d.install(next); err != nil {
		d.err = err
		return
	}
	if d.fatal == nil {
		d.status = "loaded default values via " + displayName(next.SchemaPath())
	}
}

func (d *Dialog) openNextChoice() {
	if len(d.choices) == 0 {
		d.status = "no other value files found for " + d.set.Task()
		return
	}
	d.choiceIdx = (d.choiceIdx + 1) % len(d.choices)
	path := d.choices[d.choiceIdx]
	next, err := taskpars.Load(d.set.SchemaPath(), path)
	if err != nil {
		if errors.Is(err, taskpars.ErrTaskMismatch) {
			d.err = fmt.Errorf("%s is for another task and was not loaded", displayName(path))
			return
		}
		d.err = err
		return
	}
	if !d.set.IsSameTaskAs(next) {
		d.err = fmt.Errorf("%s is for task %s, not %s", displayName(path), next.Task(), d.set.Task())
		return
	}
	if err := d.install(next); err != nil {
		d.err = err
		return
	}
	d.saved = next.Snapshot()
	if d.fatal == nil {
		d.status = "opened " + displayName(path)
	}
}

func (d *Dialog) refreshChoices() {
	choices, err := taskpars.OpenChoices(d.set, d.config.ResourceDir)
	if err != nil {
		d.log.Warn("open choices: %v", err)
		return
	}
	d.choices = choices
	d.choiceIdx = 0
	for i, c := range choices {
		if abs, err := filepath.Abs(d.set.Filename()); err == nil && abs == c {
			d.choiceIdx = i
		}
	}
}

// View renders the dialog.
func (d *Dialog) View() string {
	var b strings.Builder
	title := fmt.Sprintf("%s · %s", config.AppName, d.set.Task())
	if name := d.set.Filename(); name != "" {
		title += " · " + displayName(name)
	}
	if d.set.HasUnsavedChanges(d.saved) {
		title += " *"
	}
	b.WriteString(d.styles.title.Render(title))
	b.WriteString("\n")
	if desc := d.set.Schema().Description; desc != "" {
		b.WriteString(d.styles.help.Render(desc))
		b.WriteString("\n")
	}

	lastScope := "\x00"
	for idx, p := range d.set.Params() {
		if p.Scope != lastScope {
			lastScope = p.Scope
			if p.Scope != "" {
				b.WriteString("\n")
				b.WriteString(d.styles.section.Render("[" + p.Scope + "]"))
				b.WriteString("\n")
			}
		}
		b.WriteString(d.renderRow(idx, p))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case d.err != nil:
		b.WriteString(d.styles.errText.Render(d.err.Error()))
	case d.status != "":
		b.WriteString(d.styles.status.Render(d.status))
	}
	b.WriteString("\n")
	b.WriteString(d.help.View(d.keys))

	frame := d.styles.frame
	if d.width > 4 {
		frame = frame.Width(d.width - 4)
	}
	return frame.Render(b.String())
}

func (d *Dialog) renderRow(idx int, p *taskpars.Parameter) string {
	label := d.styles.label.Render(p.Name)
	value := taskpars.FormatValue(p.Value)
	if idx == d.cursor && d.editing {
		value = d.input.View()
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, label, d.styles.value.Render(value))
	if p.Spec.Help != "" {
		row += "  " + d.styles.help.Render(p.Spec.Help)
	}
	switch {
	case !p.Active:
		return "  " + d.styles.inactive.Render(row)
	case idx == d.cursor:
		return "> " + d.styles.selected.Render(row)
	}
	return "  " + row
}

func displayName(path string) string {
	if path == "" {
		return "(unsaved)"
	}
	return filepath.Base(path)
}

// Run opens the dialog and blocks until it closes.
func Run(cfg *config.Config, log *logbook.Logbook, set *taskpars.Set) (*Dialog, error) {
	d, err := NewDialog(cfg, log, set)
	if err != nil {
		return nil, err
	}
	final, err := tea.NewProgram(d, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	result, ok := final.(*Dialog)
	if !ok {
		return nil, fmt.Errorf("tui: unexpected model %T", final)
	}
	if result.fatal != nil {
		return result, result.fatal
	}
	return result, nil
}
