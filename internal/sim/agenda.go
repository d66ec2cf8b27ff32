package sim

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DateLayout renders dates the way the agenda's header shows them.
const DateLayout = "Mon Jan 02 2006"

// AgendaOptions configures NewAgenda.
type AgendaOptions struct {
	// Today is the date the agenda opens on. Zero means time.Now().
	Today time.Time
	// RenderDelay is how many snapshots pass before an update shows.
	RenderDelay int
	// StartHour is when the first event of a day is scheduled.
	StartHour int
}

type agendaEvent struct {
	label string
	start time.Time
}

type agenda struct {
	opts   AgendaOptions
	daily  bool
	date   time.Time
	modal  bool
	draft  string
	events []agendaEvent
}

// NewAgenda returns a page at "/" that behaves like the elm-agenda demo:
// daily and weekly modes, date pagination, and an event modal with
// Save and Cancel. Event delete buttons are rendered under an overlay, so
// clicking them needs force.
func NewAgenda(opts AgendaOptions) *Page {
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}
	if opts.StartHour == 0 {
		opts.StartHour = 8
	}
	a := &agenda{opts: opts}

	p := New().Route("/", `<html><head><title>elm-agenda</title></head><body></body></html>`)
	p.OnLoad(func(e *Event) {
		a.reset()
		a.render(e.Doc)
	})

	p.On("click", ".elm-agenda__mode-daily", a.update(func() { a.daily = true }))
	p.On("click", ".elm-agenda__mode-weekly", a.update(func() { a.daily = false }))
	p.On("click", ".elm-agenda__prev", a.update(func() { a.date = a.date.AddDate(0, 0, -a.step()) }))
	p.On("click", ".elm-agenda__next", a.update(func() { a.date = a.date.AddDate(0, 0, a.step()) }))
	p.On("click", ".elm-agenda__today", a.update(func() { a.date = a.today() }))
	p.On("click", ".elm-agenda__add", a.update(func() { a.modal, a.draft = true, "" }))
	p.On("click", ".elm-agenda__cancel", a.update(func() { a.modal, a.draft = false, "" }))
	p.On("click", ".elm-agenda__save", a.update(a.save))
	p.On("input", ".input", func(e *Event) {
		a.draft = e.Current.AttrOr("value", "")
	})
	p.On("keypress", ".input", func(e *Event) {
		if e.Action.Key == "Enter" {
			a.update(a.save)(e)
		}
	})
	p.On("click", ".elm-agenda__schedule-event-delete", func(e *Event) {
		i, err := strconv.Atoi(e.Current.AttrOr("data-index", ""))
		if err != nil || i < 0 || i >= len(a.events) {
			return
		}
		a.update(func() { a.events = append(a.events[:i], a.events[i+1:]...) })(e)
	})
	return p
}

func (a *agenda) reset() {
	a.daily = false
	a.date = a.today()
	a.modal = false
	a.draft = ""
	a.events = nil
}

func (a *agenda) today() time.Time {
	y, m, d := a.opts.Today.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, a.opts.Today.Location())
}

func (a *agenda) step() int {
	if a.daily {
		return 1
	}
	return 7
}

func (a *agenda) save() {
	start := a.date.Add(time.Duration(a.opts.StartHour)*time.Hour + time.Duration(len(a.events))*15*time.Minute)
	a.events = append(a.events, agendaEvent{label: a.draft, start: start})
	a.modal, a.draft = false, ""
}

// update applies fn to the model immediately and shows the result after
// the configured render delay.
func (a *agenda) update(fn func()) Handler {
	return func(e *Event) {
		fn()
		if a.opts.RenderDelay > 0 {
			e.Defer(a.opts.RenderDelay, a.render)
			return
		}
		a.render(e.Doc)
	}
}

func (a *agenda) render(doc *goquery.Document) {
	var b strings.Builder
	title := "Weekly Schedule"
	if a.daily {
		title = "Daily Schedule"
	}

	b.WriteString(`<div class="elm-agenda">`)
	b.WriteString(`<div class="elm-agenda__header">`)
	b.WriteString(`<button class="elm-agenda__prev">&lt;</button>`)
	b.WriteString(`<button class="elm-agenda__today">Today</button>`)
	b.WriteString(`<button class="elm-agenda__next">&gt;</button>`)
	fmt.Fprintf(&b, `<span class="elm-agenda__date">%s</span>`, a.date.Format(DateLayout))
	b.WriteString(`<button class="elm-agenda__mode-daily">Daily</button>`)
	b.WriteString(`<button class="elm-agenda__mode-weekly">Weekly</button>`)
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<h2 class="elm-agenda__title">%s</h2>`, title)

	b.WriteString(`<div class="elm-agenda__schedule">`)
	for i, ev := range a.events {
		end := ev.start.Add(15 * time.Minute)
		fmt.Fprintf(&b, `<div class="elm-agenda__schedule-event" data-index="%d">`, i)
		fmt.Fprintf(&b, `<div class="elm-agenda__schedule-event-label">%s</div>`, html.EscapeString(ev.label))
		fmt.Fprintf(&b, `<div class="elm-agenda__schedule-event-time">%s - %s</div>`,
			ev.start.Format("3:04 PM"), end.Format("3:04 PM"))
		fmt.Fprintf(&b, `<button class="elm-agenda__schedule-event-delete" data-index="%d" %s>X</button>`, i, AttrObstructed)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)

	b.WriteString(`<button class="elm-agenda__add">Add Event</button>`)
	if a.modal {
		b.WriteString(`<div class="elm-agenda__modal">`)
		fmt.Fprintf(&b, `<input class="input" type="text" value="%s">`, html.EscapeString(a.draft))
		b.WriteString(`<button class="elm-agenda__save">Save</button>`)
		b.WriteString(`<button class="elm-agenda__cancel">Cancel</button>`)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)

	doc.Find("body").SetHtml(b.String())
}
