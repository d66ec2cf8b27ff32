package runner

// Observer receives progress events from a run. Callbacks run on the
// runner's goroutine and must not block for long.
type Observer interface {
	RunStarted(r *Report)
	CaseStarted(c *CaseResult)
	CaseFinished(c *CaseResult)
	RunFinished(r *Report)
}

// Observers fans events out to each observer in order.
type Observers []Observer

func (o Observers) RunStarted(r *Report) {
	for _, ob := range o {
		ob.RunStarted(r)
	}
}

func (o Observers) CaseStarted(c *CaseResult) {
	for _, ob := range o {
		ob.CaseStarted(c)
	}
}

func (o Observers) CaseFinished(c *CaseResult) {
	for _, ob := range o {
		ob.CaseFinished(c)
	}
}

func (o Observers) RunFinished(r *Report) {
	for _, ob := range o {
		ob.RunFinished(r)
	}
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) RunStarted(*Report)       {}
func (NopObserver) CaseStarted(*CaseResult)  {}
func (NopObserver) CaseFinished(*CaseResult) {}
func (NopObserver) RunFinished(*Report)      {}
