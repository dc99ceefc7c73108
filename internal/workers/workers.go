package workers

type Workers struct {
	workers []Worker
}

// NewWorkers aggregates the given workers into one.
func NewWorkers(items ...Worker) *Workers {
	return &Workers{workers: items}
}

func (w *Workers) Run() {
	for _, worker := range w.workers {
		worker.Run()
	}
}
