package catalog

// QueueSize exposes the worker queue capacity to external tests.
const QueueSize = defaultQueueSize

// Jobs reports how many export records the worker retains.
func (w *Worker) Jobs() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.jobs)
}
