package worker

func Done[T any](d *Dispatcher[T]) <-chan struct{} {
	return d.done
}
