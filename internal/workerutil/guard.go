package workerutil

// Guard runs fn and swallows any panic after logging it under name. It is
// used at every entry point the host calls into, so one broken handler never
// takes down the event loop. It reports whether fn completed.
func Guard(name string, fn func()) bool {
	return !runRecovered(name, fn)
}

// GuardValue is Guard for callbacks that return a value. On panic it returns
// fallback.
func GuardValue[T any](name string, fallback T, fn func() T) T {
	result := fallback
	if runRecovered(name, func() { result = fn() }) {
		return fallback
	}
	return result
}
