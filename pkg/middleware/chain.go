package middleware

// Chain composes wrappers so the first one sees the event first. Nil wrappers are skipped,
// which lets callers leave out optional middleware.
func Chain[T any](wrappers ...func(T) T) func(T) T {
	return func(handler T) T {
		for i := len(wrappers) - 1; i >= 0; i-- {
			if wrappers[i] == nil {
				continue
			}
			handler = wrappers[i](handler)
		}
		return handler
	}
}
