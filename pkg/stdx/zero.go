package stdx

// Coalesce returns the first non-zero value from the provided arguments,
// or the zero value when all arguments are zero.
func Coalesce[T comparable](values ...T) T {
	var empty T
	for _, v := range values {
		if v != empty {
			return v
		}
	}
	return empty
}
