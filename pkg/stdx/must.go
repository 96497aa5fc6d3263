package stdx

// Must1 returns v when err is nil and panics otherwise.
//
// This is useful in places where you are confident that an error cannot
// occur, such as building a value from constants.
func Must1[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
