package helpers

// PtrOf creates a pointer to any value, for optional config fields.
//
// Example:
//
//	params.MaxTokens = helpers.PtrOf(1000)
//	params.Temperature = helpers.PtrOf(0.7)
func PtrOf[T any](t T) *T { return &t }

// Deref returns *p, or fallback when p is nil.
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
