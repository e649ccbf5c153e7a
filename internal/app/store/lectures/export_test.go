package lecturestore

// SetCodeSource replaces the code generator used by Create.
func SetCodeSource(s *Store, fn func() (string, error)) {
	s.newCode = fn
}
