package cvexport

import "testing"

func TestRodSession_ClosedOperations(t *testing.T) {
	t.Parallel()

	s := &rodSession{}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	assertSessionClosed(t, s)
}
