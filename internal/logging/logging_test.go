package logging

import "testing"

func TestNew(t *testing.T) {
	for _, debug := range []bool{false, true} {
		logger, err := New(debug)
		if err != nil {
			t.Fatalf("new logger (debug=%v): %v", debug, err)
		}
		logger.Infow("logger ready", "debug", debug)
		Sync(logger)
	}
	Sync(nil)
}
